package dto

// ==============================================
// UNIFORM ERROR BODY
// ==============================================

// ErrorDetail is the machine-readable error payload every endpoint
// returns under the "errors" key. Instance is "{request_path}#{uuid}"
// so a single failing request can be traced through the logs.
type ErrorDetail struct {
	Code     string      `json:"code"`
	Type     string      `json:"type,omitempty"`
	Status   int         `json:"status"`
	Message  string      `json:"message,omitempty"`
	Reason   string      `json:"reason,omitempty"`
	Details  interface{} `json:"details,omitempty"`
	Instance string      `json:"instance"`
}

type ErrorResponse struct {
	Errors ErrorDetail `json:"errors"`
}

// MessageResponse is the generic success body
type MessageResponse struct {
	Message string `json:"message"`
}
