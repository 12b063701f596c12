package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/internal/api/dto"
)

// ==============================================
// UNIFORM ERROR RESPONSES
// ==============================================

// errorResponse emits the machine-readable error body shared by every
// endpoint. The instance id makes one failing request traceable.
func errorResponse(c *gin.Context, status int, code, errType, message, reason string, details interface{}) {
	c.JSON(status, dto.ErrorResponse{
		Errors: dto.ErrorDetail{
			Code:     code,
			Type:     errType,
			Status:   status,
			Message:  message,
			Reason:   reason,
			Details:  details,
			Instance: fmt.Sprintf("%s#%s", c.Request.URL.Path, uuid.NewString()),
		},
	})
}

func badRequest(c *gin.Context, errType, message, reason string, details interface{}) {
	errorResponse(c, http.StatusBadRequest, "BAD_REQUEST", errType, message, reason, details)
}

// handleBindingError converts a gin binding failure into the uniform
// 400 body, carrying the validator's output in details.
func handleBindingError(c *gin.Context, err error) {
	badRequest(c, "", "Invalid input", "", err.Error())
}

func notFound(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, "NOT_FOUND", "", message, "", nil)
}

func userAlreadyExists(c *gin.Context, message string) {
	errorResponse(c, http.StatusConflict, "USER_ALREADY_EXISTS", "", message, "", nil)
}

func unauthorized(c *gin.Context, message, reason string) {
	errorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "", message, reason, nil)
}

func forbidden(c *gin.Context, message string) {
	errorResponse(c, http.StatusForbidden, "FORBIDDEN_ACCESS", "", message, "", nil)
}

func tooManyRequests(c *gin.Context, message, reason string) {
	errorResponse(c, http.StatusTooManyRequests, "TOO_MANY_REQUEST", "", message, reason, nil)
}

func internalError(c *gin.Context, message string) {
	errorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", "", message, "", nil)
}
