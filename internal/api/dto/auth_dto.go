package dto

// ==============================================
// AUTH REQUEST DTOs
// ==============================================

type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginRequest accepts either username or email as the identifier.
// The either-or rule cannot be expressed with binding tags alone, so
// the handler enforces it after binding.
type LoginRequest struct {
	Username string `json:"username" binding:"omitempty,min=3"`
	Email    string `json:"email" binding:"omitempty,email"`
	Password string `json:"password" binding:"required"`
}

// Identifier returns the login identity the client chose.
func (r *LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type ForgetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOtpRequest struct {
	Otp   string `json:"otp" binding:"required,len=6,numeric"`
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// ==============================================
// AUTH RESPONSE DTOs
// ==============================================

type LoginResponse struct {
	Token string `json:"token"`
}

// ForgetPasswordResponse returns the OTP-challenge token the client
// must present to the verify step alongside the emailed code.
type ForgetPasswordResponse struct {
	OtpToken string `json:"otp-token"`
}

type VerifyOtpResponse struct {
	ResetToken string `json:"reset-token"`
}
