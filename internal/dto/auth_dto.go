package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type RegisterResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"user_id"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

// UpdateProfileRequest lists the only profile fields a user may change.
// Absent fields are left untouched.
type UpdateProfileRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	FacebookLinked *bool   `json:"facebook_linked"`
	FacebookID     *string `json:"facebook_id" validate:"omitempty,max=255"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// UserResponse is the sanitized profile: no password hash, no codes.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	EmailVerified  bool      `json:"email_verified"`
	FacebookLinked bool      `json:"facebook_linked"`
	FacebookID     *string   `json:"facebook_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// FieldError names one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
