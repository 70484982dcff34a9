package domain

import "time"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Username     string    `json:"username" dynamodbav:"username"`
	PhoneNumber  string    `json:"phone_number" dynamodbav:"phone_number"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,max=64"`
	Password    string `json:"password" validate:"required,min=8,max=72,strongpassword"`
	PhoneNumber string `json:"phone_number" validate:"required,phonenumber"`
}

type UpdatePhoneNumberRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phonenumber"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned once the password step succeeds.
type LoginResponse struct {
	Message      string `json:"message"`
	PreAuthToken string `json:"pre_auth_token"`
}

type VerifyDynamicCodeRequest struct {
	PreAuthToken string `json:"pre_auth_token" validate:"required"`
	DynamicCode  string `json:"dynamic_code" validate:"required,len=6,numeric"`
}

// SessionResponse carries the session token issued after a completed challenge.
type SessionResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity is the authenticated subject resolved from a session token.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}
