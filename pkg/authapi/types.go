package authapi

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tendant/simple-auth/pkg/account"
)

// Status is the envelope every response carries. Code values form a closed
// machine-readable taxonomy; Message is for humans only.
type Status struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope for failures, with the optional rate-limit
// and attempt-count hints some codes carry.
type ErrorResponse struct {
	Status
	RetryAfter        *int `json:"retryAfter,omitempty"`
	AttemptsRemaining *int `json:"attemptsRemaining,omitempty"`
}

type CheckEmailRequest struct {
	Email string `json:"email"`
}

type CheckEmailResponse struct {
	Status
	Exists bool `json:"exists"`
}

type SendVerificationRequest struct {
	Email string `json:"email"`
}

type SendVerificationResponse struct {
	Status
	ExpiresIn int `json:"expiresIn"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// UserPayload is the public shape of an account. The password hash never
// leaves the service.
type UserPayload struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type SignupResponse struct {
	Status
	User UserPayload `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

type WithdrawRequest struct {
	Password string `json:"password"`
}

// ProfilePayload extends UserPayload with the registration timestamp.
type ProfilePayload struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProfileResponse struct {
	Status
	User ProfilePayload `json:"user"`
}

func toUserPayload(user *account.User) (UserPayload, error) {
	var payload UserPayload
	if err := copier.Copy(&payload, user); err != nil {
		return UserPayload{}, fmt.Errorf("failed to map user: %w", err)
	}
	return payload, nil
}

func toProfilePayload(user *account.User) (ProfilePayload, error) {
	var payload ProfilePayload
	if err := copier.Copy(&payload, user); err != nil {
		return ProfilePayload{}, fmt.Errorf("failed to map user: %w", err)
	}
	return payload, nil
}
