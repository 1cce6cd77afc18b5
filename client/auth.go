package client

import (
	"context"
)

// AuthService groups authentication endpoints.
type AuthService struct {
	client *Client
}

// LoginResult is the data payload of a successful login or registration.
type LoginResult struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// Login exchanges credentials for a bearer token and user payload.
func (s *AuthService) Login(ctx context.Context, email, password string) *Envelope {
	return s.client.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
	Referral  string `json:"referral_code,omitempty"`
}

// Register creates a new account.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) *Envelope {
	return s.client.Post(ctx, "/auth/register", req)
}

// Logout invalidates the current token server-side.
func (s *AuthService) Logout(ctx context.Context) *Envelope {
	return s.client.Post(ctx, "/auth/logout", nil)
}

// ForgotPassword triggers a reset email.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) *Envelope {
	return s.client.Post(ctx, "/auth/forgot-password", map[string]string{"email": email})
}

// ResetPassword completes a password reset.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) *Envelope {
	return s.client.Post(ctx, "/auth/reset-password", map[string]string{
		"token":    token,
		"password": password,
	})
}
