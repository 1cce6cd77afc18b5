package client

import (
	"context"
)

// UserProfile is the server-owned user record. The client never mutates it
// directly; changes round-trip through the server and are written back
// wholesale.
type UserProfile struct {
	ID        string       `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Location  string       `json:"location,omitempty"`
	AvatarURL string       `json:"avatar_url,omitempty"`
	Wallet    WalletInfo   `json:"wallet"`
	Settings  UserSettings `json:"settings"`
}

// WalletInfo is the wallet summary embedded in a profile.
type WalletInfo struct {
	Balance float64 `json:"balance"`
}

// UserSettings holds notification and security preferences.
type UserSettings struct {
	PushNotifications        bool   `json:"push_notifications"`
	EmailAlerts              bool   `json:"email_alerts"`
	TransactionNotifications bool   `json:"transaction_notifications"`
	EmailPreferences         string `json:"email_preferences,omitempty"`
	TwoFactorAuth            bool   `json:"two_factor_auth"`
}

// UsersService groups user profile endpoints.
type UsersService struct {
	client *Client
}

// Current fetches the authenticated user's profile.
func (s *UsersService) Current(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/users/me")
}

// UpdateProfile writes the whole profile back; partial updates are a server
// concern.
func (s *UsersService) UpdateProfile(ctx context.Context, profile UserProfile) *Envelope {
	return s.client.Put(ctx, "/users/profile", profile)
}

// UpdateSettings writes the whole settings object back.
func (s *UsersService) UpdateSettings(ctx context.Context, settings UserSettings) *Envelope {
	return s.client.Put(ctx, "/users/settings", settings)
}
