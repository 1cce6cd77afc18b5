package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Transaction is a wallet ledger entry.
type Transaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletService groups wallet and payment endpoints.
type WalletService struct {
	client *Client
}

// Balance fetches the current wallet balance.
func (s *WalletService) Balance(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/payments/wallet/balance")
}

// Deposit initiates a wallet top-up through a payment provider.
func (s *WalletService) Deposit(ctx context.Context, amount float64, method string) *Envelope {
	return s.client.Post(ctx, "/payments/deposit", map[string]any{
		"amount": amount,
		"method": method,
	})
}

// Withdraw requests a payout to the user's bank account.
func (s *WalletService) Withdraw(ctx context.Context, amount float64) *Envelope {
	return s.client.Post(ctx, "/payments/withdraw", map[string]any{"amount": amount})
}

// Transactions lists wallet ledger entries, newest first.
func (s *WalletService) Transactions(ctx context.Context, page, perPage int) *Envelope {
	return s.client.Get(ctx, fmt.Sprintf("/payments/transactions?page=%d&per_page=%d", page, perPage))
}

// ReferralsService groups referral endpoints.
type ReferralsService struct {
	client *Client
}

// Code fetches the caller's referral code.
func (s *ReferralsService) Code(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/referrals/code")
}

// Stats fetches referral counts and earnings.
func (s *ReferralsService) Stats(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/referrals/stats")
}

// CatalogService groups read-only reference data endpoints: saved payment
// credentials, voucher categories, and UI themes.
type CatalogService struct {
	client *Client
}

// Credentials lists the user's saved payment credentials.
func (s *CatalogService) Credentials(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/credentials")
}

// Categories lists voucher categories.
func (s *CatalogService) Categories(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/categories")
}

// Themes lists available themes.
func (s *CatalogService) Themes(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/themes")
}

// Theme fetches one theme by ID.
func (s *CatalogService) Theme(ctx context.Context, id string) *Envelope {
	return s.client.Get(ctx, "/themes/"+url.PathEscape(id))
}
