package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// =============================================================================
// Voucher Types
// =============================================================================

// VoucherType identifies the kind of value instrument.
type VoucherType string

const (
	VoucherWorkOrder      VoucherType = "work_order"
	VoucherPurchaseEscrow VoucherType = "purchase_escrow"
	VoucherGiftCard       VoucherType = "gift_card"
	VoucherPrepaid        VoucherType = "prepaid"
)

// Valid reports whether the voucher type is one of the known kinds.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherWorkOrder, VoucherPurchaseEscrow, VoucherGiftCard, VoucherPrepaid:
		return true
	}
	return false
}

// ParseVoucherType converts a wire string into a VoucherType.
func ParseVoucherType(s string) (VoucherType, error) {
	if t := VoucherType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("unknown voucher type: %q", s)
}

// VoucherStatus is the server-owned lifecycle status of a voucher. The client
// never derives transitions; it displays what the server returns.
type VoucherStatus string

const (
	VoucherPending   VoucherStatus = "pending"
	VoucherActive    VoucherStatus = "active"
	VoucherAvailable VoucherStatus = "available"
	VoucherCompleted VoucherStatus = "completed"
	VoucherCancelled VoucherStatus = "cancelled"
)

// Valid reports whether the status is one the server is known to emit.
func (s VoucherStatus) Valid() bool {
	switch s {
	case VoucherPending, VoucherActive, VoucherAvailable, VoucherCompleted, VoucherCancelled:
		return true
	}
	return false
}

// ParseVoucherStatus converts a wire string into a VoucherStatus.
func ParseVoucherStatus(s string) (VoucherStatus, error) {
	if status := VoucherStatus(s); status.Valid() {
		return status, nil
	}
	return "", fmt.Errorf("unknown voucher status: %q", s)
}

// MilestoneStatus is the lifecycle status of a work-order milestone.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneAvailable MilestoneStatus = "available"
	MilestoneCompleted MilestoneStatus = "completed"
)

// Valid reports whether the milestone status is a known value.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneAvailable, MilestoneCompleted:
		return true
	}
	return false
}

// ParseMilestoneStatus converts a wire string into a MilestoneStatus.
func ParseMilestoneStatus(s string) (MilestoneStatus, error) {
	if status := MilestoneStatus(s); status.Valid() {
		return status, nil
	}
	return "", fmt.Errorf("unknown milestone status: %q", s)
}

// Milestone is a partial-release unit of a work-order voucher.
type Milestone struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Percentage float64         `json:"percentage"`
	Amount     float64         `json:"amount"`
	Status     MilestoneStatus `json:"status"`
}

// Voucher is the server-owned voucher entity. All fields are authoritative
// from the server; updates overwrite the cached copy wholesale.
type Voucher struct {
	ID              string        `json:"id"`
	Type            VoucherType   `json:"type"`
	Status          VoucherStatus `json:"status"`
	VoucherCode     string        `json:"voucher_code"`
	Title           string        `json:"title,omitempty"`
	Description     string        `json:"description,omitempty"`
	TotalAmount     float64       `json:"total_amount"`
	AvailableAmount float64       `json:"available_amount"`
	Milestones      []Milestone   `json:"milestones,omitempty"`
	DisputeStatus   string        `json:"dispute_status,omitempty"`
	DisputeReason   string        `json:"dispute_reason,omitempty"`
	RecipientEmail  string        `json:"recipient_email,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// MilestoneTotal sums milestone percentages for summary display. Display math
// only; amounts and percentages themselves come from the server.
func MilestoneTotal(milestones []Milestone) float64 {
	var total float64
	for _, m := range milestones {
		total += m.Percentage
	}
	return total
}

// =============================================================================
// Voucher Operations
// =============================================================================

// VouchersService groups voucher endpoints. It encodes no business rules:
// which milestone releases next, whether a cancel is allowed, and every other
// transition is decided by the server, which returns the new full entity.
type VouchersService struct {
	client *Client
}

// CreateVoucherRequest is the payload for creating any voucher type.
type CreateVoucherRequest struct {
	Type           VoucherType        `json:"type"`
	Title          string             `json:"title,omitempty"`
	Description    string             `json:"description,omitempty"`
	TotalAmount    float64            `json:"total_amount"`
	RecipientEmail string             `json:"recipient_email,omitempty"`
	Milestones     []MilestoneRequest `json:"milestones,omitempty"`
}

// MilestoneRequest describes a milestone at creation time.
type MilestoneRequest struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Create creates a voucher of any type.
func (s *VouchersService) Create(ctx context.Context, req CreateVoucherRequest) *Envelope {
	return s.client.Post(ctx, "/vouchers", req)
}

// List fetches the caller's vouchers.
func (s *VouchersService) List(ctx context.Context) *Envelope {
	return s.client.Get(ctx, "/vouchers")
}

// Get fetches a single voucher by ID.
func (s *VouchersService) Get(ctx context.Context, id string) *Envelope {
	return s.client.Get(ctx, "/vouchers/"+url.PathEscape(id))
}

// Search looks a voucher up by its code.
func (s *VouchersService) Search(ctx context.Context, code string) *Envelope {
	return s.client.Get(ctx, "/vouchers/search/"+url.PathEscape(code))
}

// Fund pays the voucher's total amount into escrow.
func (s *VouchersService) Fund(ctx context.Context, id string, paymentMethod string) *Envelope {
	return s.client.Post(ctx, "/vouchers/fund", map[string]string{
		"voucherId":     id,
		"paymentMethod": paymentMethod,
	})
}

// Activate transitions a funded voucher to active.
func (s *VouchersService) Activate(ctx context.Context, id string) *Envelope {
	return s.client.Post(ctx, "/vouchers/activate", map[string]string{"voucherId": id})
}

// Redeem redeems a voucher by code.
func (s *VouchersService) Redeem(ctx context.Context, code string) *Envelope {
	return s.client.Post(ctx, "/vouchers/redeem", map[string]string{"voucher_code": code})
}

// ReleaseMilestone asks the server to release the next milestone. The client
// has no notion of which milestone that is.
func (s *VouchersService) ReleaseMilestone(ctx context.Context, id string) *Envelope {
	return s.client.Post(ctx, "/vouchers/release-milestone", map[string]string{"voucherId": id})
}

// Cancel requests cancellation of a voucher.
func (s *VouchersService) Cancel(ctx context.Context, id, reason string) *Envelope {
	return s.client.Post(ctx, "/vouchers/cancel", map[string]string{
		"voucherId": id,
		"reason":    reason,
	})
}

// ConfirmCancel confirms a pending cancellation (counterparty approval).
func (s *VouchersService) ConfirmCancel(ctx context.Context, id string) *Envelope {
	return s.client.Post(ctx, "/vouchers/confirm-cancel", map[string]string{"voucherId": id})
}

// Dispute opens a dispute on a voucher.
func (s *VouchersService) Dispute(ctx context.Context, id, reason string) *Envelope {
	return s.client.Post(ctx, "/vouchers/dispute", map[string]string{
		"voucherId": id,
		"reason":    reason,
	})
}

// DisputeStatus fetches the dispute state of a voucher.
func (s *VouchersService) DisputeStatus(ctx context.Context, id string) *Envelope {
	return s.client.Get(ctx, fmt.Sprintf("/vouchers/%s/dispute", url.PathEscape(id)))
}
