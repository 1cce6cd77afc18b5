package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticTokens string

func (s staticTokens) Get() (string, bool) { return string(s), s != "" }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c, server
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() with empty BaseURL should fail")
	}
}

func TestDo_PassThroughEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":"v1"},"message":"ok"}`))
	})

	env := c.Get(context.Background(), "/vouchers/v1")
	if !env.Success {
		t.Fatalf("Success = false, want true (error: %s)", env.Error)
	}
	if env.Message != "ok" {
		t.Errorf("Message = %q, want %q", env.Message, "ok")
	}
	var data struct {
		ID string `json:"id"`
	}
	if err := env.Decode(&data); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if data.ID != "v1" {
		t.Errorf("data.ID = %q, want %q", data.ID, "v1")
	}
}

func TestDo_PassThroughFailedEnvelope(t *testing.T) {
	// A 2xx body that itself says success:false passes through unchanged.
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"message":"insufficient funds"}`))
	})

	env := c.Post(context.Background(), "/vouchers/fund", map[string]string{"voucherId": "v1"})
	if env.Success {
		t.Fatal("Success = true, want false")
	}
	if err := env.Err(); err == nil {
		t.Fatal("Err() = nil, want error")
	}
	if env.Message != "insufficient funds" {
		t.Errorf("Message = %q, want %q", env.Message, "insufficient funds")
	}
}

func TestDo_WrapsBareBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"v1"},{"id":"v2"}]`))
	})

	env := c.Get(context.Background(), "/vouchers")
	if !env.Success {
		t.Fatalf("Success = false, want true")
	}

	var items []map[string]string
	if err := env.Decode(&items); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
}

func TestDo_NotFoundUsesServerMessage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Voucher not found"}`))
	})

	env := c.Get(context.Background(), "/vouchers/search/XYZ")
	if env.Success {
		t.Fatal("Success = true, want false")
	}
	if env.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", env.Status)
	}
	if env.Error != "Voucher not found" {
		t.Errorf("Error = %q, want %q", env.Error, "Voucher not found")
	}
}

func TestDo_StatusFallbackMessages(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusUnauthorized, "Your session has expired. Please sign in again."},
		{http.StatusForbidden, "You do not have permission to perform this action."},
		{http.StatusTooManyRequests, "Too many requests. Please wait a moment and try again."},
		{http.StatusInternalServerError, "The server encountered an error. Please try again later."},
	}

	for _, tc := range tests {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		env := c.Get(context.Background(), "/x")
		if env.Success {
			t.Errorf("status %d: Success = true, want false", tc.status)
		}
		if env.Error != tc.want {
			t.Errorf("status %d: Error = %q, want %q", tc.status, env.Error, tc.want)
		}
	}
}

func TestDo_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // force a connection error

	c, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	env := c.Get(context.Background(), "/vouchers")
	if env.Success {
		t.Fatal("Success = true, want false")
	}
	if env.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport failure", env.Status)
	}
	if env.Error == "" {
		t.Error("Error is empty, want transport error text")
	}
}

func TestDo_NonJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	})

	env := c.Get(context.Background(), "/ping")
	if !env.Success {
		t.Fatalf("Success = false, want true")
	}
	var text string
	if err := env.Decode(&text); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if text != "pong" {
		t.Errorf("text = %q, want %q", text, "pong")
	}
}

func TestDo_BearerTokenInjection(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL, Tokens: staticTokens("abc")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	c.Get(context.Background(), "/users/me")
	if got != "Bearer abc" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc")
	}
}

func TestDo_NoTokenProceedsUnauthenticated(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c, err := New(Config{BaseURL: server.URL, Tokens: staticTokens("")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	env := c.Get(context.Background(), "/categories")
	if !env.Success {
		t.Fatalf("Success = false, want true")
	}
	if got != "" {
		t.Errorf("Authorization = %q, want empty", got)
	}
}

func TestDo_RequestBodyAndHeaders(t *testing.T) {
	var contentType string
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c, _ := New(Config{BaseURL: server.URL})
	c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.com"})

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if body["email"] != "a@b.com" {
		t.Errorf("body.email = %q, want a@b.com", body["email"])
	}
}

func TestMilestoneTotal(t *testing.T) {
	milestones := []Milestone{
		{Percentage: 50},
		{Percentage: 50},
	}
	if got := MilestoneTotal(milestones); got != 100 {
		t.Errorf("MilestoneTotal() = %v, want 100", got)
	}
	if got := MilestoneTotal(nil); got != 0 {
		t.Errorf("MilestoneTotal(nil) = %v, want 0", got)
	}
}

func TestVoucherType_Valid(t *testing.T) {
	for _, vt := range []VoucherType{VoucherWorkOrder, VoucherPurchaseEscrow, VoucherGiftCard, VoucherPrepaid} {
		if !vt.Valid() {
			t.Errorf("%q.Valid() = false, want true", vt)
		}
	}
	if VoucherType("lottery").Valid() {
		t.Error(`VoucherType("lottery").Valid() = true, want false`)
	}
}

func TestParseVoucherType(t *testing.T) {
	vt, err := ParseVoucherType("gift_card")
	if err != nil {
		t.Fatalf("ParseVoucherType() error: %v", err)
	}
	if vt != VoucherGiftCard {
		t.Errorf("ParseVoucherType() = %q, want %q", vt, VoucherGiftCard)
	}
	if _, err := ParseVoucherType("lottery"); err == nil {
		t.Error(`ParseVoucherType("lottery") = nil, want error`)
	}
}

func TestParseVoucherStatus(t *testing.T) {
	for _, status := range []VoucherStatus{VoucherPending, VoucherActive, VoucherAvailable, VoucherCompleted, VoucherCancelled} {
		got, err := ParseVoucherStatus(string(status))
		if err != nil {
			t.Errorf("ParseVoucherStatus(%q) error: %v", status, err)
		}
		if got != status {
			t.Errorf("ParseVoucherStatus(%q) = %q", status, got)
		}
	}
	if _, err := ParseVoucherStatus("frozen"); err == nil {
		t.Error(`ParseVoucherStatus("frozen") = nil, want error`)
	}
}

func TestParseMilestoneStatus(t *testing.T) {
	got, err := ParseMilestoneStatus("available")
	if err != nil {
		t.Fatalf("ParseMilestoneStatus() error: %v", err)
	}
	if got != MilestoneAvailable {
		t.Errorf("ParseMilestoneStatus() = %q, want %q", got, MilestoneAvailable)
	}
	if _, err := ParseMilestoneStatus("skipped"); err == nil {
		t.Error(`ParseMilestoneStatus("skipped") = nil, want error`)
	}
}

func TestParseConversationStatus(t *testing.T) {
	got, err := ParseConversationStatus("resolved")
	if err != nil {
		t.Fatalf("ParseConversationStatus() error: %v", err)
	}
	if got != ConversationResolved {
		t.Errorf("ParseConversationStatus() = %q, want %q", got, ConversationResolved)
	}
	if _, err := ParseConversationStatus("archived"); err == nil {
		t.Error(`ParseConversationStatus("archived") = nil, want error`)
	}
}

func TestSenderType_Valid(t *testing.T) {
	for _, st := range []SenderType{SenderAdmin, SenderVoucherOwner, SenderVoucherRecipient, SenderUser} {
		if !st.Valid() {
			t.Errorf("%q.Valid() = false, want true", st)
		}
	}
	if SenderType("bot").Valid() {
		t.Error(`SenderType("bot").Valid() = true, want false`)
	}
}
