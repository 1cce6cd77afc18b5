package session

import (
	"testing"

	"github.com/credosafe/credosafe-go/client"
)

func TestSession_IsAuthenticatedDerivedFromToken(t *testing.T) {
	if (Session{}).IsAuthenticated() {
		t.Error("empty session IsAuthenticated() = true, want false")
	}
	if !(Session{Token: "abc"}).IsAuthenticated() {
		t.Error("session with token IsAuthenticated() = false, want true")
	}
	// A user payload without a token is not an authenticated session.
	if (Session{User: &client.UserProfile{Email: "a@b.c"}}).IsAuthenticated() {
		t.Error("session with user but no token IsAuthenticated() = true, want false")
	}
}

func TestManager_LoginPersistsToken(t *testing.T) {
	tokens := NewMemoryTokenStore()
	m, err := NewManager(tokens, nil)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	user := &client.UserProfile{ID: "u1", Email: "jane@example.com"}
	if err := m.Login(client.LoginResult{Token: "abc", User: user}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	got := m.Current()
	if !got.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after login, want true")
	}
	if got.Token != "abc" {
		t.Errorf("Token = %q, want %q", got.Token, "abc")
	}
	if got.User == nil || got.User.Email != "jane@example.com" {
		t.Errorf("User = %+v, want jane@example.com", got.User)
	}

	stored, ok := tokens.Get()
	if !ok || stored != "abc" {
		t.Errorf("token store Get() = %q, %v, want %q, true", stored, ok, "abc")
	}
}

func TestManager_LoginWithoutTokenFails(t *testing.T) {
	m, _ := NewManager(NewMemoryTokenStore(), nil)
	if err := m.Login(client.LoginResult{User: &client.UserProfile{}}); err == nil {
		t.Error("Login() with empty token = nil, want error")
	}
	if m.Current().IsAuthenticated() {
		t.Error("session authenticated after failed login")
	}
}

func TestManager_RestoresFromStore(t *testing.T) {
	tokens := NewMemoryTokenStore()
	if err := tokens.Set("persisted"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	m, err := NewManager(tokens, nil)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}

	got := m.Current()
	if !got.IsAuthenticated() {
		t.Error("restored session IsAuthenticated() = false, want true")
	}
	if got.User != nil {
		t.Errorf("restored session User = %+v, want nil until profile refetch", got.User)
	}
}

func TestManager_ClearRemovesToken(t *testing.T) {
	tokens := NewMemoryTokenStore()
	m, _ := NewManager(tokens, nil)
	if err := m.Login(client.LoginResult{Token: "abc"}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if m.Current().IsAuthenticated() {
		t.Error("IsAuthenticated() = true after Clear, want false")
	}
	if _, ok := tokens.Get(); ok {
		t.Error("token store still holds a token after Clear")
	}
}

func TestManager_ApplyProfileOverwrites(t *testing.T) {
	m, _ := NewManager(NewMemoryTokenStore(), nil)
	if err := m.Login(client.LoginResult{Token: "abc", User: &client.UserProfile{FirstName: "Old"}}); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	m.ApplyProfile(&client.UserProfile{FirstName: "New"})
	if got := m.Current().User.FirstName; got != "New" {
		t.Errorf("FirstName = %q after ApplyProfile, want %q", got, "New")
	}
}
