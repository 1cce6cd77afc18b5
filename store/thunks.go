package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/credosafe/credosafe-go/client"
)

// ErrFetchInFlight reports that a voucher fetch was dropped because one is
// already running. The second caller is not queued; the first fetch's result
// serves both.
var ErrFetchInFlight = errors.New("voucher fetch already in flight")

// vouchersCacheKey keys the cached voucher list.
const vouchersCacheKey = "vouchers"

// Login authenticates, establishes the session (persisting the token), and
// applies the result to the auth slice.
func (s *Store) Login(ctx context.Context, email, password string) error {
	env := s.api.Auth().Login(ctx, email, password)
	if err := env.Err(); err != nil {
		s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
		return err
	}

	var result client.LoginResult
	if err := env.Decode(&result); err != nil {
		s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.Login(result); err != nil {
			s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
			return err
		}
	}

	s.Dispatch(Action{Type: ActionLoginSucceeded, Payload: result})
	return nil
}

// Register creates an account and signs the new user in.
func (s *Store) Register(ctx context.Context, req client.RegisterRequest) error {
	env := s.api.Auth().Register(ctx, req)
	if err := env.Err(); err != nil {
		s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
		return err
	}

	var result client.LoginResult
	if err := env.Decode(&result); err != nil {
		s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.Login(result); err != nil {
			s.Dispatch(Action{Type: ActionAuthFailed, Err: err})
			return err
		}
	}

	s.Dispatch(Action{Type: ActionRegisterSucceeded, Payload: result})
	return nil
}

// Logout clears the session and auth slice. The server call is best effort:
// local state is cleared even when the network call fails, so a dead server
// cannot pin a session.
func (s *Store) Logout(ctx context.Context) error {
	env := s.api.Auth().Logout(ctx)

	if s.sessions != nil {
		if err := s.sessions.Clear(); err != nil {
			return err
		}
	}
	s.Dispatch(Action{Type: ActionLogout})

	return env.Err()
}

// FetchVouchers loads the voucher list. A fetch while one is in flight is
// dropped (ErrFetchInFlight). The cache is consulted first; a hit skips the
// network entirely.
func (s *Store) FetchVouchers(ctx context.Context) error {
	// Claim the in-flight slot in one critical section; a concurrent caller
	// must observe the claim, not a stale IsLoading read.
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return ErrFetchInFlight
	}
	s.fetching = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, vouchersCacheKey); err == nil && ok {
			var items []client.Voucher
			if err := json.Unmarshal(data, &items); err == nil {
				s.Dispatch(Action{Type: ActionVouchersLoaded, Payload: items})
				return nil
			}
		}
	}

	s.Dispatch(Action{Type: ActionVouchersLoading})

	env := s.api.Vouchers().List(ctx)
	if err := env.Err(); err != nil {
		s.Dispatch(Action{Type: ActionVouchersFailed, Err: err})
		return err
	}

	var items []client.Voucher
	if err := env.Decode(&items); err != nil {
		s.Dispatch(Action{Type: ActionVouchersFailed, Err: err})
		return err
	}

	s.Dispatch(Action{Type: ActionVouchersLoaded, Payload: items, CacheKey: vouchersCacheKey})
	return nil
}

// Redeem redeems a voucher by code and overwrites the returned entity into
// the list. The voucher cache is invalidated; the next fetch refreshes it.
func (s *Store) Redeem(ctx context.Context, code string) (*client.Voucher, error) {
	env := s.api.Vouchers().Redeem(ctx, code)
	if err := env.Err(); err != nil {
		s.Dispatch(Action{Type: ActionVoucherRedeemed, Err: err})
		return nil, err
	}

	var voucher client.Voucher
	if err := env.Decode(&voucher); err != nil {
		s.Dispatch(Action{Type: ActionVoucherRedeemed, Err: err})
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, vouchersCacheKey)
	}
	s.Dispatch(Action{Type: ActionVoucherRedeemed, Payload: voucher})
	return &voucher, nil
}

// ApplyVoucher overwrites one server-returned voucher into the list. Use for
// transition responses (activate, release, cancel) that return the new full
// entity.
func (s *Store) ApplyVoucher(ctx context.Context, voucher client.Voucher) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, vouchersCacheKey)
	}
	s.Dispatch(Action{Type: ActionVoucherUpdated, Payload: voucher})
}

// UpdateSettings applies the settings optimistically, then confirms with the
// server; on failure the previous settings are restored.
func (s *Store) UpdateSettings(ctx context.Context, settings client.UserSettings) error {
	s.mu.Lock()
	if s.state.Auth.User == nil {
		s.mu.Unlock()
		return fmt.Errorf("no authenticated user")
	}
	previous := s.state.Auth.User.Settings
	s.mu.Unlock()

	s.Dispatch(Action{Type: ActionSettingsApplied, Payload: settings})

	env := s.api.Users().UpdateSettings(ctx, settings)
	if err := env.Err(); err != nil {
		// Roll the optimistic update back.
		s.Dispatch(Action{Type: ActionSettingsApplied, Payload: previous})
		return err
	}

	// The server's copy is authoritative; apply it wholesale when returned.
	var confirmed client.UserSettings
	if decodeErr := env.Decode(&confirmed); decodeErr == nil && len(env.Data) > 0 {
		s.Dispatch(Action{Type: ActionSettingsApplied, Payload: confirmed})
	}
	return nil
}

// RefreshProfile refetches the current user and overwrites the auth slice's
// user wholesale.
func (s *Store) RefreshProfile(ctx context.Context) error {
	env := s.api.Users().Current(ctx)
	if err := env.Err(); err != nil {
		return err
	}

	var user client.UserProfile
	if err := env.Decode(&user); err != nil {
		return err
	}

	if s.sessions != nil {
		s.sessions.ApplyProfile(&user)
	}
	s.Dispatch(Action{Type: ActionProfileApplied, Payload: &user})
	return nil
}
