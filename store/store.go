// Package store holds the client application state: auth session, voucher
// list, and notifications. All mutation goes through dispatched actions
// processed one at a time; consumers subscribe and are notified on change.
// Server-authoritative entities are overwritten wholesale, never merged.
package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/cache"
	"github.com/credosafe/credosafe-go/client"
	"github.com/credosafe/credosafe-go/session"
)

// ActionType names a state transition.
type ActionType string

const (
	ActionLoginSucceeded    ActionType = "auth/loginSucceeded"
	ActionRegisterSucceeded ActionType = "auth/registerSucceeded"
	ActionLogout            ActionType = "auth/logout"
	ActionAuthFailed        ActionType = "auth/failed"
	ActionProfileApplied    ActionType = "auth/profileApplied"
	ActionSettingsApplied   ActionType = "auth/settingsApplied"

	ActionVouchersLoading ActionType = "vouchers/loading"
	ActionVouchersLoaded  ActionType = "vouchers/loaded"
	ActionVouchersFailed  ActionType = "vouchers/failed"
	ActionVoucherUpdated  ActionType = "vouchers/updated"
	ActionVoucherRedeemed ActionType = "vouchers/redeemed"

	ActionNotified  ActionType = "ui/notified"
	ActionDismissed ActionType = "ui/dismissed"
)

// Action is one dispatched state transition.
type Action struct {
	Type    ActionType
	Payload any
	// Err carries the failure of a rejected async operation.
	Err error
	// CacheKey, when set on a fulfilled fetch, routes the payload through
	// the response cache middleware.
	CacheKey string
	CacheTTL time.Duration
}

// LoginRecord is one entry of the persisted login history.
type LoginRecord struct {
	At     time.Time `json:"at"`
	Device string    `json:"device,omitempty"`
}

// SecuritySettings are the persisted security preferences.
type SecuritySettings struct {
	TwoFactorAuth bool `json:"two_factor_auth"`
	LoginAlerts   bool `json:"login_alerts"`
}

// AuthState is the auth slice. IsLoading and Error are transient and never
// persisted.
type AuthState struct {
	User             *client.UserProfile `json:"user"`
	Token            string              `json:"token"`
	IsAuthenticated  bool                `json:"is_authenticated"`
	SecuritySettings SecuritySettings    `json:"security_settings"`
	LoginHistory     []LoginRecord       `json:"login_history"`
	IsLoading        bool                `json:"-"`
	Error            string              `json:"-"`
}

// VoucherState is the voucher slice.
type VoucherState struct {
	Items       []client.Voucher `json:"items"`
	IsLoading   bool             `json:"-"`
	Error       string           `json:"-"`
	LastFetched time.Time        `json:"last_fetched"`
}

// Level grades a notification.
type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a user-facing, dismissable message.
type Notification struct {
	Key     string `json:"key"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// UIState is the notification slice.
type UIState struct {
	Notifications []Notification `json:"notifications"`
}

// State is the complete store state.
type State struct {
	Auth     AuthState
	Vouchers VoucherState
	UI       UIState
}

// Listener receives a state snapshot after each applied action.
type Listener func(State)

// Dispatcher applies an action.
type Dispatcher func(Action)

// Middleware wraps the dispatch path with a cross-cutting side effect.
type Middleware func(next Dispatcher) Dispatcher

// Config holds store configuration.
type Config struct {
	// API is the CredoSafe client used by the store's async operations.
	API *client.Client
	// Sessions, when set, is kept in sync with auth transitions so the
	// persisted token always matches the store.
	Sessions *session.Manager
	// Cache receives fulfilled fetch payloads via the caching middleware
	// and serves reads before network calls. Optional.
	Cache cache.Cache
	// PersistPath, when set, enables Persist/Restore snapshots.
	PersistPath string
	// ExtraMiddleware runs after the built-in timing/audit/cache chain.
	ExtraMiddleware []Middleware
	Logger          *zerolog.Logger
}

// Store is the observable application state container.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int

	dispatch    Dispatcher
	api         *client.Client
	sessions    *session.Manager
	cache       cache.Cache
	persistPath string
	log         zerolog.Logger

	// fetching guards FetchVouchers; set and cleared under mu so a second
	// concurrent call drops out instead of racing the first.
	fetching bool
}

// New creates a store with the built-in middleware chain: timing, audit, and
// response caching, in that order.
func New(cfg Config) *Store {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "store").Logger()
	}

	s := &Store{
		listeners:   make(map[int]Listener),
		api:         cfg.API,
		sessions:    cfg.Sessions,
		cache:       cfg.Cache,
		persistPath: cfg.PersistPath,
		log:         log,
	}

	chain := []Middleware{
		TimingMiddleware(defaultDispatchBudget, log),
		AuditMiddleware(log),
	}
	if cfg.Cache != nil {
		chain = append(chain, CachingMiddleware(cfg.Cache, log))
	}
	chain = append(chain, cfg.ExtraMiddleware...)

	dispatch := Dispatcher(s.apply)
	for i := len(chain) - 1; i >= 0; i-- {
		dispatch = chain[i](dispatch)
	}
	s.dispatch = dispatch

	return s
}

// Dispatch applies an action through the middleware chain. Actions are
// processed one at a time; reducers do not re-enter.
func (s *Store) Dispatch(action Action) {
	s.dispatch(action)
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener invoked with a snapshot after every applied
// action. The returned function unsubscribes.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// apply is the terminal dispatcher: reduce under the lock, then notify
// listeners outside it.
func (s *Store) apply(action Action) {
	s.mu.Lock()
	s.reduce(action)
	snapshot := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (s *Store) reduce(action Action) {
	switch action.Type {
	case ActionLoginSucceeded, ActionRegisterSucceeded:
		result, ok := action.Payload.(client.LoginResult)
		if !ok {
			return
		}
		s.state.Auth.User = result.User
		s.state.Auth.Token = result.Token
		s.state.Auth.IsAuthenticated = result.Token != ""
		s.state.Auth.IsLoading = false
		s.state.Auth.Error = ""
		s.state.Auth.LoginHistory = append(s.state.Auth.LoginHistory, LoginRecord{At: time.Now()})

	case ActionLogout:
		s.state.Auth = AuthState{
			SecuritySettings: s.state.Auth.SecuritySettings,
			LoginHistory:     s.state.Auth.LoginHistory,
		}
		s.state.Vouchers = VoucherState{}

	case ActionAuthFailed:
		s.state.Auth.IsLoading = false
		if action.Err != nil {
			s.state.Auth.Error = action.Err.Error()
		}

	case ActionProfileApplied:
		if user, ok := action.Payload.(*client.UserProfile); ok {
			s.state.Auth.User = user
		}

	case ActionSettingsApplied:
		if settings, ok := action.Payload.(client.UserSettings); ok && s.state.Auth.User != nil {
			user := *s.state.Auth.User
			user.Settings = settings
			s.state.Auth.User = &user
		}

	case ActionVouchersLoading:
		s.state.Vouchers.IsLoading = true
		s.state.Vouchers.Error = ""

	case ActionVouchersLoaded:
		if items, ok := action.Payload.([]client.Voucher); ok {
			s.state.Vouchers.Items = items
			s.state.Vouchers.LastFetched = time.Now()
		}
		s.state.Vouchers.IsLoading = false
		s.state.Vouchers.Error = ""

	case ActionVouchersFailed:
		s.state.Vouchers.IsLoading = false
		if action.Err != nil {
			s.state.Vouchers.Error = action.Err.Error()
		}

	case ActionVoucherUpdated, ActionVoucherRedeemed:
		if voucher, ok := action.Payload.(client.Voucher); ok {
			s.replaceVoucher(voucher)
		}

	case ActionNotified:
		if n, ok := action.Payload.(Notification); ok {
			s.state.UI.Notifications = append(s.state.UI.Notifications, n)
		}

	case ActionDismissed:
		if key, ok := action.Payload.(string); ok {
			// Fresh slice: snapshots already handed to listeners share the
			// old backing array and must not see the filter.
			kept := make([]Notification, 0, len(s.state.UI.Notifications))
			for _, n := range s.state.UI.Notifications {
				if n.Key != key {
					kept = append(kept, n)
				}
			}
			s.state.UI.Notifications = kept
		}
	}
}

// replaceVoucher overwrites the cached voucher wholesale; unknown vouchers
// are appended.
func (s *Store) replaceVoucher(voucher client.Voucher) {
	for i, existing := range s.state.Vouchers.Items {
		if existing.ID == voucher.ID {
			s.state.Vouchers.Items[i] = voucher
			return
		}
	}
	s.state.Vouchers.Items = append(s.state.Vouchers.Items, voucher)
}
