package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultIdleTimeout is the inactivity window before auto-logout.
const DefaultIdleTimeout = 5 * time.Minute

// IdleWatcher logs the session out after a fixed period without activity.
// It is an owned resource with explicit Start and Stop rather than shared
// module state: a second Start while running returns an error instead of
// racing a shared timer handle.
//
// Two states: active and logged-out. Any Activity call while active resets
// the window; expiry fires the OnIdle callback exactly once and transitions
// to logged-out, after which Activity is ignored until the watcher is
// started again.
type IdleWatcher struct {
	mu sync.Mutex

	timeout time.Duration
	onIdle  func()
	log     zerolog.Logger

	running  bool
	expired  bool
	activity chan struct{}
	done     chan struct{}
}

// IdleWatcherConfig holds watcher configuration.
type IdleWatcherConfig struct {
	// Timeout is the inactivity window. Defaults to 5 minutes.
	Timeout time.Duration
	// OnIdle fires once when the window elapses without activity.
	OnIdle func()
	Logger *zerolog.Logger
}

// NewIdleWatcher creates an idle watcher.
func NewIdleWatcher(cfg IdleWatcherConfig) (*IdleWatcher, error) {
	if cfg.OnIdle == nil {
		return nil, fmt.Errorf("OnIdle callback is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultIdleTimeout
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "idle-watcher").Logger()
	}
	return &IdleWatcher{
		timeout: cfg.Timeout,
		onIdle:  cfg.OnIdle,
		log:     log,
	}, nil
}

// Start begins watching. It returns an error if the watcher is already
// running.
func (w *IdleWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.expired = false
	w.activity = make(chan struct{}, 1)
	w.done = make(chan struct{})
	activity, done := w.activity, w.done
	w.mu.Unlock()

	go w.watch(ctx, activity, done)
	w.log.Debug().Dur("timeout", w.timeout).Msg("started")
	return nil
}

// Stop tears the watcher down without firing the callback. Safe to call more
// than once.
func (w *IdleWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.done)
}

// Activity resets the inactivity window. Calls while stopped or after expiry
// are ignored.
func (w *IdleWatcher) Activity() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running || w.expired {
		return
	}
	select {
	case w.activity <- struct{}{}:
	default:
		// a reset is already pending; one is enough
	}
}

func (w *IdleWatcher) watch(ctx context.Context, activity, done chan struct{}) {
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-done:
			return
		case <-activity:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.timeout)
		case <-timer.C:
			w.expire()
			return
		}
	}
}

func (w *IdleWatcher) expire() {
	w.mu.Lock()
	if !w.running || w.expired {
		w.mu.Unlock()
		return
	}
	w.expired = true
	w.running = false
	close(w.done)
	w.mu.Unlock()

	w.log.Info().Msg("idle timeout reached, logging out")
	w.onIdle()
}
