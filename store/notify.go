package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/credosafe/credosafe-go/client"
)

// NotifyOptions tunes RunNotified.
type NotifyOptions struct {
	// Key identifies the loading notification. Generated when empty.
	Key string
	// LoadingMessage is shown while the call runs.
	LoadingMessage string
	// SuccessMessage is shown on success unless SuppressSuccess is set.
	SuccessMessage  string
	SuppressSuccess bool
}

// RunNotified wraps an API call with user-facing notifications: a loading
// notification shown immediately, a success or error notification on
// completion, and guaranteed dismissal of the loading notification exactly
// once on every path, including panics.
func (s *Store) RunNotified(ctx context.Context, op func(ctx context.Context) *client.Envelope, opts NotifyOptions) *client.Envelope {
	key := opts.Key
	if key == "" {
		key = uuid.NewString()
	}
	loading := opts.LoadingMessage
	if loading == "" {
		loading = "Working..."
	}

	s.Dispatch(Action{Type: ActionNotified, Payload: Notification{
		Key:     key,
		Level:   LevelLoading,
		Message: loading,
	}})
	defer s.Dispatch(Action{Type: ActionDismissed, Payload: key})

	env := op(ctx)

	if env.Success {
		if !opts.SuppressSuccess {
			msg := opts.SuccessMessage
			if msg == "" {
				msg = "Done."
			}
			s.Dispatch(Action{Type: ActionNotified, Payload: Notification{
				Key:     key + ":done",
				Level:   LevelSuccess,
				Message: msg,
			}})
		}
		return env
	}

	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	if msg == "" {
		msg = "Request failed."
	}
	s.Dispatch(Action{Type: ActionNotified, Payload: Notification{
		Key:     key + ":error",
		Level:   LevelError,
		Message: msg,
	}})
	return env
}

// Dismiss removes a notification by key.
func (s *Store) Dismiss(key string) {
	s.Dispatch(Action{Type: ActionDismissed, Payload: key})
}
