package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/cache"
)

// defaultDispatchBudget is one frame at 60Hz. Exceeding it is a heuristic
// performance signal, not an enforced limit.
const defaultDispatchBudget = 16 * time.Millisecond

// TimingMiddleware measures the reducer-plus-listener pass and warns when an
// action exceeds the budget.
func TimingMiddleware(budget time.Duration, log zerolog.Logger) Middleware {
	if budget == 0 {
		budget = defaultDispatchBudget
	}
	return func(next Dispatcher) Dispatcher {
		return func(action Action) {
			start := time.Now()
			next(action)
			if elapsed := time.Since(start); elapsed > budget {
				log.Warn().
					Str("action", string(action.Type)).
					Dur("elapsed", elapsed).
					Dur("budget", budget).
					Msg("slow dispatch")
			}
		}
	}
}

// auditedActions is the fixed allow-list of security-sensitive transitions.
var auditedActions = map[ActionType]bool{
	ActionLoginSucceeded:    true,
	ActionRegisterSucceeded: true,
	ActionLogout:            true,
	ActionVoucherRedeemed:   true,
}

// AuditMiddleware logs a structured record for sensitive actions. Log-only;
// nothing is transmitted.
func AuditMiddleware(log zerolog.Logger) Middleware {
	return func(next Dispatcher) Dispatcher {
		return func(action Action) {
			if auditedActions[action.Type] {
				log.Info().
					Str("action", string(action.Type)).
					Time("at", time.Now()).
					Bool("failed", action.Err != nil).
					Msg("audit")
			}
			next(action)
		}
	}
}

// CachingMiddleware writes fulfilled payloads carrying a cache key through
// the response cache. Reads happen in the store's fetch methods against the
// same cache component, so key format and TTL checks live in one place.
func CachingMiddleware(c cache.Cache, log zerolog.Logger) Middleware {
	return func(next Dispatcher) Dispatcher {
		return func(action Action) {
			next(action)
			if action.CacheKey == "" || action.Err != nil {
				return
			}
			data, err := json.Marshal(action.Payload)
			if err != nil {
				log.Warn().Str("key", action.CacheKey).Err(err).Msg("cache marshal")
				return
			}
			if err := c.Set(context.Background(), action.CacheKey, data, action.CacheTTL); err != nil {
				log.Warn().Str("key", action.CacheKey).Err(err).Msg("cache write")
			}
		}
	}
}
