package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ── Logging ───────────────────────────────────────────────────────────────────

// LoggingMiddleware logs every action at debug level once it has been handled.
func LoggingMiddleware(log logrus.FieldLogger) Middleware {
	return func(API) func(Handler) Handler {
		return func(next Handler) Handler {
			return func(action Action) error {
				start := time.Now()
				err := next(action)

				entry := log.WithFields(logrus.Fields{
					"action":   action.Type,
					"source":   action.Meta.Source,
					"id":       action.Meta.ID,
					"duration": time.Since(start),
				})
				if err != nil {
					entry.WithError(err).Warn("store: action failed")
					return err
				}
				entry.Debug("store: action")
				return nil
			}
		}
	}
}

// ── Error recording ───────────────────────────────────────────────────────────

// Field names written by ErrorRecorder.
const (
	LastErrorKey  = "lastError"
	ErrorCountKey = "errorCount"
)

// ErrorRecorder catches errors and panics raised downstream (later
// middleware, the reducer, notification callbacks) and records them in the
// state as lastError and errorCount instead of returning them. Dispatch then
// reports success.
func ErrorRecorder() Middleware {
	return func(api API) func(Handler) Handler {
		return func(next Handler) Handler {
			return func(action Action) (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic handling %s: %v", action.Type, r)
					}
					if err != nil {
						count, _ := api.GetState()[ErrorCountKey].(int)
						api.SetState(State{LastErrorKey: err.Error(), ErrorCountKey: count + 1})
						err = nil
					}
				}()
				return next(action)
			}
		}
	}
}

// ── Throttling ────────────────────────────────────────────────────────────────

// Throttle drops actions of the given types that arrive faster than limit
// per second, with bursts of up to burst. Each type has its own bucket.
// Dropped actions return nil. With no types every action is throttled.
//
//	st.AddMiddleware(store.Throttle(2, 1, "NETWORK_STATUS_CHANGED"))
func Throttle(limit rate.Limit, burst int, types ...string) Middleware {
	watched := make(map[string]bool, len(types))
	for _, t := range types {
		watched[t] = true
	}
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	allow := func(action Action) bool {
		if len(watched) > 0 && !watched[action.Type] {
			return true
		}
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[action.Type]
		if !ok {
			l = rate.NewLimiter(limit, burst)
			limiters[action.Type] = l
		}
		return l.AllowN(action.Meta.Timestamp, 1)
	}

	return func(API) func(Handler) Handler {
		return func(next Handler) Handler {
			return func(action Action) error {
				if !allow(action) {
					return nil
				}
				return next(action)
			}
		}
	}
}

// ── Instrumentation ───────────────────────────────────────────────────────────

// DispatchObserver receives the outcome of each dispatch.
type DispatchObserver interface {
	ObserveDispatch(actionType string, d time.Duration, err error)
}

// Instrument reports every dispatch to obs.
func Instrument(obs DispatchObserver) Middleware {
	return func(API) func(Handler) Handler {
		return func(next Handler) Handler {
			return func(action Action) error {
				start := time.Now()
				err := next(action)
				obs.ObserveDispatch(action.Type, time.Since(start), err)
				return err
			}
		}
	}
}
