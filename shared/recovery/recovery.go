package recovery

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/ticketforge/ticketing-api/shared/logging"
)

// Go runs fn in a goroutine and turns panics into logged, reported errors
// instead of crashing the process. Used for the long-lived background
// consumers started from main.
func Go(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logging.Default().
					WithField("goroutine", name).
					WithField("recovered", r).
					Error("panic in background goroutine")

				if sentry.CurrentHub() != nil {
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetLevel(sentry.LevelFatal)
						scope.SetContext("goroutine", map[string]interface{}{
							"name":      name,
							"recovered": r,
							"stack":     string(stack),
						})
						sentry.CaptureException(fmt.Errorf("panic in %s: %v", name, r))
					})
				}
			}
		}()

		fn(ctx)
	}()
}
