package app

import (
	"context"
	"runtime/debug"
	"time"

	"formsapi/internal/util"
	"formsapi/pkg/result"
)

// Payload kinds used to tag successful results.
const (
	KindSession       = "Session"
	KindUser          = "User"
	KindUsersList     = "UsersList"
	KindForm          = "Form"
	KindFormsList     = "FormsList"
	KindQuestion      = "Question"
	KindQuestionsList = "QuestionsList"
	KindResponse      = "Response"
	KindResponsesList = "ResponsesList"
	KindHealth        = "HealthStatus"
	KindSuccess       = "SuccessResult"
)

// run executes fn once and converts its outcome into a Result. Envelope
// errors pass through; anything else, panics included, becomes
// INTERNAL_ERROR and is logged with the operation name.
func run[T any](ctx context.Context, a *App, operation, kind string, fn func() (T, error)) (res result.Result[T]) {
	logger := util.LoggerFromContext(ctx).With("operation", operation)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("operation panicked", "panic", p, "stack", string(debug.Stack()))
			res = result.Fail[T](result.Internal())
		}
		outcome := outcomeOK
		if e := res.Err(); e != nil {
			outcome = string(e.Code)
		}
		a.metrics.observe(operation, outcome, time.Since(start))
	}()

	value, err := fn()
	if err != nil {
		envelope := result.From(err)
		if envelope.Code == result.CodeInternal {
			logger.Error("operation failed", "err", err)
		} else {
			logger.Debug("operation rejected", "code", envelope.Code, "err", err)
		}
		return result.Fail[T](envelope)
	}
	return result.OK(kind, value)
}
