package app

import (
	"context"

	"formsapi/pkg/result"
)

const healthMessage = "Forms API is running"

// Health reports liveness; it needs no identity and touches no storage.
func (a *App) Health(ctx context.Context) result.Result[Health] {
	return run(ctx, a, "health", KindHealth, func() (Health, error) {
		return Health{
			Status:    "OK",
			Message:   healthMessage,
			Timestamp: a.now(),
			Version:   a.version,
		}, nil
	})
}
