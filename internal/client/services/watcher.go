package services

import (
	"context"
	"time"
)

// StartOnlineWatcher polls the server's ping endpoint on the given interval
// and feeds the result into SetOnline. It blocks until ctx is cancelled, so
// callers run it in a goroutine. The first probe fires immediately.
func (e *Engine) StartOnlineWatcher(ctx context.Context, interval time.Duration) {
	e.probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.probe(ctx)
		}
	}
}

func (e *Engine) probe(ctx context.Context) {
	err := e.api.Ping(ctx)
	e.SetOnline(err == nil)
}
