// Package scheduler runs periodic background tasks, mainly venue status
// polling and portfolio refresh.
package scheduler

import (
	"context"
	"time"

	"wyckoff/internal/logger"
)

// Ticker invokes a task at a fixed interval until its context is done.
type Ticker struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx context.Context
}

func NewTicker(ctx context.Context, name string, interval time.Duration) *Ticker {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Ticker{Name: name, Interval: interval, ctx: ctx}
}

// Start blocks, running task every interval. Call in its own goroutine.
func (t *Ticker) Start(task func(ctx context.Context)) {
	if t == nil || task == nil {
		return
	}
	if t.Interval <= 0 {
		logger.Warnf("Ticker %s: invalid interval=%s, exit", t.Name, t.Interval)
		return
	}
	logger.Infof("Ticker %s: started interval=%s", t.Name, t.Interval)
	if t.RunImmediately {
		task(t.ctx)
	}
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			logger.Infof("Ticker %s: ctx done, exit", t.Name)
			return
		case <-ticker.C:
			task(t.ctx)
		}
	}
}
