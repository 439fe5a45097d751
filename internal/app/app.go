// Package app assembles and runs the pipeline.
package app

import (
	"context"
	"time"

	"wyckoff/internal/broker"
	brcfg "wyckoff/internal/config"
	"wyckoff/internal/engine"
	"wyckoff/internal/logger"
	"wyckoff/internal/risk"
	"wyckoff/internal/scheduler"
	"wyckoff/internal/store/auditlog"
	transport "wyckoff/internal/transport/http"
)

type App struct {
	cfg    *brcfg.Config
	engine *engine.Engine
	router *broker.Router
	gate   *risk.Gate
	server *transport.Server
	audit  *auditlog.Store
}

func NewApp(cfg *brcfg.Config) (*App, error) {
	return buildAppWithWire(cfg)
}

// Engine exposes the pipeline for direct submission (tests, CLI tools).
func (a *App) Engine() *engine.Engine { return a.engine }

// Run starts everything and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context, cfgPath string) error {
	a.engine.Start()
	defer a.engine.Stop()

	if err := a.server.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("App: http shutdown: %v", err)
		}
	}()

	if a.audit != nil {
		defer func() {
			if err := a.audit.Close(); err != nil {
				logger.Warnf("App: audit store close: %v", err)
			}
		}()
	}

	poll := scheduler.NewTicker(ctx, "venue-status", time.Minute)
	poll.RunImmediately = true
	go poll.Start(func(tickCtx context.Context) {
		status := a.router.PollVenueStatus(tickCtx)
		for venue, ok := range status {
			if !ok {
				logger.Warnf("App: venue %s is not reachable", venue)
			}
		}
	})

	if cfgPath != "" {
		go func() {
			err := brcfg.Watch(ctx, cfgPath, func(next *brcfg.Config) {
				a.gate.UpdateLimits(risk.Limits{
					MaxTradeRiskPct:      next.Risk.MaxTradeRiskPct,
					MaxCampaignRiskPct:   next.Risk.MaxCampaignRiskPct,
					MaxCorrelatedRiskPct: next.Risk.MaxCorrelatedRiskPct,
					MaxHeatPct:           next.Risk.MaxHeatPct,
				})
			})
			if err != nil && ctx.Err() == nil {
				logger.Warnf("App: config watcher stopped: %v", err)
			}
		}()
	}

	logger.Infof("App: running (env=%s)", a.cfg.App.Env)
	<-ctx.Done()
	logger.Infof("App: shutting down")
	return nil
}
