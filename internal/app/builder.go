package app

import (
	"fmt"

	"wyckoff/internal/broker"
	"wyckoff/internal/broker/alpaca"
	binanceadapter "wyckoff/internal/broker/binance"
	"wyckoff/internal/broker/oanda"
	"wyckoff/internal/campaign"
	"wyckoff/internal/campaign/gormstore"
	brcfg "wyckoff/internal/config"
	"wyckoff/internal/engine"
	"wyckoff/internal/logger"
	"wyckoff/internal/notify"
	"wyckoff/internal/portfolio/provider"
	"wyckoff/internal/queue"
	"wyckoff/internal/risk"
	"wyckoff/internal/store/auditlog"
	transport "wyckoff/internal/transport/http"
	"wyckoff/internal/validation"
)

// AppBuilder assembles the pipeline from config. Constructor funcs are
// swappable so tests can stub heavyweight collaborators.
type AppBuilder struct {
	cfg *brcfg.Config

	campaignRepoFn func(brcfg.CampaignConfig) (campaign.Repository, error)
	auditStoreFn   func(brcfg.AuditConfig) (*auditlog.Store, error)
	notifierFn     func(brcfg.NotifyConfig) notify.TextNotifier
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *brcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:            cfg,
		campaignRepoFn: buildCampaignRepo,
		auditStoreFn:   buildAuditStore,
		notifierFn:     buildNotifier,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithCampaignRepo overrides the campaign repository collaborator.
func WithCampaignRepo(repo campaign.Repository) AppBuilderOption {
	return func(b *AppBuilder) {
		b.campaignRepoFn = func(brcfg.CampaignConfig) (campaign.Repository, error) { return repo, nil }
	}
}

func (b *AppBuilder) Build() (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	weights, err := loadWeights(cfg.Validation.WeightsPath)
	if err != nil {
		return nil, err
	}
	sigQueue := queue.New(weights)

	registry := validation.NewRegistry()
	registry.Register(&validation.ConfidenceFloor{Min: cfg.Validation.ConfidenceFloor})
	registry.Register(&validation.RewardRiskMinimum{Min: cfg.Validation.MinRMultiple})
	registry.Register(&validation.PriceLevelCoherence{})
	registry.Register(&validation.VolumeConfirmation{MinRatio: cfg.Validation.MinVolumeRatio})
	registry.Register(&validation.PhaseAlignment{})
	orchestrator, err := registry.OrchestratorFor(cfg.Validation.Stages)
	if err != nil {
		return nil, err
	}

	kill := risk.NewKillSwitch()
	gate := risk.NewGate(risk.Limits{
		MaxTradeRiskPct:      cfg.Risk.MaxTradeRiskPct,
		MaxCampaignRiskPct:   cfg.Risk.MaxCampaignRiskPct,
		MaxCorrelatedRiskPct: cfg.Risk.MaxCorrelatedRiskPct,
		MaxHeatPct:           cfg.Risk.MaxHeatPct,
	})
	tracker := risk.NewHeatTracker(risk.HeatThresholds{
		WarningPct:  cfg.Risk.HeatWarningPct,
		CriticalPct: cfg.Risk.HeatCriticalPct,
		ExceededPct: cfg.Risk.MaxHeatPct,
	}, cfg.Risk.AlertCooldown)

	notifier := b.notifierFn(cfg.Notify)
	tracker.SetAlerter(func(state risk.HeatState, heat float64) {
		msg := fmt.Sprintf("Portfolio heat %s: %.1f%%", state, heat)
		if err := notifier.SendText(msg); err != nil {
			logger.Warnf("heat alert delivery failed: %v", err)
		}
	})

	kill.SetChangeHandler(func(active bool, reason string) {
		msg := "Kill switch deactivated, order flow resumed"
		if active {
			msg = fmt.Sprintf("Kill switch ACTIVE: %s", reason)
		}
		if err := notifier.SendText(msg); err != nil {
			logger.Warnf("kill switch alert delivery failed: %v", err)
		}
	})

	router := broker.NewRouter(gate, kill)
	adapters := registerAdapters(router, cfg.Brokers)

	repo, err := b.campaignRepoFn(cfg.Campaigns)
	if err != nil {
		return nil, err
	}
	associator := campaign.NewAssociator(repo)

	audit, err := b.auditStoreFn(cfg.Audit)
	if err != nil {
		return nil, err
	}

	snapProvider := provider.NewAggregator(tracker, adapters...)

	eng, err := engine.New(engine.Options{
		Orchestrator: orchestrator,
		Queue:        sigQueue,
		Associator:   associator,
		Router:       router,
		Provider:     snapProvider,
		Tracker:      tracker,
		Audit:        auditOrNil(audit),
	})
	if err != nil {
		return nil, err
	}

	server, err := transport.NewServer(cfg.App.HTTPAddr, eng, router, tracker, audit)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		engine: eng,
		router: router,
		gate:   gate,
		server: server,
		audit:  audit,
	}, nil
}

func loadWeights(path string) (*queue.WeightTable, error) {
	if path == "" {
		return queue.DefaultWeights(), nil
	}
	return queue.LoadWeights(path)
}

func registerAdapters(router *broker.Router, cfg brcfg.BrokersConfig) []broker.Adapter {
	var adapters []broker.Adapter
	if cfg.Oanda.Enabled {
		a := oanda.New(oanda.Config{
			BaseURL:   cfg.Oanda.BaseURL,
			AccountID: cfg.Oanda.AccountID,
			APIToken:  cfg.Oanda.APIToken,
		})
		router.RegisterAdapter(broker.ClassForex, a)
		adapters = append(adapters, a)
	}
	if cfg.Alpaca.Enabled {
		a := alpaca.New(alpaca.Config{
			BaseURL:   cfg.Alpaca.BaseURL,
			KeyID:     cfg.Alpaca.KeyID,
			SecretKey: cfg.Alpaca.SecretKey,
		})
		router.RegisterAdapter(broker.ClassStock, a)
		adapters = append(adapters, a)
	}
	if cfg.Binance.Enabled {
		a := binanceadapter.New(binanceadapter.Config{
			BaseURL:   cfg.Binance.BaseURL,
			APIKey:    cfg.Binance.APIKey,
			APISecret: cfg.Binance.APISecret,
		})
		router.RegisterAdapter(broker.ClassCrypto, a)
		adapters = append(adapters, a)
	}
	return adapters
}

func buildCampaignRepo(cfg brcfg.CampaignConfig) (campaign.Repository, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return gormstore.New(cfg.DBPath)
}

func buildAuditStore(cfg brcfg.AuditConfig) (*auditlog.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return auditlog.New(cfg.DBPath)
}

func buildNotifier(cfg brcfg.NotifyConfig) notify.TextNotifier {
	if cfg.Telegram.Enabled {
		return notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}
	return notify.Noop{}
}

// auditOrNil keeps a typed-nil *Store from leaking into the AuditStore
// interface.
func auditOrNil(store *auditlog.Store) engine.AuditStore {
	if store == nil {
		return nil
	}
	return store
}
