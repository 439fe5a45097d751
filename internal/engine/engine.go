// Package engine drives each signal through the full decision path:
// validation, prioritization, campaign association, risk gating and
// dispatch. A single event loop processes signals sequentially so no stage
// can observe a signal that skipped an earlier one.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wyckoff/internal/broker"
	"wyckoff/internal/campaign"
	"wyckoff/internal/logger"
	"wyckoff/internal/portfolio"
	"wyckoff/internal/queue"
	"wyckoff/internal/risk"
	"wyckoff/internal/signal"
	"wyckoff/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the per-signal audit record produced at the end of the path.
type Outcome struct {
	SignalID   string
	Symbol     string
	Pattern    string
	CampaignID string
	Verdict    validation.Verdict
	Report     *broker.ExecutionReport
	Reason     string
	Timestamp  time.Time
}

// AuditStore persists chains and outcomes. It is optional; a nil store
// means decisions live only in the logs.
type AuditStore interface {
	RecordChain(ctx context.Context, chain *validation.Chain) error
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// Engine is the single consumer that owns the queue's pop side.
type Engine struct {
	orchestrator *validation.Orchestrator
	queue        *queue.SignalQueue
	associator   *campaign.Associator
	router       *broker.Router
	provider     portfolio.Provider
	tracker      *risk.HeatTracker
	audit        AuditStore

	stageData func(*signal.Signal) *validation.StageContext

	sigCh  chan *signal.Signal
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type Options struct {
	Orchestrator *validation.Orchestrator
	Queue        *queue.SignalQueue
	Associator   *campaign.Associator
	Router       *broker.Router
	Provider     portfolio.Provider
	Tracker      *risk.HeatTracker
	Audit        AuditStore

	// StageData optionally enriches the validation context with volume and
	// phase inputs from market-data collaborators.
	StageData func(*signal.Signal) *validation.StageContext
}

func New(opts Options) (*Engine, error) {
	if opts.Orchestrator == nil {
		return nil, fmt.Errorf("engine needs a validation orchestrator")
	}
	if opts.Queue == nil {
		return nil, fmt.Errorf("engine needs a signal queue")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("engine needs a broker router")
	}
	return &Engine{
		orchestrator: opts.Orchestrator,
		queue:        opts.Queue,
		associator:   opts.Associator,
		router:       opts.Router,
		provider:     opts.Provider,
		tracker:      opts.Tracker,
		audit:        opts.Audit,
		stageData:    opts.StageData,
		sigCh:        make(chan *signal.Signal, 64),
		stopCh:       make(chan struct{}),
	}, nil
}

func (e *Engine) Start() {
	e.wg.Add(1)
	go e.runLoop()
}

func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

// Submit hands a detected signal to the engine. Safe for concurrent
// producers.
func (e *Engine) Submit(s *signal.Signal) error {
	if s == nil {
		return fmt.Errorf("nil signal")
	}
	select {
	case <-e.stopCh:
		return fmt.Errorf("engine is stopped")
	default:
	}
	select {
	case e.sigCh <- s:
		return nil
	case <-e.stopCh:
		return fmt.Errorf("engine is stopped")
	}
}

// QueueDepth reports pending signals, for the ops surface.
func (e *Engine) QueueDepth() int { return e.queue.Len() }

func (e *Engine) runLoop() {
	defer e.wg.Done()
	ctx := context.Background()
	for {
		select {
		case <-e.stopCh:
			return
		case s := <-e.sigCh:
			e.intake(ctx, s)
			e.drain(ctx)
		}
	}
}

// intake validates one signal and queues it if it may proceed.
func (e *Engine) intake(ctx context.Context, s *signal.Signal) {
	sc := e.stageContext(s)
	chain := e.orchestrator.Run(ctx, sc)
	if e.audit != nil {
		if err := e.audit.RecordChain(ctx, chain); err != nil {
			logger.Warnf("Engine: recording chain for %s failed: %v", s.ID, err)
		}
	}
	if !chain.Passed() {
		s.Status = signal.StatusRejected
		e.record(ctx, Outcome{
			SignalID:  s.ID,
			Symbol:    s.Symbol,
			Pattern:   string(s.Pattern),
			Verdict:   chain.Overall(),
			Reason:    failReason(chain),
			Timestamp: time.Now().UTC(),
		})
		return
	}
	e.queue.Push(s)
}

// drain pops queued signals in priority order and executes each.
func (e *Engine) drain(ctx context.Context) {
	for {
		// Pick up any signals that arrived while processing, so they
		// compete on priority instead of arrival order.
		for {
			select {
			case s := <-e.sigCh:
				e.intake(ctx, s)
				continue
			default:
			}
			break
		}
		s := e.queue.Pop()
		if s == nil {
			return
		}
		e.process(ctx, s)
	}
}

func (e *Engine) process(ctx context.Context, s *signal.Signal) {
	var camp *campaign.Campaign
	if e.associator != nil {
		var err error
		camp, err = e.associator.Associate(ctx, s)
		if err != nil {
			logger.Warnf("Engine: campaign association for %s failed: %v", s.ID, err)
		}
	}

	snap := e.snapshot(ctx)
	order := orderFromSignal(s)
	req := e.checkRequest(s, camp, snap)
	report := e.router.RouteOrder(ctx, order, snap, req)

	outcome := Outcome{
		SignalID:   s.ID,
		Symbol:     s.Symbol,
		Pattern:    string(s.Pattern),
		CampaignID: s.CampaignID,
		Verdict:    validation.VerdictPass,
		Report:     &report,
		Timestamp:  time.Now().UTC(),
	}
	if report.Status == broker.StatusRejected {
		s.Status = signal.StatusRejected
		outcome.Reason = report.Reason
	} else {
		if e.tracker != nil {
			if camp != nil {
				// camp.TotalRisk holds the campaign's prior entries; the
				// tracker replaces per id, so it must be given the
				// cumulative figure, not just this entry's risk.
				e.tracker.AddCampaignRisk(camp.ID, camp.TotalRisk.Add(s.RiskAmount()), snap.Equity)
			} else {
				// An unassociated fill still carries open risk; track it
				// under the signal's own id so heat stays complete.
				e.tracker.AddCampaignRisk(s.ID, s.RiskAmount(), snap.Equity)
			}
		}
		s.Status = signal.StatusExecuted
	}
	e.record(ctx, outcome)
}

func (e *Engine) stageContext(s *signal.Signal) *validation.StageContext {
	if e.stageData != nil {
		if sc := e.stageData(s); sc != nil {
			return sc
		}
	}
	return &validation.StageContext{Signal: s, Symbol: s.Symbol, Timeframe: s.Timeframe}
}

// snapshot asks the portfolio provider for a fresh view and degrades to an
// empty snapshot on failure. Zero equity makes the risk gate fail closed.
func (e *Engine) snapshot(ctx context.Context) *portfolio.Snapshot {
	if e.provider == nil {
		return &portfolio.Snapshot{}
	}
	snap, err := e.provider.BuildContext(ctx)
	if err != nil || snap == nil {
		logger.Warnf("Engine: portfolio snapshot failed, using empty view: %v", err)
		return &portfolio.Snapshot{}
	}
	return snap
}

func (e *Engine) checkRequest(s *signal.Signal, camp *campaign.Campaign, snap *portfolio.Snapshot) risk.CheckRequest {
	req := risk.CheckRequest{Symbol: s.Symbol}
	req.TradeRiskPct = pctOfEquity(s.RiskAmount(), snap.Equity)
	if camp != nil {
		req.CampaignRiskPct = pctOfEquity(camp.TotalRisk.Add(s.RiskAmount()), snap.Equity)
	}
	for _, pos := range snap.Positions {
		if pos.Symbol == s.Symbol {
			req.CorrelatedRiskPct += pos.RiskPct
		}
	}
	if req.CorrelatedRiskPct > 0 {
		req.CorrelatedRiskPct += req.TradeRiskPct
	}
	return req
}

func (e *Engine) record(ctx context.Context, outcome Outcome) {
	logger.Event("signal_outcome",
		"signal_id", outcome.SignalID,
		"symbol", outcome.Symbol,
		"pattern", outcome.Pattern,
		"campaign_id", outcome.CampaignID,
		"reason", outcome.Reason,
	)
	if e.audit != nil {
		if err := e.audit.RecordOutcome(ctx, outcome); err != nil {
			logger.Warnf("Engine: recording outcome for %s failed: %v", outcome.SignalID, err)
		}
	}
}

func orderFromSignal(s *signal.Signal) broker.Order {
	side := "buy"
	if s.Side == "short" {
		side = "sell"
	}
	return broker.Order{
		ID:         uuid.NewString(),
		SignalID:   s.ID,
		CampaignID: s.CampaignID,
		Symbol:     s.Symbol,
		Side:       side,
		Type:       "market",
		Quantity:   s.Size,
		Price:      decimal.Zero,
		StopLoss:   s.Stop,
		TakeProfit: s.Target,
	}
}

// pctOfEquity returns amount/equity*100, treating a missing equity figure
// as fully at risk so the gate blocks rather than passes.
func pctOfEquity(amount, equity decimal.Decimal) float64 {
	if equity.Cmp(decimal.Zero) <= 0 {
		return 100
	}
	pct, _ := amount.Div(equity).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

func failReason(chain *validation.Chain) string {
	for _, r := range chain.Results {
		if r.Verdict == validation.VerdictFail {
			return fmt.Sprintf("%s: %s", r.Stage, r.Reason)
		}
	}
	return ""
}
