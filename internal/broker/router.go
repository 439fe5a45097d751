package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wyckoff/internal/logger"
	"wyckoff/internal/portfolio"
	"wyckoff/internal/risk"

	"golang.org/x/sync/errgroup"
)

// Router owns the kill switch and performs the strictly ordered submission
// path: kill switch, risk gate, adapter resolution, dispatch. The three
// checks gate each other and are never reordered or parallelized.
type Router struct {
	mu       sync.RWMutex
	adapters map[AssetClass]Adapter

	gate *risk.Gate
	kill *risk.KillSwitch

	statusMu   sync.RWMutex
	lastStatus map[string]bool
}

func NewRouter(gate *risk.Gate, kill *risk.KillSwitch) *Router {
	if kill == nil {
		kill = risk.NewKillSwitch()
	}
	return &Router{
		adapters: make(map[AssetClass]Adapter),
		gate:     gate,
		kill:     kill,
	}
}

// RegisterAdapter installs the venue adapter for an asset class.
func (r *Router) RegisterAdapter(class AssetClass, adapter Adapter) {
	if adapter == nil {
		return
	}
	r.mu.Lock()
	r.adapters[class] = adapter
	r.mu.Unlock()
	logger.Infof("Router: registered %s adapter for %s", adapter.Name(), class)
}

// GetAdapter resolves the adapter for a symbol, or nil when no venue is
// configured for its asset class.
func (r *Router) GetAdapter(symbol string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[Classify(symbol)]
}

// RouteOrder submits one order. Rejections are structured reports, never
// errors; a venue's internal fault is caught here so it cannot crash order
// processing for other venues or signals.
func (r *Router) RouteOrder(ctx context.Context, order Order, snap *portfolio.Snapshot, req risk.CheckRequest) ExecutionReport {
	if r.kill.Active() {
		status := r.kill.Status()
		logger.WarnEvent("order_rejected",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"platform", "kill_switch",
			"reason", status.Reason,
		)
		return rejected(order, "kill_switch", fmt.Sprintf("kill switch active: %s", status.Reason))
	}

	verdict := r.gate.CheckOrder(req, snap)
	if verdict.Blocked {
		reason := "Risk gate blocked: " + verdict.Reason()
		logger.WarnEvent("order_rejected",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"platform", "risk_gate",
			"reason", reason,
		)
		return rejected(order, "risk_gate", reason)
	}

	adapter := r.GetAdapter(order.Symbol)
	if adapter == nil {
		logger.WarnEvent("order_rejected",
			"order_id", order.ID,
			"symbol", order.Symbol,
			"platform", "none",
			"reason", "no adapter configured",
		)
		return rejected(order, "none", fmt.Sprintf("no adapter configured for %s (%s)", order.Symbol, Classify(order.Symbol)))
	}

	report := r.dispatch(ctx, adapter, order)
	logger.Event("order_routed",
		"order_id", order.ID,
		"symbol", order.Symbol,
		"venue", adapter.Name(),
		"status", string(report.Status),
		"platform_order_id", report.PlatformOrderID,
	)
	return report
}

// dispatch forwards to the adapter, converting a panic inside the venue
// code into a REJECTED report.
func (r *Router) dispatch(ctx context.Context, adapter Adapter, order Order) (report ExecutionReport) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("Router: adapter %s panicked placing %s: %v", adapter.Name(), order.ID, rec)
			report = rejected(order, adapter.Name(), fmt.Sprintf("adapter fault: %v", rec))
		}
	}()
	report, err := adapter.PlaceOrder(ctx, order)
	if err != nil {
		return rejected(order, adapter.Name(), err.Error())
	}
	if report.Platform == "" {
		report.Platform = adapter.Name()
	}
	return report
}

// CloseAllPositions fans out to every configured adapter concurrently. A
// single broken venue is logged and skipped, never blocking the others. The
// kill switch does not apply: closing is always allowed.
func (r *Router) CloseAllPositions(ctx context.Context) []ExecutionReport {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	var (
		outMu   sync.Mutex
		reports []ExecutionReport
	)
	group, gctx := errgroup.WithContext(ctx)
	for _, adapter := range adapters {
		adapter := adapter
		group.Go(func() error {
			got, err := adapter.CloseAllPositions(gctx)
			if err != nil {
				logger.Warnf("Router: close-all on %s failed: %v", adapter.Name(), err)
				return nil
			}
			outMu.Lock()
			reports = append(reports, got...)
			outMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	logger.Event("close_all_done", "venues", len(adapters), "reports", len(reports))
	return reports
}

// PollVenueStatus probes every adapter's connectivity concurrently, each
// call bounded by the status timeout.
func (r *Router) PollVenueStatus(ctx context.Context) map[string]bool {
	r.mu.RLock()
	adapters := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		adapters = append(adapters, a)
	}
	r.mu.RUnlock()

	var resMu sync.Mutex
	status := make(map[string]bool, len(adapters))
	group, gctx := errgroup.WithContext(ctx)
	for _, adapter := range adapters {
		adapter := adapter
		group.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, statusCallTimeout)
			defer cancel()
			ok := adapter.IsConnected(probeCtx)
			resMu.Lock()
			status[adapter.Name()] = ok
			resMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	r.statusMu.Lock()
	r.lastStatus = status
	r.statusMu.Unlock()
	return status
}

// VenueStatus returns the result of the most recent poll without touching
// any venue, so read paths never wait on a dead connection.
func (r *Router) VenueStatus() map[string]bool {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	out := make(map[string]bool, len(r.lastStatus))
	for venue, ok := range r.lastStatus {
		out[venue] = ok
	}
	return out
}

// ActivateKillSwitch halts all new order submissions.
func (r *Router) ActivateKillSwitch(reason string) { r.kill.Activate(reason) }

// DeactivateKillSwitch resumes order submissions.
func (r *Router) DeactivateKillSwitch() { r.kill.Deactivate() }

// KillSwitchStatus returns a read-only snapshot for dashboards.
func (r *Router) KillSwitchStatus() risk.KillSwitchStatus { return r.kill.Status() }

func rejected(order Order, platform, reason string) ExecutionReport {
	return ExecutionReport{
		OrderID:      order.ID,
		Symbol:       order.Symbol,
		Status:       StatusRejected,
		RemainingQty: order.Quantity,
		Platform:     platform,
		Reason:       reason,
		Timestamp:    time.Now().UTC(),
	}
}
