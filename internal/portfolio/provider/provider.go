// Package provider builds portfolio snapshots from live venue accounts and
// the heat tracker. It is rebuilt from scratch on every call; nothing here
// is authoritative state.
package provider

import (
	"context"
	"sync"
	"time"

	"wyckoff/internal/broker"
	"wyckoff/internal/logger"
	"wyckoff/internal/portfolio"
	"wyckoff/internal/risk"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const accountCallTimeout = 10 * time.Second

// Aggregator sums equity across every configured venue and folds in the
// heat tracker's campaign risk. A venue that fails its account call
// contributes zero, so the snapshot degrades instead of erroring.
type Aggregator struct {
	adapters []broker.Adapter
	tracker  *risk.HeatTracker
}

func NewAggregator(tracker *risk.HeatTracker, adapters ...broker.Adapter) *Aggregator {
	out := make([]broker.Adapter, 0, len(adapters))
	for _, a := range adapters {
		if a != nil {
			out = append(out, a)
		}
	}
	return &Aggregator{adapters: out, tracker: tracker}
}

func (p *Aggregator) BuildContext(ctx context.Context) (*portfolio.Snapshot, error) {
	var (
		mu     sync.Mutex
		equity = decimal.Zero
	)
	group, gctx := errgroup.WithContext(ctx)
	for _, adapter := range p.adapters {
		adapter := adapter
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, accountCallTimeout)
			defer cancel()
			info, err := adapter.GetAccountInfo(callCtx)
			if err != nil {
				logger.Warnf("portfolio: account call to %s failed, counting zero: %v", adapter.Name(), err)
				return nil
			}
			mu.Lock()
			equity = equity.Add(info.Balance)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	snap := &portfolio.Snapshot{Equity: equity}
	if p.tracker != nil && equity.Cmp(decimal.Zero) > 0 {
		for id, amount := range p.tracker.RiskBreakdown() {
			pct, _ := amount.Div(equity).Mul(decimal.NewFromInt(100)).Float64()
			snap.Campaigns = append(snap.Campaigns, portfolio.CampaignRisk{
				CampaignID: id,
				RiskPct:    pct,
			})
		}
	}
	return snap, nil
}

// Static returns a fixed snapshot, mainly for tests and dry runs.
type Static struct {
	Snapshot *portfolio.Snapshot
}

func (s *Static) BuildContext(context.Context) (*portfolio.Snapshot, error) {
	if s.Snapshot == nil {
		return &portfolio.Snapshot{}, nil
	}
	return s.Snapshot, nil
}
