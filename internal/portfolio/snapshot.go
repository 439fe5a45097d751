// Package portfolio provides the read-only account view consumed by the
// risk gate. Snapshots are built by a collaborator and never mutated here.
package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
)

// OpenPosition is one live position with its risk share of equity.
type OpenPosition struct {
	Symbol  string
	RiskPct float64
}

// CampaignRisk is an active campaign's aggregate risk share of equity.
type CampaignRisk struct {
	CampaignID string
	Symbol     string
	RiskPct    float64
}

// Snapshot is a point-in-time read-only view of the account.
type Snapshot struct {
	Equity    decimal.Decimal
	Positions []OpenPosition
	Campaigns []CampaignRisk
}

// HeatPct sums campaign risk percentages, the portfolio's current heat.
func (s *Snapshot) HeatPct() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, c := range s.Campaigns {
		total += c.RiskPct
	}
	return total
}

// Provider builds snapshots on demand. A failing provider yields a zero
// snapshot on the caller's side, never a crash.
type Provider interface {
	BuildContext(ctx context.Context) (*Snapshot, error)
}
