// Package risk implements the fail-closed admission checkpoint every order
// passes before reaching a venue, the portfolio heat tracker and the
// process-wide kill switch.
package risk

import (
	"fmt"
	"strings"
	"sync"

	"wyckoff/internal/portfolio"
)

// Limits are the risk ceilings enforced by the gate, in percent of equity.
type Limits struct {
	MaxTradeRiskPct      float64
	MaxCampaignRiskPct   float64
	MaxCorrelatedRiskPct float64
	MaxHeatPct           float64
}

func DefaultLimits() Limits {
	return Limits{
		MaxTradeRiskPct:      2.0,
		MaxCampaignRiskPct:   5.0,
		MaxCorrelatedRiskPct: 6.0,
		MaxHeatPct:           10.0,
	}
}

// Violation is one failed rule with the observed and limit values.
type Violation struct {
	Rule     string
	Message  string
	Observed float64
	Limit    float64
}

// Verdict is the gate's answer. Blocked is true iff any rule was violated.
// Verdicts are consumed immediately and never persisted.
type Verdict struct {
	Blocked    bool
	Violations []Violation
}

// Reason concatenates every violation message for operator-facing output.
func (v Verdict) Reason() string {
	if len(v.Violations) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(v.Violations))
	for _, viol := range v.Violations {
		msgs = append(msgs, viol.Message)
	}
	return strings.Join(msgs, "; ")
}

// CheckRequest carries the per-order risk figures. CampaignRiskPct and
// CorrelatedRiskPct are optional; zero means the rule is skipped.
type CheckRequest struct {
	Symbol            string
	TradeRiskPct      float64
	CampaignRiskPct   float64
	CorrelatedRiskPct float64
}

// Gate evaluates every rule independently and accumulates all violations so
// callers see the complete picture. Evaluation is a pure function of the
// request, snapshot and current limits: the snapshot is never mutated and
// no call remembers a prior one, so what-if previews and concurrent calls
// are safe. Limits may be swapped at runtime by the config watcher.
type Gate struct {
	mu     sync.RWMutex
	limits Limits
}

func NewGate(limits Limits) *Gate {
	return &Gate{limits: limits}
}

// UpdateLimits replaces the ceilings, used for config hot reload.
func (g *Gate) UpdateLimits(limits Limits) {
	g.mu.Lock()
	g.limits = limits
	g.mu.Unlock()
}

// CheckOrder runs all admission rules against the order and snapshot.
func (g *Gate) CheckOrder(req CheckRequest, snap *portfolio.Snapshot) Verdict {
	g.mu.RLock()
	limits := g.limits
	g.mu.RUnlock()

	var verdict Verdict

	if req.TradeRiskPct > limits.MaxTradeRiskPct {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:     "max_trade_risk",
			Message:  fmt.Sprintf("per-trade risk %.1f%% exceeds %.1f%% limit", req.TradeRiskPct, limits.MaxTradeRiskPct),
			Observed: req.TradeRiskPct,
			Limit:    limits.MaxTradeRiskPct,
		})
	}

	if req.CampaignRiskPct > 0 && req.CampaignRiskPct > limits.MaxCampaignRiskPct {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:     "max_campaign_risk",
			Message:  fmt.Sprintf("campaign risk %.1f%% exceeds %.1f%% limit", req.CampaignRiskPct, limits.MaxCampaignRiskPct),
			Observed: req.CampaignRiskPct,
			Limit:    limits.MaxCampaignRiskPct,
		})
	}

	if req.CorrelatedRiskPct > 0 && req.CorrelatedRiskPct > limits.MaxCorrelatedRiskPct {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:     "max_correlated_risk",
			Message:  fmt.Sprintf("correlated exposure %.1f%% exceeds %.1f%% limit", req.CorrelatedRiskPct, limits.MaxCorrelatedRiskPct),
			Observed: req.CorrelatedRiskPct,
			Limit:    limits.MaxCorrelatedRiskPct,
		})
	}

	projected := snap.HeatPct() + req.TradeRiskPct
	if projected >= limits.MaxHeatPct {
		verdict.Violations = append(verdict.Violations, Violation{
			Rule:     "max_portfolio_heat",
			Message:  fmt.Sprintf("portfolio heat %.1f%% exceeds %.1f%% ceiling", projected, limits.MaxHeatPct),
			Observed: projected,
			Limit:    limits.MaxHeatPct,
		})
	}

	verdict.Blocked = len(verdict.Violations) > 0
	return verdict
}
