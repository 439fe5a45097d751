package risk

import (
	"sync"
	"time"

	"wyckoff/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// HeatState is the alert ladder for aggregate portfolio risk.
type HeatState int

const (
	HeatNormal HeatState = iota
	HeatWarning
	HeatCritical
	HeatExceeded
)

func (s HeatState) String() string {
	switch s {
	case HeatNormal:
		return "NORMAL"
	case HeatWarning:
		return "WARNING"
	case HeatCritical:
		return "CRITICAL"
	case HeatExceeded:
		return "EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

// HeatThresholds mark the ladder boundaries in percent of equity.
type HeatThresholds struct {
	WarningPct  float64
	CriticalPct float64
	ExceededPct float64
}

func DefaultHeatThresholds() HeatThresholds {
	return HeatThresholds{WarningPct: 7, CriticalPct: 9, ExceededPct: 10}
}

// DefaultAlertCooldown bounds alert delivery per ladder state.
const DefaultAlertCooldown = 5 * time.Minute

// HeatTracker maintains the live aggregate of campaign risk. The internal
// risk map is shared mutable state: every mutating method holds the mutex,
// since concurrent campaign open/close events are expected in production.
type HeatTracker struct {
	mu         sync.Mutex
	risks      map[string]decimal.Decimal
	totalRisk  decimal.Decimal
	thresholds HeatThresholds
	state      HeatState

	onStateChange func(old, new HeatState, heatPct float64)
	alerter       func(state HeatState, heatPct float64)
	alertLimiters map[HeatState]*rate.Limiter
	cooldown      time.Duration
}

func NewHeatTracker(thresholds HeatThresholds, cooldown time.Duration) *HeatTracker {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &HeatTracker{
		risks:      make(map[string]decimal.Decimal),
		totalRisk:  decimal.Zero,
		thresholds: thresholds,
		state:      HeatNormal,
		cooldown:   cooldown,
		alertLimiters: map[HeatState]*rate.Limiter{
			HeatWarning:  rate.NewLimiter(rate.Every(cooldown), 1),
			HeatCritical: rate.NewLimiter(rate.Every(cooldown), 1),
			HeatExceeded: rate.NewLimiter(rate.Every(cooldown), 1),
		},
	}
}

// SetStateChangeHandler installs the once-per-transition callback.
func (t *HeatTracker) SetStateChangeHandler(fn func(old, new HeatState, heatPct float64)) {
	t.mu.Lock()
	t.onStateChange = fn
	t.mu.Unlock()
}

// SetAlerter installs the alert sink. Delivery is rate-limited per state by
// the configured cooldown; NORMAL never alerts.
func (t *HeatTracker) SetAlerter(fn func(state HeatState, heatPct float64)) {
	t.mu.Lock()
	t.alerter = fn
	t.mu.Unlock()
}

// AddCampaignRisk records amount of open risk for a campaign. Adding for an
// existing id replaces its previous amount.
func (t *HeatTracker) AddCampaignRisk(campaignID string, amount decimal.Decimal, equity decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.risks[campaignID]; ok {
		t.totalRisk = t.totalRisk.Sub(prev)
	}
	t.risks[campaignID] = amount
	t.totalRisk = t.totalRisk.Add(amount)
	t.evaluateLocked(equity)
}

// RemoveCampaignRisk releases a campaign's risk and returns the amount.
func (t *HeatTracker) RemoveCampaignRisk(campaignID string, equity decimal.Decimal) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	amount, ok := t.risks[campaignID]
	if !ok {
		return decimal.Zero
	}
	delete(t.risks, campaignID)
	t.totalRisk = t.totalRisk.Sub(amount)
	t.evaluateLocked(equity)
	return amount
}

// CalculateHeat returns totalRisk / equity * 100.
func (t *HeatTracker) CalculateHeat(equity decimal.Decimal) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return heatPct(t.totalRisk, equity)
}

// CanAddPosition projects heat with additionalRisk included and reports
// whether the projection stays below the EXCEEDED ceiling. The comparison
// runs in decimal space so the 10.00% boundary is exact.
func (t *HeatTracker) CanAddPosition(additionalRisk, equity decimal.Decimal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if equity.Cmp(decimal.Zero) <= 0 {
		return false
	}
	projected := t.totalRisk.Add(additionalRisk).Div(equity).Mul(decimal.NewFromInt(100))
	ceiling := decimal.NewFromFloat(t.thresholds.ExceededPct)
	return projected.Cmp(ceiling) < 0
}

// State returns the current ladder state.
func (t *HeatTracker) State() HeatState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// TotalRisk returns the current aggregate open risk.
func (t *HeatTracker) TotalRisk() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalRisk
}

// RiskBreakdown returns a copy of the per-campaign risk map.
func (t *HeatTracker) RiskBreakdown() map[string]decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(t.risks))
	for id, amount := range t.risks {
		out[id] = amount
	}
	return out
}

func (t *HeatTracker) evaluateLocked(equity decimal.Decimal) {
	heat := heatPct(t.totalRisk, equity)
	next := t.classify(heat)
	if next == t.state {
		return
	}
	old := t.state
	t.state = next
	logger.Event("heat_state_change",
		"from", old.String(),
		"to", next.String(),
		"heat_pct", heat,
	)
	if t.onStateChange != nil {
		go t.onStateChange(old, next, heat)
	}
	if next != HeatNormal && t.alerter != nil {
		if lim := t.alertLimiters[next]; lim != nil && lim.Allow() {
			go t.alerter(next, heat)
		}
	}
}

func (t *HeatTracker) classify(heat float64) HeatState {
	switch {
	case heat >= t.thresholds.ExceededPct:
		return HeatExceeded
	case heat >= t.thresholds.CriticalPct:
		return HeatCritical
	case heat >= t.thresholds.WarningPct:
		return HeatWarning
	default:
		return HeatNormal
	}
}

func heatPct(totalRisk, equity decimal.Decimal) float64 {
	if equity.Cmp(decimal.Zero) <= 0 {
		return 0
	}
	pct, _ := totalRisk.Div(equity).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
