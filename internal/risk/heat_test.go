package risk

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestHeatTracker_AddRemove(t *testing.T) {
	tr := NewHeatTracker(DefaultHeatThresholds(), time.Minute)
	equity := d("100000")

	tr.AddCampaignRisk("c1", d("2000"), equity)
	tr.AddCampaignRisk("c2", d("1500"), equity)
	assert.InDelta(t, 3.5, tr.CalculateHeat(equity), 1e-9)

	t.Run("Replace Semantics", func(t *testing.T) {
		tr.AddCampaignRisk("c1", d("1000"), equity)
		assert.InDelta(t, 2.5, tr.CalculateHeat(equity), 1e-9)
	})

	t.Run("Remove Returns Amount", func(t *testing.T) {
		released := tr.RemoveCampaignRisk("c2", equity)
		assert.True(t, released.Equal(d("1500")))
		assert.InDelta(t, 1.0, tr.CalculateHeat(equity), 1e-9)
	})

	t.Run("Remove Unknown Is Zero", func(t *testing.T) {
		assert.True(t, tr.RemoveCampaignRisk("ghost", equity).IsZero())
	})

	t.Run("Breakdown Is A Copy", func(t *testing.T) {
		bd := tr.RiskBreakdown()
		bd["c1"] = d("999999")
		assert.True(t, tr.RiskBreakdown()["c1"].Equal(d("1000")))
	})
}

func TestHeatTracker_CanAddPosition(t *testing.T) {
	tr := NewHeatTracker(DefaultHeatThresholds(), time.Minute)
	equity := d("100000")

	t.Run("Boundary Is Exact", func(t *testing.T) {
		tr.AddCampaignRisk("c1", d("9000"), equity)
		assert.True(t, tr.CanAddPosition(d("999"), equity), "projected 9.999% stays below ceiling")
		assert.False(t, tr.CanAddPosition(d("1000"), equity), "projected 10.000% hits ceiling")
		assert.False(t, tr.CanAddPosition(d("1001"), equity), "projected 10.001% exceeds ceiling")
	})

	t.Run("Zero Equity Fails Closed", func(t *testing.T) {
		assert.False(t, tr.CanAddPosition(d("1"), decimal.Zero))
	})
}

func TestHeatTracker_Scenario(t *testing.T) {
	// Heat at 8.5%, a 0.7% add is admitted at 9.2%, a further 1.6% is not.
	tr := NewHeatTracker(DefaultHeatThresholds(), time.Minute)
	equity := d("100000")
	tr.AddCampaignRisk("base", d("8500"), equity)

	assert.True(t, tr.CanAddPosition(d("700"), equity))
	tr.AddCampaignRisk("add1", d("700"), equity)
	assert.InDelta(t, 9.2, tr.CalculateHeat(equity), 1e-9)
	assert.Equal(t, HeatCritical, tr.State())

	assert.False(t, tr.CanAddPosition(d("1600"), equity), "projected 10.8% is over the ceiling")
}

func TestHeatTracker_LadderTransitions(t *testing.T) {
	tr := NewHeatTracker(DefaultHeatThresholds(), time.Minute)
	equity := d("100000")

	var mu sync.Mutex
	var transitions []string
	tr.SetStateChangeHandler(func(old, new HeatState, heatPct float64) {
		mu.Lock()
		transitions = append(transitions, old.String()+"->"+new.String())
		mu.Unlock()
	})

	waitTransitions := func(n int) {
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(transitions) == n
		}, time.Second, 10*time.Millisecond)
	}

	assert.Equal(t, HeatNormal, tr.State())

	tr.AddCampaignRisk("c1", d("7500"), equity)
	assert.Equal(t, HeatWarning, tr.State())
	waitTransitions(1)

	tr.AddCampaignRisk("c2", d("2000"), equity)
	assert.Equal(t, HeatCritical, tr.State())
	waitTransitions(2)

	tr.AddCampaignRisk("c3", d("1000"), equity)
	assert.Equal(t, HeatExceeded, tr.State())
	waitTransitions(3)

	tr.RemoveCampaignRisk("c1", equity)
	tr.RemoveCampaignRisk("c2", equity)
	tr.RemoveCampaignRisk("c3", equity)
	assert.Equal(t, HeatNormal, tr.State())
	waitTransitions(4)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"NORMAL->WARNING",
		"WARNING->CRITICAL",
		"CRITICAL->EXCEEDED",
		"EXCEEDED->NORMAL",
	}, transitions, "one callback per transition, none repeated")
}

func TestHeatTracker_AlertCooldown(t *testing.T) {
	tr := NewHeatTracker(DefaultHeatThresholds(), time.Hour)
	equity := d("100000")

	var mu sync.Mutex
	alerts := 0
	tr.SetAlerter(func(state HeatState, heatPct float64) {
		mu.Lock()
		alerts++
		mu.Unlock()
	})

	// Bounce in and out of WARNING; the cooldown caps delivery at one.
	tr.AddCampaignRisk("c1", d("7500"), equity)
	tr.RemoveCampaignRisk("c1", equity)
	tr.AddCampaignRisk("c1", d("7500"), equity)
	tr.RemoveCampaignRisk("c1", equity)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return alerts == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, alerts, "second WARNING entry suppressed by cooldown")
	mu.Unlock()
}

func TestHeatState_String(t *testing.T) {
	assert.Equal(t, "NORMAL", HeatNormal.String())
	assert.Equal(t, "WARNING", HeatWarning.String())
	assert.Equal(t, "CRITICAL", HeatCritical.String())
	assert.Equal(t, "EXCEEDED", HeatExceeded.String())
}
