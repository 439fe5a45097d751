package validation

import (
	"context"
	"testing"

	"wyckoff/internal/signal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubStage struct {
	name    string
	result  StageResult
	calls   int
	resultF func() StageResult
}

func (s *stubStage) Name() string { return s.name }

func (s *stubStage) Validate(context.Context, *StageContext) StageResult {
	s.calls++
	if s.resultF != nil {
		return s.resultF()
	}
	return s.result
}

func longSignal(conf, r float64) *signal.Signal {
	s := signal.New("EURUSD", signal.PatternSpring, conf, r)
	s.Entry = decimal.RequireFromString("1.1000")
	s.Stop = decimal.RequireFromString("1.0950")
	s.Target = decimal.RequireFromString("1.1150")
	s.Size = decimal.RequireFromString("10000")
	return s
}

func TestOrchestrator_Run(t *testing.T) {
	t.Run("All Pass", func(t *testing.T) {
		a := &stubStage{name: "a", result: Pass("a")}
		b := &stubStage{name: "b", result: Pass("b")}
		o := NewOrchestrator(a, b)

		chain := o.Run(context.Background(), &StageContext{Signal: longSignal(80, 3)})
		assert.Len(t, chain.Results, 2)
		assert.Equal(t, VerdictPass, chain.Overall())
		assert.True(t, chain.Passed())
	})

	t.Run("Fail Stops Chain", func(t *testing.T) {
		a := &stubStage{name: "a", result: Pass("a")}
		b := &stubStage{name: "b", result: Fail("b", "bad")}
		c := &stubStage{name: "c", result: Pass("c")}
		o := NewOrchestrator(a, b, c)

		chain := o.Run(context.Background(), &StageContext{Signal: longSignal(80, 3)})
		assert.Len(t, chain.Results, 2, "stages after the FAIL must not run")
		assert.Equal(t, 0, c.calls)
		assert.Equal(t, VerdictFail, chain.Overall())
		assert.False(t, chain.Passed())
	})

	t.Run("Warn Continues", func(t *testing.T) {
		a := &stubStage{name: "a", result: Warn("a", "marginal")}
		b := &stubStage{name: "b", result: Pass("b")}
		o := NewOrchestrator(a, b)

		chain := o.Run(context.Background(), &StageContext{Signal: longSignal(80, 3)})
		assert.Len(t, chain.Results, 2)
		assert.Equal(t, VerdictWarn, chain.Overall())
		assert.True(t, chain.Passed())
	})

	t.Run("Fills Missing Stage Name", func(t *testing.T) {
		a := &stubStage{name: "named", result: StageResult{Verdict: VerdictPass}}
		o := NewOrchestrator(a)
		chain := o.Run(context.Background(), &StageContext{Signal: longSignal(80, 3)})
		assert.Equal(t, "named", chain.Results[0].Stage)
		assert.False(t, chain.Results[0].Timestamp.IsZero())
	})
}

func TestChain_Overall(t *testing.T) {
	c := &Chain{}
	assert.Equal(t, VerdictPass, c.Overall(), "empty chain passes")

	c.append(Pass("a"))
	c.append(Warn("b", "w"))
	assert.Equal(t, VerdictWarn, c.Overall())

	c.append(Fail("c", "f"))
	assert.Equal(t, VerdictFail, c.Overall())
}

func TestConfidenceFloor(t *testing.T) {
	v := &ConfidenceFloor{Min: 60}
	ctx := context.Background()

	t.Run("Below Floor Fails", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(59.9, 3)})
		assert.Equal(t, VerdictFail, r.Verdict)
	})
	t.Run("Marginal Warns", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(62, 3)})
		assert.Equal(t, VerdictWarn, r.Verdict)
	})
	t.Run("Comfortable Passes", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3)})
		assert.Equal(t, VerdictPass, r.Verdict)
	})
}

func TestRewardRiskMinimum(t *testing.T) {
	v := &RewardRiskMinimum{Min: 2.0}
	ctx := context.Background()

	r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 1.9)})
	assert.Equal(t, VerdictFail, r.Verdict)

	r = v.Validate(ctx, &StageContext{Signal: longSignal(80, 2.0)})
	assert.Equal(t, VerdictPass, r.Verdict)
}

func TestPriceLevelCoherence(t *testing.T) {
	v := &PriceLevelCoherence{}
	ctx := context.Background()

	t.Run("Long Coherent", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3)})
		assert.Equal(t, VerdictPass, r.Verdict)
	})

	t.Run("Long Stop Above Entry", func(t *testing.T) {
		s := longSignal(80, 3)
		s.Stop = decimal.RequireFromString("1.2000")
		r := v.Validate(ctx, &StageContext{Signal: s})
		assert.Equal(t, VerdictFail, r.Verdict)
	})

	t.Run("Short Coherent", func(t *testing.T) {
		s := longSignal(80, 3)
		s.Side = "short"
		s.Pattern = signal.PatternUTAD
		s.Entry = decimal.RequireFromString("1.1000")
		s.Stop = decimal.RequireFromString("1.1050")
		s.Target = decimal.RequireFromString("1.0850")
		r := v.Validate(ctx, &StageContext{Signal: s})
		assert.Equal(t, VerdictPass, r.Verdict)
	})

	t.Run("Missing Levels Fail", func(t *testing.T) {
		s := signal.New("EURUSD", signal.PatternSpring, 80, 3)
		r := v.Validate(ctx, &StageContext{Signal: s})
		assert.Equal(t, VerdictFail, r.Verdict)
	})

	t.Run("Zero Size Fails", func(t *testing.T) {
		s := longSignal(80, 3)
		s.Size = decimal.Zero
		r := v.Validate(ctx, &StageContext{Signal: s})
		assert.Equal(t, VerdictFail, r.Verdict)
	})
}

func TestVolumeConfirmation(t *testing.T) {
	v := &VolumeConfirmation{MinRatio: 1.2}
	ctx := context.Background()

	t.Run("Missing Data Warns", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3)})
		assert.Equal(t, VerdictWarn, r.Verdict)
	})
	t.Run("Thin Volume Warns", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3), VolumeRatio: 0.9})
		assert.Equal(t, VerdictWarn, r.Verdict)
	})
	t.Run("Confirmed Passes", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3), VolumeRatio: 1.8})
		assert.Equal(t, VerdictPass, r.Verdict)
		assert.Equal(t, 1.8, r.Metadata["volume_ratio"])
	})
}

func TestPhaseAlignment(t *testing.T) {
	v := &PhaseAlignment{}
	ctx := context.Background()

	t.Run("Spring In Phase C", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3), RangePhase: "C"})
		assert.Equal(t, VerdictPass, r.Verdict)
	})
	t.Run("Spring In Phase D Fails", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3), RangePhase: "D"})
		assert.Equal(t, VerdictFail, r.Verdict)
	})
	t.Run("No Phase Info Warns", func(t *testing.T) {
		r := v.Validate(ctx, &StageContext{Signal: longSignal(80, 3)})
		assert.Equal(t, VerdictWarn, r.Verdict)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.RegisterCoreStages()

	t.Run("Resolves Known Names", func(t *testing.T) {
		o, err := r.OrchestratorFor([]string{"confidence_floor", "reward_risk"})
		assert.NoError(t, err)
		assert.NotNil(t, o)
	})
	t.Run("Unknown Name Errors", func(t *testing.T) {
		_, err := r.OrchestratorFor([]string{"confidence_floor", "typo"})
		assert.Error(t, err)
	})
	t.Run("Empty Chain Errors", func(t *testing.T) {
		_, err := r.OrchestratorFor(nil)
		assert.Error(t, err)
	})
}
