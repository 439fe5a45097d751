package validation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ConfidenceFloor fails signals below a minimum detection confidence and
// warns on marginal ones within 5 points of the floor.
type ConfidenceFloor struct {
	Min float64
}

func (v *ConfidenceFloor) Name() string { return "confidence_floor" }

func (v *ConfidenceFloor) Validate(_ context.Context, sc *StageContext) StageResult {
	conf := sc.Signal.Confidence
	if conf < v.Min {
		return Fail(v.Name(), fmt.Sprintf("confidence %.1f below floor %.1f", conf, v.Min))
	}
	if conf < v.Min+5 {
		return Warn(v.Name(), fmt.Sprintf("confidence %.1f is marginal (floor %.1f)", conf, v.Min))
	}
	return Pass(v.Name())
}

// RewardRiskMinimum fails signals whose reward-to-risk multiple does not
// justify the trade.
type RewardRiskMinimum struct {
	Min float64
}

func (v *RewardRiskMinimum) Name() string { return "reward_risk" }

func (v *RewardRiskMinimum) Validate(_ context.Context, sc *StageContext) StageResult {
	r := sc.Signal.RMultiple
	if r < v.Min {
		return Fail(v.Name(), fmt.Sprintf("r-multiple %.2f below minimum %.2f", r, v.Min))
	}
	return Pass(v.Name())
}

// PriceLevelCoherence checks that entry/stop/target are ordered correctly
// for the signal's side. Comparison is done in decimal space so ticks close
// together do not flip on float noise.
type PriceLevelCoherence struct{}

func (v *PriceLevelCoherence) Name() string { return "price_levels" }

func (v *PriceLevelCoherence) Validate(_ context.Context, sc *StageContext) StageResult {
	s := sc.Signal
	if s.Entry.IsZero() || s.Stop.IsZero() || s.Target.IsZero() {
		return Fail(v.Name(), "entry, stop and target must all be set")
	}
	switch s.Side {
	case "short":
		if s.Stop.Cmp(s.Entry) <= 0 {
			return Fail(v.Name(), fmt.Sprintf("short stop %s must exceed entry %s", s.Stop, s.Entry))
		}
		if s.Target.Cmp(s.Entry) >= 0 {
			return Fail(v.Name(), fmt.Sprintf("short target %s must be below entry %s", s.Target, s.Entry))
		}
	default:
		if s.Stop.Cmp(s.Entry) >= 0 {
			return Fail(v.Name(), fmt.Sprintf("long stop %s must be below entry %s", s.Stop, s.Entry))
		}
		if s.Target.Cmp(s.Entry) <= 0 {
			return Fail(v.Name(), fmt.Sprintf("long target %s must exceed entry %s", s.Target, s.Entry))
		}
	}
	if s.Size.Cmp(decimal.Zero) <= 0 {
		return Fail(v.Name(), "position size must be positive")
	}
	return Pass(v.Name())
}

// VolumeConfirmation warns when the move lacks volume support. Volume data
// comes from an external collaborator; absence is a warning, not a failure.
type VolumeConfirmation struct {
	MinRatio float64
}

func (v *VolumeConfirmation) Name() string { return "volume_confirmation" }

func (v *VolumeConfirmation) Validate(_ context.Context, sc *StageContext) StageResult {
	if sc.VolumeRatio <= 0 {
		return Warn(v.Name(), "no volume analysis available")
	}
	if sc.VolumeRatio < v.MinRatio {
		return Warn(v.Name(), fmt.Sprintf("volume ratio %.2f below %.2f", sc.VolumeRatio, v.MinRatio))
	}
	result := Pass(v.Name())
	result.Metadata = map[string]any{"volume_ratio": sc.VolumeRatio}
	return result
}

// PhaseAlignment fails signals whose pattern does not belong in the trading
// range's current phase: a Spring belongs to phase C, SOS/LPS to D, and a
// UTAD marks the top of distribution in phase E.
type PhaseAlignment struct{}

func (v *PhaseAlignment) Name() string { return "phase_alignment" }

var patternPhases = map[string][]string{
	"SPRING": {"C"},
	"SOS":    {"C", "D"},
	"LPS":    {"D"},
	"UTAD":   {"D", "E"},
}

func (v *PhaseAlignment) Validate(_ context.Context, sc *StageContext) StageResult {
	if sc.RangePhase == "" {
		return Warn(v.Name(), "no phase information available")
	}
	allowed, ok := patternPhases[string(sc.Signal.Pattern)]
	if !ok {
		return Warn(v.Name(), fmt.Sprintf("unknown pattern %s, phase not checked", sc.Signal.Pattern))
	}
	for _, phase := range allowed {
		if phase == sc.RangePhase {
			return Pass(v.Name())
		}
	}
	return Fail(v.Name(), fmt.Sprintf("%s does not belong in phase %s", sc.Signal.Pattern, sc.RangePhase))
}
