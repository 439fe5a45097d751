package validation

import (
	"context"
	"time"

	"wyckoff/internal/logger"
	"wyckoff/internal/signal"
)

// StageContext bundles the signal and whatever auxiliary data each stage
// declares it needs. The orchestrator never interprets these fields itself.
type StageContext struct {
	Signal    *signal.Signal
	Symbol    string
	Timeframe string

	// Optional per-stage inputs supplied by collaborators.
	VolumeRatio float64 // current volume / average volume, 0 when unknown
	RangePhase  string  // current trading-range phase label, "" when unknown
	HeatPct     float64 // current portfolio heat percentage
}

// StageValidator is the capability interface implemented by each stage.
// A validator fault (panic) is deliberately not recovered here: later stages
// assume earlier invariants hold, so a fault must not read as a pass.
type StageValidator interface {
	Name() string
	Validate(ctx context.Context, sc *StageContext) StageResult
}

// Orchestrator runs a fixed, ordered sequence of stage validators.
type Orchestrator struct {
	stages []StageValidator
}

func NewOrchestrator(stages ...StageValidator) *Orchestrator {
	out := make([]StageValidator, 0, len(stages))
	for _, st := range stages {
		if st != nil {
			out = append(out, st)
		}
	}
	return &Orchestrator{stages: out}
}

// Run evaluates every stage in order against sc, appending each result to
// the returned chain. A FAIL stops the chain immediately; WARN is recorded
// and evaluation continues.
func (o *Orchestrator) Run(ctx context.Context, sc *StageContext) *Chain {
	chain := NewChain(sc.Signal)
	logger.Event("validation_chain_start",
		"signal_id", chain.SignalID,
		"symbol", sc.Symbol,
		"stages", len(o.stages),
	)
	for _, stage := range o.stages {
		started := time.Now()
		result := stage.Validate(ctx, sc)
		if result.Stage == "" {
			result.Stage = stage.Name()
		}
		if result.Timestamp.IsZero() {
			result.Timestamp = time.Now().UTC()
		}
		chain.append(result)
		logger.Event("validation_stage",
			"signal_id", chain.SignalID,
			"stage", result.Stage,
			"verdict", string(result.Verdict),
			"reason", result.Reason,
			"elapsed", time.Since(started).String(),
		)
		if result.Verdict == VerdictFail {
			break
		}
	}
	chain.CompletedAt = time.Now().UTC()
	logger.Event("validation_chain_done",
		"signal_id", chain.SignalID,
		"overall", string(chain.Overall()),
		"stages_run", len(chain.Results),
		"elapsed", chain.CompletedAt.Sub(chain.StartedAt).String(),
	)
	return chain
}
