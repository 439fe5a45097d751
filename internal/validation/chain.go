// Package validation runs a signal through an ordered chain of stage
// validators, producing a complete audit trail with fail-fast semantics.
package validation

import (
	"time"

	"wyckoff/internal/signal"
)

// Verdict is the outcome of one validation stage.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// StageResult is one entry in a chain's audit trail.
type StageResult struct {
	Stage     string
	Verdict   Verdict
	Reason    string
	Metadata  map[string]any
	Timestamp time.Time
}

func Pass(stage string) StageResult {
	return StageResult{Stage: stage, Verdict: VerdictPass, Timestamp: time.Now().UTC()}
}

func Warn(stage, reason string) StageResult {
	return StageResult{Stage: stage, Verdict: VerdictWarn, Reason: reason, Timestamp: time.Now().UTC()}
}

func Fail(stage, reason string) StageResult {
	return StageResult{Stage: stage, Verdict: VerdictFail, Reason: reason, Timestamp: time.Now().UTC()}
}

// Chain is the audit record owned by one signal. Once a FAIL is appended no
// further results may be added.
type Chain struct {
	SignalID    string
	Results     []StageResult
	StartedAt   time.Time
	CompletedAt time.Time
}

func NewChain(s *signal.Signal) *Chain {
	c := &Chain{StartedAt: time.Now().UTC()}
	if s != nil {
		c.SignalID = s.ID
	}
	return c
}

func (c *Chain) append(r StageResult) {
	c.Results = append(c.Results, r)
}

// Overall folds stage verdicts: any FAIL wins, else any WARN, else PASS.
func (c *Chain) Overall() Verdict {
	verdict := VerdictPass
	for _, r := range c.Results {
		switch r.Verdict {
		case VerdictFail:
			return VerdictFail
		case VerdictWarn:
			verdict = VerdictWarn
		}
	}
	return verdict
}

// Passed reports whether the signal may proceed (PASS or WARN overall).
func (c *Chain) Passed() bool {
	return c.Overall() != VerdictFail
}
