// Package signal defines the candidate trade proposal produced by upstream
// pattern detection and consumed by the execution pipeline.
package signal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PatternType classifies the detected accumulation/distribution event.
type PatternType string

const (
	PatternSpring PatternType = "SPRING"
	PatternSOS    PatternType = "SOS"
	PatternLPS    PatternType = "LPS"
	PatternUTAD   PatternType = "UTAD"
)

// ParsePattern normalizes a raw pattern label. Unknown labels are returned
// as-is so callers can log them; they rank with weight zero.
func ParsePattern(raw string) PatternType {
	return PatternType(strings.ToUpper(strings.TrimSpace(raw)))
}

// CampaignInitiating reports whether this pattern may open a new campaign.
// Only a Spring starts an accumulation campaign; SOS/LPS extend one and a
// UTAD is a distribution event handled on the short side.
func (p PatternType) CampaignInitiating() bool {
	return p == PatternSpring
}

// Status is the terminal disposition of a signal. Set exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
)

// Signal is a candidate trade proposal. Immutable after creation except for
// CampaignID and Status, each of which is set at most once.
type Signal struct {
	ID         string
	Symbol     string
	Pattern    PatternType
	Timeframe  string
	Side       string // "long" or "short"
	Confidence float64 // 0-100
	RMultiple  float64 // reward-to-risk multiple

	Entry  decimal.Decimal
	Stop   decimal.Decimal
	Target decimal.Decimal
	Size   decimal.Decimal

	CreatedAt  time.Time
	CampaignID string
	Status     Status
}

// New builds a pending signal with a fresh machine ID.
func New(symbol string, pattern PatternType, confidence, rMultiple float64) *Signal {
	return &Signal{
		ID:         uuid.NewString(),
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Pattern:    pattern,
		Side:       "long",
		Confidence: confidence,
		RMultiple:  rMultiple,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusPending,
	}
}

// BindCampaign records the campaign this signal was associated with.
// Binding twice to different campaigns indicates a pipeline bug upstream.
func (s *Signal) BindCampaign(campaignID string) error {
	if s.CampaignID != "" && s.CampaignID != campaignID {
		return fmt.Errorf("signal %s already bound to campaign %s", s.ID, s.CampaignID)
	}
	s.CampaignID = campaignID
	return nil
}

// RiskAmount is |entry-stop| * size in quote currency.
func (s *Signal) RiskAmount() decimal.Decimal {
	if s.Entry.IsZero() || s.Stop.IsZero() {
		return decimal.Zero
	}
	return s.Entry.Sub(s.Stop).Abs().Mul(s.Size)
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s %s conf=%.1f r=%.1f", s.Symbol, s.Pattern, s.Confidence, s.RMultiple)
}
