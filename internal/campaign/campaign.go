// Package campaign binds signals to a shared trading campaign per
// instrument and trading range.
package campaign

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the campaign lifecycle state. COMPLETED and INVALIDATED are
// terminal; the write path here only ever creates ACTIVE campaigns.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusMarkup      Status = "MARKUP"
	StatusCompleted   Status = "COMPLETED"
	StatusInvalidated Status = "INVALIDATED"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusInvalidated
}

// Campaign is a unit of capital and risk allocation over one instrument and
// trading range.
type Campaign struct {
	ID         string // machine id
	HumanID    string // SYMBOL-YYYYMMDD of the range start
	Symbol     string
	RangeStart time.Time
	Status     Status
	Phase      string // C, D or E

	SignalIDs     []string
	TotalRisk     decimal.Decimal
	TotalShares   decimal.Decimal
	UnrealizedPnL decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Spec carries the fields needed to create a campaign.
type Spec struct {
	Symbol     string
	RangeStart time.Time
	Phase      string
}

// NewCampaign builds an ACTIVE campaign from a spec.
func NewCampaign(spec Spec) *Campaign {
	now := time.Now().UTC()
	start := spec.RangeStart
	if start.IsZero() {
		start = now
	}
	phase := spec.Phase
	if phase == "" {
		phase = "C"
	}
	return &Campaign{
		ID:         uuid.NewString(),
		HumanID:    fmt.Sprintf("%s-%s", spec.Symbol, start.Format("20060102")),
		Symbol:     spec.Symbol,
		RangeStart: start,
		Status:     StatusActive,
		Phase:      phase,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
