package signal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParsePattern(t *testing.T) {
	assert.Equal(t, PatternSpring, ParsePattern(" spring "))
	assert.Equal(t, PatternUTAD, ParsePattern("utad"))
	assert.Equal(t, PatternType("BOGUS"), ParsePattern("bogus"))
}

func TestPatternType_CampaignInitiating(t *testing.T) {
	assert.True(t, PatternSpring.CampaignInitiating())
	assert.False(t, PatternSOS.CampaignInitiating())
	assert.False(t, PatternLPS.CampaignInitiating())
	assert.False(t, PatternUTAD.CampaignInitiating())
}

func TestNew(t *testing.T) {
	s := New(" eurusd ", PatternSpring, 80, 3)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "EURUSD", s.Symbol)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, "long", s.Side)
	assert.False(t, s.CreatedAt.IsZero())
}

func TestSignal_BindCampaign(t *testing.T) {
	s := New("EURUSD", PatternSpring, 80, 3)

	assert.NoError(t, s.BindCampaign("camp-1"))
	assert.Equal(t, "camp-1", s.CampaignID)

	t.Run("Rebind Same Is Fine", func(t *testing.T) {
		assert.NoError(t, s.BindCampaign("camp-1"))
	})
	t.Run("Rebind Different Errors", func(t *testing.T) {
		assert.Error(t, s.BindCampaign("camp-2"))
		assert.Equal(t, "camp-1", s.CampaignID)
	})
}

func TestSignal_RiskAmount(t *testing.T) {
	s := New("EURUSD", PatternSpring, 80, 3)
	assert.True(t, s.RiskAmount().IsZero(), "unset levels risk zero")

	s.Entry = decimal.RequireFromString("1.1000")
	s.Stop = decimal.RequireFromString("1.0950")
	s.Size = decimal.RequireFromString("10000")
	assert.True(t, s.RiskAmount().Equal(decimal.RequireFromString("50")))

	t.Run("Short Side Uses Absolute Distance", func(t *testing.T) {
		s.Stop = decimal.RequireFromString("1.1050")
		assert.True(t, s.RiskAmount().Equal(decimal.RequireFromString("50")))
	})
}
