package config

import "time"

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8085"
	}
	if len(c.Validation.Stages) == 0 {
		c.Validation.Stages = []string{
			"confidence_floor",
			"reward_risk",
			"price_levels",
			"volume_confirmation",
			"phase_alignment",
		}
	}
	if c.Validation.ConfidenceFloor <= 0 {
		c.Validation.ConfidenceFloor = 60
	}
	if c.Validation.MinRMultiple <= 0 {
		c.Validation.MinRMultiple = 2.0
	}
	if c.Validation.MinVolumeRatio <= 0 {
		c.Validation.MinVolumeRatio = 1.2
	}
	if c.Risk.MaxTradeRiskPct <= 0 {
		c.Risk.MaxTradeRiskPct = 2.0
	}
	if c.Risk.MaxCampaignRiskPct <= 0 {
		c.Risk.MaxCampaignRiskPct = 5.0
	}
	if c.Risk.MaxCorrelatedRiskPct <= 0 {
		c.Risk.MaxCorrelatedRiskPct = 6.0
	}
	if c.Risk.MaxHeatPct <= 0 {
		c.Risk.MaxHeatPct = 10.0
	}
	if c.Risk.HeatWarningPct <= 0 {
		c.Risk.HeatWarningPct = 7.0
	}
	if c.Risk.HeatCriticalPct <= 0 {
		c.Risk.HeatCriticalPct = 9.0
	}
	if c.Risk.AlertCooldown <= 0 {
		c.Risk.AlertCooldown = 5 * time.Minute
	}
	if c.Campaigns.DBPath == "" {
		c.Campaigns.DBPath = "data/campaigns.db"
	}
	if c.Audit.DBPath == "" {
		c.Audit.DBPath = "data/audit.db"
	}
}
