package config

import "fmt"

func validate(c *Config) error {
	if c.Risk.HeatWarningPct >= c.Risk.HeatCriticalPct {
		return fmt.Errorf("heat_warning_pct (%.1f) must be below heat_critical_pct (%.1f)",
			c.Risk.HeatWarningPct, c.Risk.HeatCriticalPct)
	}
	if c.Risk.HeatCriticalPct >= c.Risk.MaxHeatPct {
		return fmt.Errorf("heat_critical_pct (%.1f) must be below max_heat_pct (%.1f)",
			c.Risk.HeatCriticalPct, c.Risk.MaxHeatPct)
	}
	if c.Risk.MaxTradeRiskPct > c.Risk.MaxHeatPct {
		return fmt.Errorf("max_trade_risk_pct (%.1f) cannot exceed max_heat_pct (%.1f)",
			c.Risk.MaxTradeRiskPct, c.Risk.MaxHeatPct)
	}
	if c.Brokers.Oanda.Enabled && c.Brokers.Oanda.AccountID == "" {
		return fmt.Errorf("oanda broker enabled without account_id")
	}
	if c.Brokers.Alpaca.Enabled && c.Brokers.Alpaca.KeyID == "" {
		return fmt.Errorf("alpaca broker enabled without key_id")
	}
	if c.Brokers.Binance.Enabled && c.Brokers.Binance.APIKey == "" {
		return fmt.Errorf("binance broker enabled without api_key")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("telegram notifier enabled without bot_token/chat_id")
	}
	return nil
}
