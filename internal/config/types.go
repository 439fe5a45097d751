package config

import "time"

type Config struct {
	App        AppConfig        `toml:"app"`
	Validation ValidationConfig `toml:"validation"`
	Risk       RiskConfig       `toml:"risk"`
	Campaigns  CampaignConfig   `toml:"campaigns"`
	Audit      AuditConfig      `toml:"audit"`
	Brokers    BrokersConfig    `toml:"brokers"`
	Notify     NotifyConfig     `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type ValidationConfig struct {
	// Stages is the ordered chain; names resolve through the registry.
	Stages          []string `toml:"stages"`
	ConfidenceFloor float64  `toml:"confidence_floor"`
	MinRMultiple    float64  `toml:"min_r_multiple"`
	MinVolumeRatio  float64  `toml:"min_volume_ratio"`
	WeightsPath     string   `toml:"weights_path"`
}

type RiskConfig struct {
	MaxTradeRiskPct      float64       `toml:"max_trade_risk_pct"`
	MaxCampaignRiskPct   float64       `toml:"max_campaign_risk_pct"`
	MaxCorrelatedRiskPct float64       `toml:"max_correlated_risk_pct"`
	MaxHeatPct           float64       `toml:"max_heat_pct"`
	HeatWarningPct       float64       `toml:"heat_warning_pct"`
	HeatCriticalPct      float64       `toml:"heat_critical_pct"`
	AlertCooldown        time.Duration `toml:"alert_cooldown"`
}

type CampaignConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

type AuditConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

type BrokersConfig struct {
	Oanda   OandaConfig   `toml:"oanda"`
	Alpaca  AlpacaConfig  `toml:"alpaca"`
	Binance BinanceConfig `toml:"binance"`
}

type OandaConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	AccountID string `toml:"account_id"`
	APIToken  string `toml:"api_token"`
}

type AlpacaConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	KeyID     string `toml:"key_id"`
	SecretKey string `toml:"secret_key"`
}

type BinanceConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}
