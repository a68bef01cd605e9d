package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	Risk   RiskConfig   `mapstructure:"risk"`
	Notify NotifyConfig `mapstructure:"notify"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Stream StreamConfig `mapstructure:"stream"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	DailyReset        string `mapstructure:"daily_reset"`
	DeadlineMonitor   string `mapstructure:"deadline_monitor"`
	InactivityMonitor string `mapstructure:"inactivity_monitor"`
}

type RiskConfig struct {
	// WarnUsagePct is the fraction of the personal daily loss limit at which
	// a near-limit warning fires, expressed in percent of the limit.
	WarnUsagePct float64 `mapstructure:"warn_usage_pct"`
	// TradingDayCloseHourUTC is the hour (UTC) at which the trading day rolls
	// over; daily-loss and rest-of-day locks expire at the next close.
	TradingDayCloseHourUTC  int `mapstructure:"trading_day_close_hour_utc"`
	AlertRetentionDays      int `mapstructure:"alert_retention_days"`
	PsychologyRetentionDays int `mapstructure:"psychology_retention_days"`
}

type NotifyConfig struct {
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`

	Push     PushConfig     `mapstructure:"push"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Email    EmailConfig    `mapstructure:"email"`
}

type PushConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     int    `mapstructure:"ttl"`
	Topic   string `mapstructure:"topic"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type EmailConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	From    string `mapstructure:"from"`
}

type AuthConfig struct {
	OTPLength          int           `mapstructure:"otp_length"`
	OTPTTL             time.Duration `mapstructure:"otp_ttl"`
	MaxRequestsPerHour int           `mapstructure:"max_requests_per_hour"`
	MaxVerifyAttempts  int           `mapstructure:"max_verify_attempts"`
}

type StreamConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PushInterval time.Duration `mapstructure:"push_interval"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	// Daily reset runs at the 21:00 UTC trading-day rollover; the monitors
	// are hourly sweeps whose dedupe is date-based, so re-runs are cheap.
	v.SetDefault("cron.daily_reset", "0 0 21 * * *")
	v.SetDefault("cron.deadline_monitor", "0 15 * * * *")
	v.SetDefault("cron.inactivity_monitor", "0 45 * * * *")
	v.SetDefault("risk.warn_usage_pct", 70)
	v.SetDefault("risk.trading_day_close_hour_utc", 21)
	v.SetDefault("risk.alert_retention_days", 90)
	v.SetDefault("risk.psychology_retention_days", 30)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.push.enabled", true)
	v.SetDefault("notify.push.ttl", 3600)
	v.SetDefault("notify.push.topic", "riskdesk")
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.discord.enabled", false)
	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.from", "alerts@riskdesk.local")
	v.SetDefault("auth.otp_length", 6)
	v.SetDefault("auth.otp_ttl", "10m")
	v.SetDefault("auth.max_requests_per_hour", 3)
	v.SetDefault("auth.max_verify_attempts", 5)
	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.push_interval", "3s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
