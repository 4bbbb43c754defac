package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Risk     RiskConfig     `yaml:"risk"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Social   SocialConfig   `yaml:"social"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Alerting AlertingConfig `yaml:"alerting"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type AppConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type IngestConfig struct {
	WSURL           string        `yaml:"ws_url"`
	ReconnectBase   time.Duration `yaml:"reconnect_base"`
	ReconnectMax    time.Duration `yaml:"reconnect_max"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	DedupTTL        time.Duration `yaml:"dedup_ttl"`
	MinMarketCapUSD float64       `yaml:"min_market_cap_usd"`
	MinVolumeSOL    float64       `yaml:"min_volume_sol"`
}

type DispatchConfig struct {
	QueueSize   int           `yaml:"queue_size"`
	Workers     int           `yaml:"workers"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryBase   time.Duration `yaml:"retry_base"`
	RetryMax    time.Duration `yaml:"retry_max"`
	StepTimeout time.Duration `yaml:"step_timeout"`
}

type RiskConfig struct {
	MinLiquiditySOL float64  `yaml:"min_liquidity_sol"`
	MinHolders      int      `yaml:"min_holders"`
	MaxDevHoldPct   float64  `yaml:"max_dev_hold_pct"`
	MaxTop10HoldPct float64  `yaml:"max_top10_hold_pct"`
	CopycatPatterns []string `yaml:"copycat_patterns"`
}

type ScoringConfig struct {
	CriticalCeiling float64 `yaml:"critical_ceiling"`
	FlagPenalty     float64 `yaml:"flag_penalty"`
}

type SocialConfig struct {
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
	StaleTTL  time.Duration `yaml:"stale_ttl"`
}

type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ChannelConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
	// WebhookURL is used by webhook-style channels (discord).
	WebhookURL string `yaml:"webhook_url"`
}

type AlertingConfig struct {
	HighScoreThreshold   float64       `yaml:"high_score_threshold"`
	EscalationThreshold  float64       `yaml:"escalation_threshold"`
	UrgentThreshold      float64       `yaml:"urgent_threshold"`
	SocialSpikeThreshold float64       `yaml:"social_spike_threshold"`
	DedupWindow          time.Duration `yaml:"dedup_window"`

	Slack    ChannelConfig `yaml:"slack"`
	Discord  ChannelConfig `yaml:"discord"`
	Telegram ChannelConfig `yaml:"telegram"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration the pipeline runs with when a field is
// left unset in the YAML file.
func Default() *Config {
	return &Config{
		App: AppConfig{
			ShutdownTimeout: 30 * time.Second,
		},
		Ingest: IngestConfig{
			WSURL:         "wss://pumpportal.fun/api/data",
			ReconnectBase: time.Second,
			ReconnectMax:  time.Minute,
			PingInterval:  30 * time.Second,
			ReadTimeout:   90 * time.Second,
			DedupTTL:      5 * time.Minute,
		},
		Dispatch: DispatchConfig{
			QueueSize:   1024,
			Workers:     8,
			MaxAttempts: 3,
			RetryBase:   500 * time.Millisecond,
			RetryMax:    10 * time.Second,
			StepTimeout: 15 * time.Second,
		},
		Risk: RiskConfig{
			MinLiquiditySOL: 5,
			MinHolders:      10,
			MaxDevHoldPct:   50,
			MaxTop10HoldPct: 80,
			CopycatPatterns: []string{"official", "2.0", "v2", "real", "new", "legit"},
		},
		Scoring: ScoringConfig{
			CriticalCeiling: 20,
			FlagPenalty:     10,
		},
		Social: SocialConfig{
			KeyPrefix: "nova:social:",
			TTL:       15 * time.Minute,
			StaleTTL:  5 * time.Minute,
		},
		Alerting: AlertingConfig{
			HighScoreThreshold:   70,
			EscalationThreshold:  85,
			UrgentThreshold:      95,
			SocialSpikeThreshold: 80,
			DedupWindow:          5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides for credentials.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment environments supply secrets without writing them
// into the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TOKENWATCH_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("TOKENWATCH_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("TOKENWATCH_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TOKENWATCH_SLACK_TOKEN"); v != "" {
		c.Alerting.Slack.Token = v
	}
	if v := os.Getenv("TOKENWATCH_DISCORD_WEBHOOK_URL"); v != "" {
		c.Alerting.Discord.WebhookURL = v
	}
	if v := os.Getenv("TOKENWATCH_TELEGRAM_TOKEN"); v != "" {
		c.Alerting.Telegram.Token = v
	}
}

// Validate refuses configurations the pipeline cannot run with. Missing
// credentials for an enabled channel are a startup failure, not a degraded run.
func (c *Config) Validate() error {
	if c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: storage.postgres_dsn is required")
	}
	if c.Ingest.WSURL == "" {
		return fmt.Errorf("config: ingest.ws_url is required")
	}
	if c.Dispatch.QueueSize <= 0 {
		return fmt.Errorf("config: dispatch.queue_size must be positive")
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("config: dispatch.workers must be positive")
	}
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("config: dispatch.max_attempts must be positive")
	}
	if c.Alerting.DedupWindow <= 0 {
		return fmt.Errorf("config: alerting.dedup_window must be positive")
	}

	if c.Alerting.Slack.Enabled {
		if c.Alerting.Slack.Token == "" || c.Alerting.Slack.ChannelID == "" {
			return fmt.Errorf("config: slack channel enabled without token/channel_id")
		}
	}
	if c.Alerting.Discord.Enabled && c.Alerting.Discord.WebhookURL == "" {
		return fmt.Errorf("config: discord channel enabled without webhook_url")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.Token == "" || c.Alerting.Telegram.ChannelID == "" {
			return fmt.Errorf("config: telegram channel enabled without token/channel_id")
		}
	}

	return nil
}
