package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	REST     RESTConfig     `yaml:"rest"`
	WS       WSConfig       `yaml:"ws"`
	State    StateConfig    `yaml:"state"`
	Journal  JournalConfig  `yaml:"journal"`
	Strategy StrategyConfig `yaml:"strategy"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type RESTConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type JournalConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type StrategyConfig struct {
	Symbol           string        `yaml:"symbol"`
	TotalInvestment  float64       `yaml:"total_investment"`
	StopLossPct      float64       `yaml:"stop_loss_pct"`
	DurationDays     int           `yaml:"duration_days"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	BuyInterval      time.Duration `yaml:"buy_interval"`
	FractionalSuffix string        `yaml:"fractional_suffix"`
	RoundLotSize     float64       `yaml:"round_lot_size"`
	QuoteMaxAge      time.Duration `yaml:"quote_max_age"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.REST.Timeout == 0 {
		cfg.REST.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" && cfg.REST.BaseURL != "" {
		cfg.WS.URL = deriveWSURL(cfg.REST.BaseURL)
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 20 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/dca-guard-bot.db"
	}
	if cfg.Journal.Schema == "" {
		cfg.Journal.Schema = "public"
	}
	if cfg.Journal.QueueSize == 0 {
		cfg.Journal.QueueSize = 256
	}
	if cfg.Strategy.TickInterval == 0 {
		cfg.Strategy.TickInterval = time.Minute
	}
	if cfg.Strategy.BuyInterval == 0 {
		cfg.Strategy.BuyInterval = 24 * time.Hour
	}
	if cfg.Strategy.FractionalSuffix == "" {
		cfg.Strategy.FractionalSuffix = "F"
	}
	if cfg.Strategy.RoundLotSize == 0 {
		cfg.Strategy.RoundLotSize = 100
	}
	if cfg.Strategy.QuoteMaxAge == 0 {
		cfg.Strategy.QuoteMaxAge = 5 * time.Second
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("DCA_TELEGRAM_TOKEN")); token != "" {
		cfg.Telegram.Token = token
	}
	if chatID := strings.TrimSpace(os.Getenv("DCA_TELEGRAM_CHAT_ID")); chatID != "" {
		cfg.Telegram.ChatID = chatID
	}
	if dsn := strings.TrimSpace(os.Getenv("DCA_JOURNAL_DSN")); dsn != "" {
		cfg.Journal.DSN = dsn
	}
}

func validate(cfg *Config) error {
	if cfg.REST.BaseURL == "" {
		return errors.New("rest.base_url is required")
	}
	if cfg.Strategy.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if cfg.Strategy.TotalInvestment <= 0 {
		return errors.New("strategy.total_investment must be > 0")
	}
	if cfg.Strategy.DurationDays <= 0 {
		return errors.New("strategy.duration_days must be > 0")
	}
	if cfg.Strategy.StopLossPct < 0 || cfg.Strategy.StopLossPct > 1 {
		return errors.New("strategy.stop_loss_pct must be within [0, 1]")
	}
	if cfg.Strategy.TickInterval < 0 || cfg.Strategy.BuyInterval < 0 {
		return errors.New("strategy intervals must not be negative")
	}
	if cfg.Strategy.RoundLotSize <= 0 {
		return errors.New("strategy.round_lot_size must be > 0")
	}
	if cfg.Strategy.QuoteMaxAge < 0 {
		return errors.New("strategy.quote_max_age must not be negative")
	}
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.DSN) == "" {
		return errors.New("journal.dsn is required when journal is enabled")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

func deriveWSURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + "/ws"
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://") + "/ws"
	}
	return baseURL + "/ws"
}
