package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the content production system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Trends    TrendsConfig    `mapstructure:"trends"`
	Research  ResearchConfig  `mapstructure:"research"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Search    SearchConfig    `mapstructure:"search"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// PlannerConfig bounds the daily plan and its build schedule
type PlannerConfig struct {
	MaxJobs   int    `mapstructure:"max_jobs"`
	StartHour int    `mapstructure:"start_hour"`
	EndHour   int    `mapstructure:"end_hour"`
	BuildCron string `mapstructure:"build_cron"`
}

func (p PlannerConfig) Validate() error {
	if p.MaxJobs < 1 {
		return fmt.Errorf("planner.max_jobs must be >= 1")
	}
	if p.StartHour < 0 || p.EndHour > 24 || p.StartHour >= p.EndHour {
		return fmt.Errorf("planner window [%d,%d) is invalid", p.StartHour, p.EndHour)
	}
	return nil
}

// SchedulerConfig tunes the dispatch loop
type SchedulerConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
}

// TrendsConfig selects and tunes the trend candidate source
type TrendsConfig struct {
	Provider string        `mapstructure:"provider"` // googletrends, static
	Geo      string        `mapstructure:"geo"`
	Endpoint string        `mapstructure:"endpoint"`
	SeedFile string        `mapstructure:"seed_file"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (t TrendsConfig) Validate() error {
	if t.Provider == "static" && strings.TrimSpace(t.SeedFile) == "" {
		return fmt.Errorf("trends.seed_file required for the static provider")
	}
	return nil
}

// ResearchConfig controls pre-generation source gathering
type ResearchConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxSources int           `mapstructure:"max_sources"`
	Fetcher    string        `mapstructure:"fetcher"` // http, chromedp
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxChars   int           `mapstructure:"max_chars"`
}

// GeneratorConfig contains article generator settings
type GeneratorConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, gemini
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Endpoint    string        `mapstructure:"endpoint"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PromptsFile string        `mapstructure:"prompts_file"`
}

func (g GeneratorConfig) Validate() error {
	if strings.TrimSpace(g.APIKey) == "" {
		return fmt.Errorf("generator.api_key required")
	}
	return nil
}

// LedgerConfig controls the processed-topic dedup window
type LedgerConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN returns the connection URL, assembling one from the parts when no
// explicit url is configured.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// SearchConfig contains full-text index settings
type SearchConfig struct {
	IndexPath string `mapstructure:"index_path"` // empty = in-memory
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("planner.max_jobs", 10)
	viper.SetDefault("planner.start_hour", 8)
	viper.SetDefault("planner.end_hour", 20)
	viper.SetDefault("planner.build_cron", "@daily")
	viper.SetDefault("scheduler.tick_interval", 2*time.Minute)
	viper.SetDefault("scheduler.dispatch_timeout", 5*time.Minute)
	viper.SetDefault("scheduler.stale_after", 15*time.Minute)
	viper.SetDefault("scheduler.lock_ttl", 2*time.Minute)
	viper.SetDefault("trends.provider", "googletrends")
	viper.SetDefault("trends.geo", "US")
	viper.SetDefault("research.enabled", true)
	viper.SetDefault("research.max_sources", 5)
	viper.SetDefault("research.fetcher", "http")
	viper.SetDefault("research.max_chars", 8000)
	viper.SetDefault("generator.provider", "openai")
	viper.SetDefault("ledger.window", 48*time.Hour)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("TRENDPRESS")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (TRENDPRESS_*)

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config

	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Planner.Validate(); err != nil {
		panic(err)
	}
	if err := config.Trends.Validate(); err != nil {
		panic(err)
	}
	if err := config.Generator.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Redis.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.Telemetry.Validate(); err != nil {
		panic(err)
	}
	return &config
}
