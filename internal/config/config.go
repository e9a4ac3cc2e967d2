// Package config loads application settings with viper and the media source
// catalog with yaml.v3.
package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// ErrInvalid marks a configuration value outside its allowed set or range.
var ErrInvalid = eris.New("config: invalid value")

const (
	envPrefix       = "IDCINTEL"
	defaultTimezone = "Asia/Shanghai"
	glmBaseURL      = "https://open.bigmodel.cn/api/paas/v4"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig     `mapstructure:"store"`
	Log         LogConfig       `mapstructure:"log"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Pipeline    PipelineConfig  `mapstructure:"pipeline"`
	Summary     SummaryConfig   `mapstructure:"summary"`
	LinkCheck   LinkCheckConfig `mapstructure:"linkcheck"`
	Report      ReportConfig    `mapstructure:"report"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	SourcesFile string          `mapstructure:"sources_file"`
	Timezone    string          `mapstructure:"timezone"`
}

// StoreConfig selects and configures the article repository.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig describes the relevance and summary service.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TimeoutSecs int     `mapstructure:"timeout_secs"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	Burst       int     `mapstructure:"burst"`
	Threshold   int     `mapstructure:"threshold"`
}

// Timeout returns the per-call deadline.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Enabled reports whether a provider is configured.
func (c LLMConfig) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderHTTP      = "http"
	ProviderNone      = "none"
)

// PipelineConfig tunes batch collection.
type PipelineConfig struct {
	Concurrency    int      `mapstructure:"concurrency"`
	PerSourceLimit int      `mapstructure:"per_source_limit"`
	DenyList       []string `mapstructure:"deny_list"`
}

// SummaryConfig tunes the summary fill job.
type SummaryConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	RetryDelaySecs int `mapstructure:"retry_delay_secs"`
}

// LinkCheckConfig tunes link verification.
type LinkCheckConfig struct {
	TimeoutSecs int `mapstructure:"timeout_secs"`
	Concurrency int `mapstructure:"concurrency"`
}

// ReportConfig controls the weekly report.
type ReportConfig struct {
	Days      int    `mapstructure:"days"`
	OutputDir string `mapstructure:"output_dir"`
	Title     string `mapstructure:"title"`
	// ReadyOnly restricts the report to summarized articles with valid links.
	ReadyOnly bool `mapstructure:"ready_only"`
	// Insights adds the weekly overview and section comments.
	Insights bool `mapstructure:"insights"`
}

// TelegramConfig wires the digest notifier. Empty token disables it.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	BaseURL  string `mapstructure:"base_url"`
}

// Enabled reports whether both token and chat are set.
func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// SchedulerConfig holds cron specs (seconds first) for recurring jobs.
type SchedulerConfig struct {
	CollectSpec string `mapstructure:"collect_spec"`
	ReportSpec  string `mapstructure:"report_spec"`
}

// Load reads config.yaml from path (or the working directory when path is
// empty), then applies IDCINTEL_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	// The GLM endpoint default only makes sense for OpenAI-compatible providers.
	if cfg.LLM.Provider == ProviderAnthropic && cfg.LLM.BaseURL == glmBaseURL {
		cfg.LLM.BaseURL = ""
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/intelligence.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", glmBaseURL)
	v.SetDefault("llm.model", "glm-4.5-air")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.timeout_secs", 30)
	v.SetDefault("llm.rate_limit", 2.0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.threshold", 8)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.per_source_limit", 20)
	v.SetDefault("pipeline.deny_list", []string{})
	v.SetDefault("summary.max_attempts", 3)
	v.SetDefault("summary.retry_delay_secs", 2)
	v.SetDefault("linkcheck.timeout_secs", 10)
	v.SetDefault("linkcheck.concurrency", 4)
	v.SetDefault("report.days", 7)
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.title", "IDC行业周报")
	v.SetDefault("report.ready_only", false)
	v.SetDefault("report.insights", true)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("scheduler.collect_spec", "0 0 8 * * *")
	v.SetDefault("scheduler.report_spec", "0 0 17 * * 5")
	v.SetDefault("sources_file", "config/sources.yaml")
	v.SetDefault("timezone", defaultTimezone)
}

// Validate checks enumerations and numeric ranges.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.Wrap(ErrInvalid, "store.path is required for sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.Wrap(ErrInvalid, "store.database_url is required for postgres")
		}
	default:
		return eris.Wrapf(ErrInvalid, "store.driver %q", c.Store.Driver)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return eris.Wrapf(ErrInvalid, "log.format %q", c.Log.Format)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderHTTP, ProviderNone, "":
	default:
		return eris.Wrapf(ErrInvalid, "llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Threshold < 0 || c.LLM.Threshold > 20 {
		return eris.Wrapf(ErrInvalid, "llm.threshold %d outside 0-20", c.LLM.Threshold)
	}
	if c.LLM.TimeoutSecs <= 0 {
		return eris.Wrapf(ErrInvalid, "llm.timeout_secs %d", c.LLM.TimeoutSecs)
	}
	if c.LLM.RateLimit < 0 {
		return eris.Wrapf(ErrInvalid, "llm.rate_limit %v", c.LLM.RateLimit)
	}

	if c.Pipeline.Concurrency < 1 {
		return eris.Wrapf(ErrInvalid, "pipeline.concurrency %d", c.Pipeline.Concurrency)
	}
	if c.Report.Days < 1 {
		return eris.Wrapf(ErrInvalid, "report.days %d", c.Report.Days)
	}

	for name, spec := range map[string]string{
		"scheduler.collect_spec": c.Scheduler.CollectSpec,
		"scheduler.report_spec":  c.Scheduler.ReportSpec,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.Parse(spec); err != nil {
			return eris.Wrapf(ErrInvalid, "%s %q: %v", name, spec, err)
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return eris.Wrapf(ErrInvalid, "timezone %q", c.Timezone)
	}
	return nil
}

// Location resolves Timezone, falling back to Asia/Shanghai.
func (c *Config) Location() *time.Location {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	return loc
}
