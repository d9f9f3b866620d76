// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/albarami/udc-sub000/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Models    ModelsConfig    `yaml:"models" mapstructure:"models"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Budget    BudgetConfig    `yaml:"budget" mapstructure:"budget"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Pricing   cost.Rates      `yaml:"pricing" mapstructure:"pricing"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`

	// ProfilesPath optionally overrides the built-in specialist personas.
	ProfilesPath string `yaml:"profiles_path" mapstructure:"profiles_path"`
}

// AnthropicConfig holds API credentials and client limits.
type AnthropicConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst         int     `yaml:"burst" mapstructure:"burst"`
}

// ModelsConfig selects model IDs and temperatures per stage family.
type ModelsConfig struct {
	ExtractionModel string `yaml:"extraction_model" mapstructure:"extraction_model"`
	AnalysisModel   string `yaml:"analysis_model" mapstructure:"analysis_model"`
	SynthesisModel  string `yaml:"synthesis_model" mapstructure:"synthesis_model"`

	ExtractionTemperature float64 `yaml:"extraction_temperature" mapstructure:"extraction_temperature"`
	AnalysisTemperature   float64 `yaml:"analysis_temperature" mapstructure:"analysis_temperature"`
	SynthesisTemperature  float64 `yaml:"synthesis_temperature" mapstructure:"synthesis_temperature"`
}

// EngineConfig controls routing and stage execution policy.
type EngineConfig struct {
	// UseRouting enables complexity-based path selection. When false,
	// every query takes the full deliberation path.
	UseRouting bool `yaml:"use_routing" mapstructure:"use_routing"`

	// UseParallelGraph fans the four specialists out concurrently instead
	// of running them in sequence with shared context.
	UseParallelGraph bool `yaml:"use_parallel_graph" mapstructure:"use_parallel_graph"`

	// UseLLMClassifier enables the LLM fallback when the heuristic
	// classifier is inconclusive.
	UseLLMClassifier bool `yaml:"use_llm_classifier" mapstructure:"use_llm_classifier"`

	// MaxRetries is attempts per stage (including the first).
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBackoffBase is the exponential backoff base, in seconds.
	RetryBackoffBase float64 `yaml:"retry_backoff_base" mapstructure:"retry_backoff_base"`

	// StageTimeouts maps stage name to timeout seconds. Stages absent
	// from the map use their built-in default.
	StageTimeouts map[string]int `yaml:"stage_timeouts" mapstructure:"stage_timeouts"`
}

// BudgetConfig holds the soft per-session budgets.
type BudgetConfig struct {
	MaxLLMCalls     int     `yaml:"max_llm_calls" mapstructure:"max_llm_calls"`
	MaxCost         float64 `yaml:"max_cost" mapstructure:"max_cost"`
	MaxTotalSeconds float64 `yaml:"max_total_seconds" mapstructure:"max_total_seconds"`
}

// RetrievalConfig configures the document searcher.
type RetrievalConfig struct {
	DocumentsDir string `yaml:"documents_dir" mapstructure:"documents_dir"`
	TopK         int    `yaml:"top_k" mapstructure:"top_k"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the streaming HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ADVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "advisor.db")
	// Empty defaults register the keys so AutomaticEnv can populate them.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("retrieval.documents_dir", "")
	v.SetDefault("profiles_path", "")
	v.SetDefault("anthropic.requests_per_sec", 5)
	v.SetDefault("anthropic.burst", 5)
	v.SetDefault("models.extraction_model", "claude-haiku-4-5-20251001")
	v.SetDefault("models.analysis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.synthesis_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("models.extraction_temperature", 0.1)
	v.SetDefault("models.analysis_temperature", 0.7)
	v.SetDefault("models.synthesis_temperature", 0.5)
	v.SetDefault("engine.use_routing", true)
	v.SetDefault("engine.use_parallel_graph", false)
	v.SetDefault("engine.use_llm_classifier", false)
	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.retry_backoff_base", 2)
	v.SetDefault("budget.max_llm_calls", 15)
	v.SetDefault("budget.max_cost", 2.00)
	v.SetDefault("budget.max_total_seconds", 120)
	v.SetDefault("retrieval.top_k", 5)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Pricing == nil {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// Validate rejects configurations the engine refuses to run with. Called
// synchronously at session start.
func (c *Config) Validate() error {
	if c.Models.ExtractionModel == "" {
		return eris.New("config: extraction_model is required")
	}
	if c.Models.AnalysisModel == "" {
		return eris.New("config: analysis_model is required")
	}
	if c.Models.SynthesisModel == "" {
		return eris.New("config: synthesis_model is required")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
