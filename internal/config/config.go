package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PricingInfo holds cost details per token for a specific model.
type PricingInfo struct {
	InputPerToken  float64 `mapstructure:"input_per_token"`
	OutputPerToken float64 `mapstructure:"output_per_token"`
}

type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"log"`

	Analysis struct {
		Cities             []string      `mapstructure:"cities"`
		Pillars            []string      `mapstructure:"pillars"`
		TimeWindowMonths   int           `mapstructure:"time_window_months"`
		// ItemsPerCityCap bounds each (city, source) pair, not the city total: with three
		// sources enabled a city can return up to three times this many items.
		ItemsPerCityCap    int           `mapstructure:"items_per_city_cap"`
		CityConcurrency    int           `mapstructure:"city_concurrency"`
		ScoringConcurrency int           `mapstructure:"scoring_concurrency"`
		RunTimeout         time.Duration `mapstructure:"run_timeout"`
	} `mapstructure:"analysis"`

	Taxonomy struct {
		File string `mapstructure:"file"`
	} `mapstructure:"taxonomy"`

	Oracle struct {
		Provider    string  `mapstructure:"provider"` // "openai", "gemini" or "language"
		Model       string  `mapstructure:"model"`
		Temperature float32 `mapstructure:"temperature"`
		MaxTokens   int     `mapstructure:"max_tokens"`
		Prompt      string  `mapstructure:"prompt"` // path to a prompt template, optional
	} `mapstructure:"oracle"`

	Summarization struct {
		Enabled  bool   `mapstructure:"enabled"`
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
		Prompt   string `mapstructure:"prompt"`
	} `mapstructure:"summarization"`

	Research struct {
		Enabled  bool   `mapstructure:"enabled"`
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"research"`

	Providers struct {
		OpenAI struct {
			APIKey  string `mapstructure:"api_key"`
			BaseURL string `mapstructure:"base_url"`
		} `mapstructure:"openai"`
		Gemini struct {
			APIKey string `mapstructure:"api_key"`
		} `mapstructure:"gemini"`
		Language struct {
			CredentialsFile string `mapstructure:"credentials_file"`
		} `mapstructure:"language"`
	} `mapstructure:"providers"`

	Sources struct {
		Reddit struct {
			Enabled   bool   `mapstructure:"enabled"`
			BaseURL   string `mapstructure:"base_url"`
			UserAgent string `mapstructure:"user_agent"`
		} `mapstructure:"reddit"`
		News struct {
			Enabled bool   `mapstructure:"enabled"`
			BaseURL string `mapstructure:"base_url"`
			APIKey  string `mapstructure:"api_key"`
		} `mapstructure:"news"`
		Bluesky struct {
			Enabled bool   `mapstructure:"enabled"`
			Host    string `mapstructure:"host"`
		} `mapstructure:"bluesky"`
		HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	} `mapstructure:"sources"`

	Storage struct {
		Driver string `mapstructure:"driver"` // "memory", "sqlite" or "postgres"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"storage"`

	Server struct {
		Addr string `mapstructure:"addr"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	}

	Schedule struct {
		Cron string `mapstructure:"cron"`
	} `mapstructure:"schedule"`

	// Pricing: map[model] = struct{input_per_token, output_per_token}
	Pricing map[string]PricingInfo `mapstructure:"pricing"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("analysis.time_window_months", 12)
	v.SetDefault("analysis.items_per_city_cap", 100)
	v.SetDefault("analysis.city_concurrency", 4)
	v.SetDefault("analysis.scoring_concurrency", 8)
	v.SetDefault("analysis.run_timeout", 10*time.Minute)

	v.SetDefault("oracle.provider", "openai")
	v.SetDefault("oracle.model", "gpt-4o")
	v.SetDefault("oracle.temperature", 0.3)
	v.SetDefault("oracle.max_tokens", 120)

	v.SetDefault("summarization.enabled", false)
	v.SetDefault("summarization.provider", "openai")
	v.SetDefault("summarization.model", "gpt-4o")
	v.SetDefault("research.enabled", false)
	v.SetDefault("research.provider", "openai")
	v.SetDefault("research.model", "gpt-4o")

	v.SetDefault("sources.reddit.enabled", true)
	v.SetDefault("sources.reddit.base_url", "https://www.reddit.com")
	v.SetDefault("sources.reddit.user_agent", "citypulse/1.0")
	v.SetDefault("sources.news.enabled", true)
	v.SetDefault("sources.news.base_url", "https://newsapi.org")
	v.SetDefault("sources.bluesky.enabled", false)
	v.SetDefault("sources.bluesky.host", "https://public.api.bsky.app")
	v.SetDefault("sources.http_timeout", 20*time.Second)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("server.addr", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.queues", map[string]int{"analysis": 1})
	v.SetDefault("schedule.cron", "0 */6 * * *")

	v.SetDefault("pricing", map[string]interface{}{
		"gpt-4o": map[string]interface{}{"input_per_token": 0.0000025, "output_per_token": 0.00001},
	})
}

func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads config.yaml from the working directory or ~/.config/citypulse into v, then
// layers the environment over it.
func Load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/citypulse")

	SetDefaults(v)

	// CITYPULSE_ANALYSIS_ITEMS_PER_CITY_CAP overrides analysis.items_per_city_cap.
	v.SetEnvPrefix("CITYPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known provider variables, without the prefix.
	_ = v.BindEnv("providers.openai.api_key", "CITYPULSE_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("providers.gemini.api_key", "CITYPULSE_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("providers.language.credentials_file", "CITYPULSE_PROVIDERS_LANGUAGE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("sources.news.api_key", "CITYPULSE_SOURCES_NEWS_API_KEY", "NEWSAPI_KEY")
	_ = v.BindEnv("storage.dsn", "CITYPULSE_STORAGE_DSN", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		// Running on defaults and env vars alone is fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ServerAddress joins the configured host and port.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Addr, c.Server.Port)
}
