package config

import (
	"citypulse/internal/models"
)

const (
	MinTimeWindowMonths = 1
	MaxTimeWindowMonths = 120
)

var knownProviders = map[string]bool{"openai": true, "gemini": true, "language": true}

// Validate checks ranges and that every enabled provider or source has what it needs.
// It returns a *models.ConfigurationError naming the first offending key.
func (c *Config) Validate() error {
	a := c.Analysis
	if a.TimeWindowMonths < MinTimeWindowMonths || a.TimeWindowMonths > MaxTimeWindowMonths {
		return models.NewConfigurationError("analysis.time_window_months", "must be between %d and %d, got %d", MinTimeWindowMonths, MaxTimeWindowMonths, a.TimeWindowMonths)
	}
	if a.ItemsPerCityCap <= 0 {
		return models.NewConfigurationError("analysis.items_per_city_cap", "must be positive, got %d", a.ItemsPerCityCap)
	}
	if a.CityConcurrency <= 0 {
		return models.NewConfigurationError("analysis.city_concurrency", "must be positive, got %d", a.CityConcurrency)
	}
	if a.ScoringConcurrency <= 0 {
		return models.NewConfigurationError("analysis.scoring_concurrency", "must be positive, got %d", a.ScoringConcurrency)
	}
	if a.RunTimeout < 0 {
		return models.NewConfigurationError("analysis.run_timeout", "cannot be negative")
	}

	if !knownProviders[c.Oracle.Provider] {
		return models.NewConfigurationError("oracle.provider", "unsupported provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Provider != "language" && c.Oracle.Model == "" {
		return models.NewConfigurationError("oracle.model", "is required for provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return models.NewConfigurationError("oracle.temperature", "must be between 0 and 2")
	}
	if c.Oracle.MaxTokens <= 0 {
		return models.NewConfigurationError("oracle.max_tokens", "must be positive")
	}
	if err := c.requireProviderKey("oracle.provider", c.Oracle.Provider); err != nil {
		return err
	}

	if c.Summarization.Enabled {
		if err := c.requireCompletionProvider("summarization", c.Summarization.Provider, c.Summarization.Model); err != nil {
			return err
		}
	}
	if c.Research.Enabled {
		if err := c.requireCompletionProvider("research", c.Research.Provider, c.Research.Model); err != nil {
			return err
		}
	}

	if !c.Sources.Reddit.Enabled && !c.Sources.News.Enabled && !c.Sources.Bluesky.Enabled {
		return models.NewConfigurationError("sources", "at least one content source must be enabled")
	}
	if c.Sources.News.Enabled && c.Sources.News.APIKey == "" {
		return models.NewConfigurationError("sources.news.api_key", "is required when the news source is enabled (set NEWSAPI_KEY)")
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return models.NewConfigurationError("storage.dsn", "is required for driver %q", c.Storage.Driver)
		}
	default:
		return models.NewConfigurationError("storage.driver", "unsupported driver %q", c.Storage.Driver)
	}

	if c.Worker.Concurrency <= 0 {
		return models.NewConfigurationError("worker.concurrency", "must be a positive integer")
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return models.NewConfigurationError("worker.queues", "contains an empty queue name")
		}
		if priority <= 0 {
			return models.NewConfigurationError("worker.queues", "priority for queue '%s' must be positive", name)
		}
	}

	for model, price := range c.Pricing {
		if price.InputPerToken < 0 || price.OutputPerToken < 0 {
			return models.NewConfigurationError("pricing", "model '%s' has negative token cost", model)
		}
	}
	return nil
}

func (c *Config) requireCompletionProvider(section, provider, model string) error {
	if provider != "openai" && provider != "gemini" {
		return models.NewConfigurationError(section+".provider", "unsupported completion provider %q", provider)
	}
	if model == "" {
		return models.NewConfigurationError(section+".model", "is required when %s is enabled", section)
	}
	return c.requireProviderKey(section+".provider", provider)
}

func (c *Config) requireProviderKey(field, provider string) error {
	switch provider {
	case "openai":
		if c.Providers.OpenAI.APIKey == "" {
			return models.NewConfigurationError(field, "openai requires providers.openai.api_key (set OPENAI_API_KEY)")
		}
	case "gemini":
		if c.Providers.Gemini.APIKey == "" {
			return models.NewConfigurationError(field, "gemini requires providers.gemini.api_key (set GEMINI_API_KEY)")
		}
	}
	return nil
}
