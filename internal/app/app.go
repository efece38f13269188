package app

import (
	"context"
	"errors"
	"fmt"

	language "cloud.google.com/go/language/apiv2"
	"github.com/google/generative-ai-go/genai"
	"github.com/hibiken/asynq"
	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"citypulse/internal/config"
	"citypulse/internal/costtracker"
	"citypulse/internal/models"
	"citypulse/internal/pipeline"
	"citypulse/internal/services"
	"citypulse/internal/sources"
	"citypulse/internal/store"
	"citypulse/internal/store/primary"
	"citypulse/internal/store/sqlite"
	"citypulse/internal/taxonomy"
	"citypulse/pkg/sentiment"
)

type App struct {
	Config *config.Config

	Taxonomy *taxonomy.Taxonomy
	Catalog  *taxonomy.Catalog
	Sources  []pipeline.ContentSource
	Oracle   sentiment.Oracle
	Pipeline *pipeline.Pipeline

	RunStore  store.RunStore
	JobClient store.JobClient

	CostTracker *costtracker.MemoryTracker

	// --- Initialized Services ---
	CompletionService services.CompletionService // nil unless summarization or research is enabled
	SummaryService    services.SummaryService
	ResearchService   *services.ResearchService // nil when research is disabled
	AnalysisService   *services.AnalysisService

	openaiClient *openai.Client
	geminiClient *genai.Client
	closers      []func() error
}

// NewApp validates cfg and wires every component it enables.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, CostTracker: costtracker.New()}

	steps := []func(context.Context) error{
		app.initTaxonomy,
		app.initSources,
		app.initOracle,
		app.initRunStore,
		app.initJobClient,
		app.initCompletionService,
		app.initSummaryService,
		app.initResearchService,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Pipeline = pipeline.New(app.Taxonomy, app.Catalog, app.Sources, app.Oracle, pipeline.Options{
		CityConcurrency:    cfg.Analysis.CityConcurrency,
		ScoringConcurrency: cfg.Analysis.ScoringConcurrency,
	})
	app.AnalysisService = services.NewAnalysisService(app.Pipeline, app.RunStore, app.JobClient, cfg.Analysis.RunTimeout)

	log.Infof("Application initialization complete (oracle=%s, sources=%d, storage=%s)",
		app.Oracle.Name(), len(app.Sources), cfg.Storage.Driver)
	return app, nil
}

// DefaultRequest is the run request the config describes. Empty city or pillar lists
// mean the whole catalog or taxonomy.
func (a *App) DefaultRequest() models.RunRequest {
	req := models.RunRequest{
		Cities:           a.Config.Analysis.Cities,
		Pillars:          a.Config.Analysis.Pillars,
		TimeWindowMonths: a.Config.Analysis.TimeWindowMonths,
		ItemsPerCityCap:  a.Config.Analysis.ItemsPerCityCap,
	}
	if len(req.Cities) == 0 {
		req.Cities = a.Catalog.Names()
	}
	if len(req.Pillars) == 0 {
		req.Pillars = a.Taxonomy.Names()
	}
	return req
}

// Close releases clients and stores in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// --- Private Helper Methods ---

func (a *App) initTaxonomy(ctx context.Context) error {
	tax, catalog, err := taxonomy.LoadFile(a.Config.Taxonomy.File)
	if err != nil {
		return fmt.Errorf("init taxonomy: %w", err)
	}
	a.Taxonomy, a.Catalog = tax, catalog
	return nil
}

func (a *App) initSources(ctx context.Context) error {
	s := a.Config.Sources
	if s.Reddit.Enabled {
		a.Sources = append(a.Sources, sources.NewRedditSource(s.Reddit.BaseURL, s.Reddit.UserAgent, s.HTTPTimeout))
	}
	if s.Bluesky.Enabled {
		a.Sources = append(a.Sources, sources.NewBlueskySource(s.Bluesky.Host, s.HTTPTimeout))
	}
	if s.News.Enabled {
		a.Sources = append(a.Sources, sources.NewNewsAPISource(s.News.BaseURL, s.News.APIKey, s.HTTPTimeout))
	}
	for _, src := range a.Sources {
		log.Infof("Initialized %s source (%s)", src.Name(), src.Kind())
	}
	return nil
}

func (a *App) initOracle(ctx context.Context) error {
	cfg := a.Config
	prompt, err := config.LoadPromptContent(cfg.Oracle.Prompt, sentiment.DefaultPromptTemplate)
	if err != nil {
		return fmt.Errorf("load oracle prompt: %w", err)
	}
	opts := sentiment.Options{
		Model:          cfg.Oracle.Model,
		Temperature:    cfg.Oracle.Temperature,
		MaxTokens:      cfg.Oracle.MaxTokens,
		PromptTemplate: prompt,
	}

	switch cfg.Oracle.Provider {
	case "openai":
		a.Oracle = sentiment.NewOpenAIOracle(a.openAI(), opts, a.CostTracker, cfg.Pricing)
	case "gemini":
		client, err := a.gemini(ctx)
		if err != nil {
			return err
		}
		a.Oracle = sentiment.NewGeminiOracle(sentiment.NewGeminiModel(client, opts), opts, a.CostTracker, cfg.Pricing)
	case "language":
		var clientOpts []option.ClientOption
		if f := cfg.Providers.Language.CredentialsFile; f != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(f))
		}
		client, err := language.NewClient(ctx, clientOpts...)
		if err != nil {
			return fmt.Errorf("init natural language client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Oracle = sentiment.NewNaturalLanguageOracle(client)
	default:
		return models.NewConfigurationError("oracle.provider", "unsupported provider %q", cfg.Oracle.Provider)
	}
	log.Infof("Initialized %s sentiment oracle (model %s)", a.Oracle.Name(), cfg.Oracle.Model)
	return nil
}

func (a *App) initRunStore(ctx context.Context) error {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case "memory":
		a.RunStore = store.NewMemoryStore()
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return fmt.Errorf("init sqlite run store: %w", err)
		}
		a.RunStore = s
	case "postgres":
		s, err := primary.NewPrimaryStore(ctx, cfg.DSN)
		if err != nil {
			return fmt.Errorf("init postgres run store: %w", err)
		}
		a.RunStore = s
	default:
		return models.NewConfigurationError("storage.driver", "unsupported driver %q", cfg.Driver)
	}
	a.closers = append(a.closers, a.RunStore.Close)
	return nil
}

// initJobClient never dials; Redis is only needed once a run is enqueued.
func (a *App) initJobClient(ctx context.Context) error {
	jc := store.NewAsynqJobClient(a.RedisOpt())
	a.JobClient = jc
	a.closers = append(a.closers, jc.Close)
	return nil
}

func (a *App) initCompletionService(ctx context.Context) error {
	cfg := a.Config
	provider, model := "", ""
	switch {
	case cfg.Summarization.Enabled:
		provider, model = cfg.Summarization.Provider, cfg.Summarization.Model
	case cfg.Research.Enabled:
		provider, model = cfg.Research.Provider, cfg.Research.Model
	default:
		return nil
	}
	completer, err := a.completionFor(ctx, provider, model)
	if err != nil {
		return err
	}
	a.CompletionService = completer
	return nil
}

func (a *App) initSummaryService(ctx context.Context) error {
	cfg := a.Config
	if !cfg.Summarization.Enabled {
		a.SummaryService = services.NewNoopSummaryService()
		return nil
	}
	prompt, err := config.LoadPromptContent(cfg.Summarization.Prompt, services.DefaultSummaryPrompt)
	if err != nil {
		log.Warnf("Failed to load summarization prompt: %v. Using the default prompt.", err)
		prompt = services.DefaultSummaryPrompt
	}
	a.SummaryService = services.NewSummaryService(a.CompletionService, prompt)
	return nil
}

func (a *App) initResearchService(ctx context.Context) error {
	cfg := a.Config
	if !cfg.Research.Enabled {
		return nil
	}
	completer := a.CompletionService
	if cfg.Summarization.Enabled && (cfg.Research.Provider != cfg.Summarization.Provider || cfg.Research.Model != cfg.Summarization.Model) {
		var err error
		if completer, err = a.completionFor(ctx, cfg.Research.Provider, cfg.Research.Model); err != nil {
			return err
		}
	}
	a.ResearchService = services.NewResearchService(completer)
	return nil
}

func (a *App) completionFor(ctx context.Context, provider, model string) (services.CompletionService, error) {
	switch provider {
	case "openai":
		return services.NewOpenAIProvider(a.openAI(), model, a.CostTracker, a.Config.Pricing), nil
	case "gemini":
		client, err := a.gemini(ctx)
		if err != nil {
			return nil, err
		}
		return services.NewGeminiProvider(client, model, a.CostTracker, a.Config.Pricing), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported completion provider configured: %s", provider)
	}
}

// RedisOpt is shared by the job client and the worker server.
func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

func (a *App) openAI() *openai.Client {
	if a.openaiClient == nil {
		oc := openai.DefaultConfig(a.Config.Providers.OpenAI.APIKey)
		if base := a.Config.Providers.OpenAI.BaseURL; base != "" {
			oc.BaseURL = base
		}
		a.openaiClient = openai.NewClientWithConfig(oc)
	}
	return a.openaiClient
}

func (a *App) gemini(ctx context.Context) (*genai.Client, error) {
	if a.geminiClient == nil {
		client, err := genai.NewClient(ctx, option.WithAPIKey(a.Config.Providers.Gemini.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		a.geminiClient = client
		a.closers = append(a.closers, client.Close)
	}
	return a.geminiClient, nil
}
