package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"citypulse/internal/app"
	"citypulse/internal/config"
	"citypulse/internal/store"
	"citypulse/internal/taxonomy"
)

// configOnly marks commands that need the config and taxonomy but no providers or stores.
const configOnly = "config-only"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "citypulse",
	Short: "City sentiment analysis across urban-policy pillars",
	Long: `CityPulse pulls social posts and news articles about a set of cities, scores each
item's sentiment with an LLM, tags it with the evaluation pillars it touches, and
aggregates the results by city, pillar, and source.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is given, print help.
		cmd.Help()
	},
	// PersistentPreRunE runs before any subcommand's RunE
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		// A missing .env is normal.
		_ = godotenv.Load()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := configureLogging(cfg.Log.Level, cfg.Log.Format); err != nil {
			return err
		}

		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		if cmd.Annotations[configOnly] == "true" {
			tax, catalog, err := taxonomy.LoadFile(cfg.Taxonomy.File)
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}
			ctx = context.WithValue(ctx, taxonomyKey, &catalogs{taxonomy: tax, catalog: catalog})
			cmd.SetContext(ctx)
			return nil
		}

		appInstance, err := app.NewApp(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}

		// Store the app instance in the command's context
		ctx = context.WithValue(ctx, appKey, appInstance)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance, err := GetAppFromContext(cmd.Context()); err == nil {
			return appInstance.Close()
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configureLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Define a custom type for the context key to avoid collisions.
type contextKey string

const (
	appKey      contextKey = "app"
	configKey   contextKey = "config"
	taxonomyKey contextKey = "taxonomy"
)

type catalogs struct {
	taxonomy *taxonomy.Taxonomy
	catalog  *taxonomy.Catalog
}

// Helper function to retrieve the app instance from context
func GetAppFromContext(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		// This should not happen if PersistentPreRunE ran successfully
		return nil, fmt.Errorf("application instance not found in context")
	}
	return appInstance, nil
}

// catalogsFromContext works for both app-backed and config-only commands.
func catalogsFromContext(ctx context.Context) (*taxonomy.Taxonomy, *taxonomy.Catalog, error) {
	if appInstance, err := GetAppFromContext(ctx); err == nil {
		return appInstance.Taxonomy, appInstance.Catalog, nil
	}
	c, ok := ctx.Value(taxonomyKey).(*catalogs)
	if !ok || c == nil {
		return nil, nil, fmt.Errorf("taxonomy not found in context")
	}
	return c.taxonomy, c.catalog, nil
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("config not found in context")
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store connectivity and provider status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}

		fmt.Printf("Checking %s run store...\n", appInstance.Config.Storage.Driver)
		if err := appInstance.RunStore.Ping(ctx); err != nil {
			return fmt.Errorf("run store ping failed: %w", err)
		}
		fmt.Println("Run store connection successful.")

		fmt.Printf("Sentiment oracle: %s (model %s)\n", appInstance.Oracle.Name(), appInstance.Config.Oracle.Model)
		for _, src := range appInstance.Sources {
			fmt.Printf("Source: %s (%s)\n", src.Name(), src.Kind())
		}

		status := store.ProviderStatusDisabled
		name := "none"
		if cs := appInstance.CompletionService; cs != nil {
			status, name = cs.Status(), cs.Name()+"/"+cs.ModelName()
		}
		fmt.Printf("Completion provider: %s [%s]\n", name, status)
		return nil
	},
}
