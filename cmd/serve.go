package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"citypulse/internal/apihandlers"
)

var (
	serveAddr string // Listen address
	servePort int    // Listen port
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run CityPulse as an HTTP API server",
	Long: `Starts an HTTP server exposing the city catalog, the pillar taxonomy, and analysis
runs. POST /api/v1/runs?async=true queues the run for the worker instead of
running it in the request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Retrieve the application instance from context
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config
		if !cmd.Flags().Changed("addr") {
			serveAddr = cfg.Server.Addr
		}
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}

		if lvl := log.GetLevel(); lvl < log.DebugLevel {
			gin.SetMode(gin.ReleaseMode)
		}
		router := gin.Default() // Includes logger and recovery middleware

		apiHandler := apihandlers.NewAPIHandler(appInstance.AnalysisService, appInstance.Taxonomy, appInstance.Catalog, appInstance.DefaultRequest())
		apiHandler.Ping = appInstance.RunStore.Ping
		apihandlers.RegisterRoutes(router, apiHandler)

		listenAddr := serveAddr + ":" + strconv.Itoa(servePort)
		srv := &http.Server{Addr: listenAddr, Handler: router}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Infof("Starting CityPulse API server on http://%s", listenAddr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to run API server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutdown signal received. Stopping API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("API server shutdown: %w", err)
		}
		log.Info("CityPulse API server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
}
