package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // embedded zoneinfo for minimal images

	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scalecode-solutions/naptrack/internal/api"
	"github.com/scalecode-solutions/naptrack/internal/auth"
	"github.com/scalecode-solutions/naptrack/internal/config"
	"github.com/scalecode-solutions/naptrack/internal/db"
	"github.com/scalecode-solutions/naptrack/internal/logging"
	"github.com/scalecode-solutions/naptrack/internal/service"
)

var (
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "naptrack",
	Short: "Infant sleep tracking and scheduling API",
	Long: `naptrack records naps and nights, tracks the two-to-one nap transition
and recommends the next nap or bedtime from the child's wake windows.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			configPath = os.Getenv("NAPTRACK_CONFIG")
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel, cfg.Env)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StorageBackend != config.BackendPostgres {
			return fmt.Errorf("migrate needs STORAGE_BACKEND=%s, got %s", config.BackendPostgres, cfg.StorageBackend)
		}
		database, err := db.New(cfg.DatabaseURL, cfg.MaxOpenConns)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env: NAPTRACK_CONFIG)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore returns the configured store.
func openStore() (db.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		return db.NewMemory(), nil
	default:
		return db.New(cfg.DatabaseURL, cfg.MaxOpenConns)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	key, err := cfg.TokenKey()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc := service.New(store, logger, service.WithDefaultLocation(cfg.Location()))
	apiHandler := api.New(svc, auth.New(key), logger)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Timezone", api.RequestIDHeader}),
		handlers.ExposedHeaders([]string{api.RequestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger)),
		handlers.PrintRecoveryStack(cfg.Env == "development"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      recovery(corsHandler(apiHandler.Router())),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(logger),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("naptrack server starting",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageBackend),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server exited")
	return nil
}
