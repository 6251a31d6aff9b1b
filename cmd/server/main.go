package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy/internal/config"
	"pharmacy/internal/db"
	httpapi "pharmacy/internal/http"
	"pharmacy/internal/logging"
	"pharmacy/internal/repository"
	"pharmacy/internal/repository/memory"
	"pharmacy/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pharmacy",
		Short:         "Pharmacy purchase and stock service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	var (
		inMemory bool
		migrate  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, inMemory, migrate)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "Keep all data in process memory instead of Postgres")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, inMemory, migrate bool) error {
	logger := logging.New(cfg.IsProduction(), cfg.LogLevel)

	var store repository.Store
	if inMemory {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		store = memory.New()
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			return err
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Int32("max_conns", cfg.DBMaxConns).Msg("connected to database")

		if migrate {
			applied, err := db.RunMigrations(ctx, pool)
			if err != nil {
				return err
			}
			logger.Info().Int("applied", applied).Msg("migrations up to date")
		}
		store = repository.New(pool)
	}

	handler := httpapi.NewHandler(service.New(store))
	router := httpapi.NewRouter(handler, httpapi.RouterOptions{
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("pharmacy listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serveErr:
		if ok {
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if closeErr := server.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("force close failed")
		}
	}
	return nil
}
