package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/codmer/pulsedoc/internal/api/handlers"
	"github.com/codmer/pulsedoc/internal/config"
	"github.com/codmer/pulsedoc/internal/database"
	"github.com/codmer/pulsedoc/internal/jobs"
	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/metrics"
	"github.com/codmer/pulsedoc/internal/server"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/codmer/pulsedoc/internal/telemetry"
	"github.com/spf13/cobra"
)

const serviceName = "pulsedocd"

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the pulsedoc API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides PULSEDOC_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().String("migrations", "file://migrations", "Migration source URL")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.SentryDSN != "" {
		// 10% sampling outside development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", "error", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	pool, err := databasePool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		source, _ := cmd.Flags().GetString("migrations")
		version, err := database.Migrate(cfg.DatabaseURL, source)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("migrations: database is up to date", "version", version)
	}

	m := metrics.New()
	st, err := buildStack(ctx, cfg, pool, m, logger)
	if err != nil {
		return err
	}

	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, st.auth, logger); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	if st.storage != nil {
		if err := st.storage.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("object storage ready", "bucket", cfg.S3Bucket)
	}

	var backfillWorker *jobs.Worker
	if cfg.BackfillInterval > 0 {
		backfill := jobs.NewEmbeddingBackfill(st.chunks, st.embeddings, cfg.BackfillBatchSize, logger)
		backfillWorker = jobs.NewWorker(backfill, cfg.BackfillInterval, logger)
		go backfillWorker.Start(ctx)
		logger.Info("embedding backfill worker started", "interval", cfg.BackfillInterval.String())
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   st.auth,
		DocumentHandler: handlers.NewDocumentHandler(st.documents, cfg.MaxUploadBytes),
		AuthHandler:     handlers.NewAuthHandler(st.auth),
		Metrics:         m,
		Logger:          logger,
		MaxUploadBytes:  cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down")

	if backfillWorker != nil {
		backfillWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, logger *slog.Logger) error {
	tenant, err := authSvc.GetOrCreateTenant(ctx, cfg.InitTenantName)
	if err != nil {
		return fmt.Errorf("failed to get or create tenant: %w", err)
	}
	logger.Info("bootstrap: tenant ready", "tenant", tenant.Name, "tenant_id", tenant.ID)

	if cfg.InitAPIKey == "" {
		return nil
	}
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid PULSEDOC_INIT_API_KEY format (expected 'pdk_<64 hex chars>')")
	}

	if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil {
		logger.Info("bootstrap: API key already exists")
		return nil
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", cfg.InitAPIKey); err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}
	logger.Info("bootstrap: created API key", "tenant_id", tenant.ID)
	return nil
}
