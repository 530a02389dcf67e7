package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/facturo/facturo/internal/api"
	v1 "github.com/facturo/facturo/internal/api/v1"
	"github.com/facturo/facturo/internal/cache"
	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	"github.com/facturo/facturo/internal/publisher"
	"github.com/facturo/facturo/internal/pubsub"
	"github.com/facturo/facturo/internal/pubsub/kafka"
	"github.com/facturo/facturo/internal/pubsub/memory"
	"github.com/facturo/facturo/internal/repository"
	"github.com/facturo/facturo/internal/sentry"
	"github.com/facturo/facturo/internal/service"
	"github.com/facturo/facturo/internal/types"
	"github.com/facturo/facturo/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			postgres.NewClient,

			// Event publishing
			providePubSub,
			publisher.NewEventPublisher,

			// Repositories
			repository.NewSequenceRepository,
			repository.NewDocumentRepository,
			repository.NewPaymentRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewSequenceService,
			service.NewDocumentService,
			service.NewReconciliationService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			registerShutdownHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePubSub(cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	if cfg.Event.PublishDestination == types.EventDestinationKafka {
		return kafka.NewPubSub(cfg, log)
	}
	return memory.NewPubSub(log), nil
}

func provideHandlers(
	logger *logger.Logger,
	sequenceService service.SequenceService,
	documentService service.DocumentService,
	reconciliationService service.ReconciliationService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(logger),
		Sequence: v1.NewSequenceHandler(sequenceService, logger),
		Document: v1.NewDocumentHandler(documentService, reconciliationService, logger),
		Payment:  v1.NewPaymentHandler(reconciliationService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

// registerShutdownHooks closes the pool and the pubsub after the server has
// drained. fx runs stop hooks in reverse order so these are appended first.
func registerShutdownHooks(lc fx.Lifecycle, db *postgres.DB, ps pubsub.PubSub, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := ps.Close(); err != nil {
				log.Errorw("failed to close pubsub", "error", err)
			}
			return db.Close()
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
