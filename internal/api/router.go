package api

import (
	v1 "github.com/facturo/facturo/internal/api/v1"
	"github.com/facturo/facturo/internal/config"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/rest/middleware"
	"github.com/facturo/facturo/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Sequence *v1.SequenceHandler
	Document *v1.DocumentHandler
	Payment  *v1.PaymentHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.TenantMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	sequences := router.Group("/sequences")
	{
		sequences.POST("", handlers.Sequence.CreateSequence)
		sequences.GET("", handlers.Sequence.ListSequences)
		sequences.POST("/allocate", handlers.Sequence.AllocateNumber)
		sequences.GET("/:id", handlers.Sequence.GetSequence)
		sequences.PUT("/:id", handlers.Sequence.UpdateSequence)
		sequences.GET("/:id/preview", handlers.Sequence.PreviewNext)
		sequences.POST("/:id/reset", handlers.Sequence.ResetSequence)
		sequences.POST("/:id/deactivate", handlers.Sequence.DeactivateSequence)
		sequences.POST("/:id/activate", handlers.Sequence.ActivateSequence)
	}

	documents := router.Group("/documents")
	{
		documents.POST("", handlers.Document.CreateDocument)
		documents.GET("", handlers.Document.ListDocuments)
		documents.GET("/:id", handlers.Document.GetDocument)
		documents.GET("/:id/summary", handlers.Document.GetSummary)
		documents.POST("/:id/status", handlers.Document.ChangeStatus)
		documents.POST("/:id/payments", handlers.Payment.RecordPayment)
		documents.GET("/:id/payments", handlers.Payment.ListPayments)
	}

	payments := router.Group("/payments")
	{
		payments.PUT("/:id", handlers.Payment.UpdatePayment)
		payments.DELETE("/:id", handlers.Payment.DeletePayment)
	}
}
