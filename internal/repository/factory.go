package repository

import (
	"github.com/facturo/facturo/internal/domain/document"
	"github.com/facturo/facturo/internal/domain/payment"
	"github.com/facturo/facturo/internal/domain/sequence"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/postgres"
	postgresRepo "github.com/facturo/facturo/internal/repository/postgres"
)

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return postgresRepo.NewSequenceRepository(db, logger)
}

func NewDocumentRepository(db *postgres.DB, logger *logger.Logger) document.Repository {
	return postgresRepo.NewDocumentRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}
