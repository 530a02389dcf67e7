package v1

import (
	"net/http"

	"github.com/facturo/facturo/internal/api/dto"
	ierr "github.com/facturo/facturo/internal/errors"
	"github.com/facturo/facturo/internal/logger"
	"github.com/facturo/facturo/internal/service"
	"github.com/facturo/facturo/internal/types"
	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	service        service.DocumentService
	reconciliation service.ReconciliationService
	log            *logger.Logger
}

func NewDocumentHandler(service service.DocumentService, reconciliation service.ReconciliationService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, reconciliation: reconciliation, log: log}
}

// @Summary Create an invoice or a quote
// @Description Invoices receive the next fiscal number of their document type before they are saved
// @Tags Documents
// @Accept json
// @Produce json
// @Param document body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateDocument(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List documents
// @Tags Documents
// @Produce json
// @Param filter query types.DocumentFilter false "Filter"
// @Success 200 {object} dto.ListDocumentsResponse
// @Router /documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	filter := types.NewDocumentFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	resp, err := h.service.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the reconciliation summary of a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} document.Summary
// @Router /documents/{id}/summary [get]
func (h *DocumentHandler) GetSummary(c *gin.Context) {
	resp, err := h.reconciliation.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Change the status of a document
// @Description Moving an invoice to paid fails while a balance is outstanding
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param request body dto.StatusChangeRequest true "New status"
// @Success 200 {object} dto.DocumentResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /documents/{id}/status [post]
func (h *DocumentHandler) ChangeStatus(c *gin.Context) {
	var req dto.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.reconciliation.RequestStatusChange(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
