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

type SequenceHandler struct {
	service service.SequenceService
	log     *logger.Logger
}

func NewSequenceHandler(service service.SequenceService, log *logger.Logger) *SequenceHandler {
	return &SequenceHandler{service: service, log: log}
}

// @Summary Create a numbering sequence
// @Description Create the active numbering sequence of a document type
// @Tags Sequences
// @Accept json
// @Produce json
// @Param sequence body dto.CreateSequenceRequest true "Sequence configuration"
// @Success 201 {object} dto.SequenceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /sequences [post]
func (h *SequenceHandler) CreateSequence(c *gin.Context) {
	var req dto.CreateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateSequence(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List numbering sequences
// @Tags Sequences
// @Produce json
// @Param filter query types.SequenceFilter false "Filter"
// @Success 200 {object} dto.ListSequencesResponse
// @Router /sequences [get]
func (h *SequenceHandler) ListSequences(c *gin.Context) {
	filter := types.NewSequenceFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListSequences(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get a numbering sequence
// @Tags Sequences
// @Produce json
// @Param id path string true "Sequence ID"
// @Success 200 {object} dto.SequenceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /sequences/{id} [get]
func (h *SequenceHandler) GetSequence(c *gin.Context) {
	resp, err := h.service.GetSequence(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update a numbering sequence
// @Description Update formatting and range fields. The counter is never changed.
// @Tags Sequences
// @Accept json
// @Produce json
// @Param id path string true "Sequence ID"
// @Param sequence body dto.UpdateSequenceRequest true "Fields to update"
// @Success 200 {object} dto.SequenceResponse
// @Router /sequences/{id} [put]
func (h *SequenceHandler) UpdateSequence(c *gin.Context) {
	var req dto.UpdateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateSequence(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Preview the next number
// @Description Format the number the next allocation would issue. Nothing is reserved.
// @Tags Sequences
// @Produce json
// @Param id path string true "Sequence ID"
// @Success 200 {object} dto.AllocationResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /sequences/{id}/preview [get]
func (h *SequenceHandler) PreviewNext(c *gin.Context) {
	resp, err := h.service.PreviewNext(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Reset a numbering sequence
// @Description Move the counter back to start_number - 1. Previously issued numbers may be issued again.
// @Tags Sequences
// @Produce json
// @Param id path string true "Sequence ID"
// @Success 200 {object} dto.SequenceResponse
// @Router /sequences/{id}/reset [post]
func (h *SequenceHandler) ResetSequence(c *gin.Context) {
	resp, err := h.service.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	h.log.WithContext(c.Request.Context()).Warnw("sequence reset through api", "sequence_id", resp.ID)
	c.JSON(http.StatusOK, resp)
}

func (h *SequenceHandler) DeactivateSequence(c *gin.Context) {
	resp, err := h.service.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SequenceHandler) ActivateSequence(c *gin.Context) {
	resp, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Allocate a fiscal number
// @Description Reserve the next number of the active sequence of a document type
// @Tags Sequences
// @Accept json
// @Produce json
// @Param request body dto.AllocateNumberRequest true "Document type"
// @Success 201 {object} dto.AllocationResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /sequences/allocate [post]
func (h *SequenceHandler) AllocateNumber(c *gin.Context) {
	var req dto.AllocateNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	alloc, err := h.service.AllocateNext(c.Request.Context(), req.DocumentTypeID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAllocationResponse(alloc))
}
