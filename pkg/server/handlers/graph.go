package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	freeroute "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/driver"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/extract"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/server/dto"
)

// GraphHandler serves the /graph routes.
type GraphHandler struct {
	gateway freeroute.Gateway
	logger  *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(g freeroute.Gateway, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{gateway: g, logger: logger}
}

func writeError(c *gin.Context, status int, detail any) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Detail: detail})
}

// bind decodes the body into req and runs its Validate method.
func bind(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// Probe handles POST /graph/probe
func (h *GraphHandler) Probe(c *gin.Context) {
	var req dto.GraphProbeRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.gateway.Probe(c.Request.Context(), req.ToRequest())
	if err != nil {
		writeError(c, http.StatusBadGateway, gin.H{
			"error":   "upstream_probe_error",
			"model":   req.Model,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Extract handles POST /graph/extract
func (h *GraphHandler) Extract(c *gin.Context) {
	var req dto.GraphExtractRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.gateway.Extract(c.Request.Context(), req.ToRequest())
	if err != nil {
		var invalid *extract.ValidationError
		var exhausted *extract.ExhaustedError
		switch {
		case errors.As(err, &invalid):
			writeError(c, http.StatusBadRequest, invalid.Error())
		case errors.As(err, &exhausted):
			writeError(c, http.StatusUnprocessableEntity, exhausted)
		case errors.Is(err, context.DeadlineExceeded):
			writeError(c, http.StatusGatewayTimeout, "extraction timed out")
		default:
			h.logger.ErrorContext(c.Request.Context(), "/graph/extract unexpected error", "error", err)
			writeError(c, http.StatusInternalServerError, "internal_error: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, dto.GraphExtractResponse{
		OK:         true,
		Data:       res.Graph,
		Provider:   res.Provider,
		SchemaHash: res.SchemaHash,
	})
}

// Upsert handles POST /graph/upsert
func (h *GraphHandler) Upsert(c *gin.Context) {
	var req dto.GraphUpsertRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.gateway.Upsert(c.Request.Context(), req.Data)
	if err != nil {
		if errors.Is(err, driver.ErrNotConfigured) {
			writeError(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "/graph/upsert store error", "error", err)
		writeError(c, http.StatusBadGateway, "neo4j_error: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, dto.GraphUpsertResponse{OK: true, Nodes: res.Nodes, Edges: res.Edges})
}

// Query handles POST /graph/query
func (h *GraphHandler) Query(c *gin.Context) {
	var req dto.GraphQueryRequest
	if !bind(c, &req) {
		return
	}

	records, err := h.gateway.Query(c.Request.Context(), req.Query, req.Params)
	if err != nil {
		var unsafe *driver.ErrUnsafeQuery
		switch {
		case errors.Is(err, driver.ErrEmptyQuery), errors.As(err, &unsafe):
			writeError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, driver.ErrNotConfigured):
			writeError(c, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.ErrorContext(c.Request.Context(), "/graph/query store error", "error", err)
			writeError(c, http.StatusBadGateway, "neo4j_error: "+err.Error())
		}
		return
	}
	if records == nil {
		records = []map[string]any{}
	}
	c.JSON(http.StatusOK, dto.GraphQueryResponse{OK: true, Records: records})
}
