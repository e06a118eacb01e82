package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/server/dto"
)

// GraphHandler serves graph searches, similarity searches, work graphs and
// catalog statistics.
type GraphHandler struct {
	client mangagraph.Mangagraph
	logger *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(client mangagraph.Mangagraph, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{client: client, logger: logger}
}

func (h *GraphHandler) ready(c *gin.Context) bool {
	if h.client == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:     "store_unavailable",
			Message:   "mangagraph client not initialized",
			Code:      http.StatusServiceUnavailable,
			RequestID: RequestID(c),
		})
		return false
	}
	return true
}

// SearchGraph handles GET /api/v1/graph
func (h *GraphHandler) SearchGraph(c *gin.Context) {
	var q dto.GraphQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.searchGraph(c, q)
}

// SearchGraphJSON handles POST /api/v1/graph
func (h *GraphHandler) SearchGraphJSON(c *gin.Context) {
	var q dto.GraphQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.searchGraph(c, q)
}

func (h *GraphHandler) searchGraph(c *gin.Context, q dto.GraphQuery) {
	if !h.ready(c) {
		return
	}
	g, err := h.client.FindRelatedGraphWithOptions(c.Request.Context(), q.ToRequest())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGraphResponse(g, RequestID(c)))
}

// SimilarWorks handles POST /api/v1/similar
func (h *GraphHandler) SimilarWorks(c *gin.Context) {
	var q dto.SimilarQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !h.ready(c) {
		return
	}
	g, err := h.client.FindSimilarWorks(c.Request.Context(), q.ToRequest())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGraphResponse(g, RequestID(c)))
}

// WorkGraph handles GET /api/v1/works/:id/graph
func (h *GraphHandler) WorkGraph(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	g, err := h.client.GetWorkGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewGraphResponse(g, RequestID(c)))
}

// Stats handles GET /api/v1/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	counts, err := h.client.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatsResponse{Counts: counts})
}
