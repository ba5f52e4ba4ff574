package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/pkg/validation"
)

type StreamHandler struct {
	streams   ports.StreamQueryService
	validator *validation.Validator
}

var _ ports.HTTPHandler = (*StreamHandler)(nil)

func NewStreamHandler(streams ports.StreamQueryService, validator *validation.Validator) *StreamHandler {
	return &StreamHandler{streams: streams, validator: validator}
}

func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/streams", h.ListStreams)
	rg.GET("/streams/:hostId", h.GetStream)
	rg.GET("/streams/:hostId/engagement", h.GetEngagement)
}

// ListStreams returns the durable records flagged live.
func (h *StreamHandler) ListStreams(c *gin.Context) {
	records, err := h.streams.ActiveStreams(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"streams": records,
		"count":   len(records),
	})
}

// GetStream returns the live session snapshot, or NOT_LIVE.
func (h *StreamHandler) GetStream(c *gin.Context) {
	hostID, ok := h.hostParam(c)
	if !ok {
		return
	}
	info, err := h.streams.StreamInfo(c.Request.Context(), hostID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *StreamHandler) GetEngagement(c *gin.Context) {
	hostID, ok := h.hostParam(c)
	if !ok {
		return
	}
	engagement, err := h.streams.Engagement(c.Request.Context(), hostID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, engagement)
}

func (h *StreamHandler) hostParam(c *gin.Context) (domain.UserID, bool) {
	hostID := c.Param("hostId")
	if err := h.validator.UserID(hostID); err != nil {
		_ = c.Error(err)
		return "", false
	}
	return domain.UserID(hostID), true
}
