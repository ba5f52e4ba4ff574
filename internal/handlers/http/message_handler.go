package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"shoplive/internal/core/domain"
	"shoplive/internal/core/ports"
	"shoplive/internal/infrastructure/middleware"
	"shoplive/pkg/validation"
)

type MessageHandler struct {
	messaging ports.MessagingService
	validator *validation.Validator
}

var _ ports.HTTPHandler = (*MessageHandler)(nil)

func NewMessageHandler(messaging ports.MessagingService, validator *validation.Validator) *MessageHandler {
	return &MessageHandler{messaging: messaging, validator: validator}
}

func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/messages", h.History)
}

type historyQuery struct {
	With string `json:"with" validate:"required,userid"`
	User string `json:"user" validate:"omitempty,userid"`
}

// History returns the conversation between the requester and ?with=, oldest
// first. The requester is the token identity when auth is on; otherwise it
// is taken from ?user=.
func (h *MessageHandler) History(c *gin.Context) {
	q := historyQuery{With: c.Query("with"), User: c.Query("user")}
	if err := h.validator.Struct(q); err != nil {
		_ = c.Error(err)
		return
	}

	requester, ok := middleware.UserID(c)
	if !ok {
		if q.User == "" {
			_ = c.Error(fmt.Errorf("%w: user is required", domain.ErrInvalidPayload))
			return
		}
		requester = domain.UserID(q.User)
	}

	messages, err := h.messaging.History(c.Request.Context(), requester, domain.UserID(q.With))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}
