package api

import (
	"errors"
	"net/http"
	"time"

	service "github.com/okian/salesbonus/internal/app"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/pkg/logger"
)

// messageRequest is one chat message delivered by the message source.
type messageRequest struct {
	ID          string    `json:"id" validate:"required,max=64"`
	ChannelID   string    `json:"channel_id" validate:"required,max=64"`
	Content     string    `json:"content" validate:"max=4000"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorIsBot bool      `json:"author_is_bot"`
}

// MessagesHandler handles message deliveries.
type MessagesHandler struct {
	deps   Dependencies
	now    func() time.Time
	logger logger.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(deps Dependencies, now func() time.Time, log logger.Logger) *MessagesHandler {
	return &MessagesHandler{deps: deps, now: now, logger: log}
}

// HandlePostMessage handles POST /messages. 202 when queued, 200 when filtered out.
func (h *MessagesHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[messageRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = h.now().UTC()
	}
	msg := model.Message{
		ID:          req.ID,
		ChannelID:   req.ChannelID,
		Content:     req.Content,
		CreatedAt:   createdAt,
		AuthorIsBot: req.AuthorIsBot,
	}

	accepted, err := h.deps.Ingest(r.Context(), msg)
	switch {
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case err != nil:
		h.logger.Error(r.Context(), "ingest failed", logger.String("message_id", req.ID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", nil)
	case !accepted:
		writeJSON(w, http.StatusOK, ackResponse{Status: "ignored"})
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
	}
}
