// Package stream delivers turn replies over Server-Sent Events.
package stream

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eargai/earg-backend/internal/middleware"
	"github.com/eargai/earg-backend/internal/repository"
	"github.com/eargai/earg-backend/internal/service/turn"
	"github.com/eargai/earg-backend/pkg/utils"
)

// Handler streams reply fragments for a chat's pending user message.
type Handler struct {
	chats *repository.ChatRepository
	orch  *turn.Orchestrator
}

func New(chats *repository.ChatRepository, orch *turn.Orchestrator) *Handler {
	return &Handler{chats: chats, orch: orch}
}

// RegisterRoutes mounts the stream endpoint. The router must already enforce
// a valid session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats/stream/{chatID}", h.handleStream)
}

// handleStream runs a streaming turn. The protocol is a sequence of
// data:<fragment> events terminated by data:[DONE]. A cancelled or failed
// stream ends without the terminal event and persists nothing.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.orch == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "generation unavailable")
		return
	}

	chatID := chi.URLParam(r, "chatID")
	c, err := h.chats.Get(r.Context(), chatID)
	if errors.Is(err, repository.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err != nil {
		log.Printf("[stream] failed to load chat: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load chat")
		return
	}
	if c.UserID != userID {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	emit := func(fragment string) error {
		return utils.SendSSEFragment(w, flusher, fragment)
	}

	err = h.orch.StreamTurn(r.Context(), chatID, emit)
	if errors.Is(err, turn.ErrNoPendingMessage) {
		// Headers are already SSE by now; end the stream without a reply.
		utils.SendSSEDone(w, flusher)
		return
	}
	if err != nil {
		// No terminal event: the client sees an interrupted stream and no
		// assistant message was persisted.
		log.Printf("[stream] turn failed for chat=%s: %v", chatID, err)
		return
	}

	utils.SendSSEDone(w, flusher)
}
