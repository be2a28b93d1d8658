// Package chat exposes the chat CRUD and turn endpoints.
package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/eargai/earg-backend/internal/model/chat"
	"github.com/eargai/earg-backend/internal/middleware"
	"github.com/eargai/earg-backend/internal/repository"
	"github.com/eargai/earg-backend/internal/service/turn"
	"github.com/eargai/earg-backend/pkg/utils"
)

// Handler serves the /chats routes. orch may be nil when the generation
// provider is not configured; turn endpoints then answer 503.
type Handler struct {
	chats *repository.ChatRepository
	orch  *turn.Orchestrator
}

func New(chats *repository.ChatRepository, orch *turn.Orchestrator) *Handler {
	return &Handler{chats: chats, orch: orch}
}

// RegisterRoutes mounts the chat endpoints. The router must already enforce a
// valid session.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chats/list", h.handleList)
	r.Post("/chats/new", h.handleNew)
	r.Post("/chats/message/{chatID}", h.handleMessage)
	r.Post("/chats/send/{chatID}", h.handleSend)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	chats, err := h.chats.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[chat] failed to list chats: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []chatmodel.Chat{}
	}

	utils.RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleNew(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	// An empty body is fine; the title is optional.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	c := chatmodel.Chat{UserID: userID, Title: strings.TrimSpace(payload.Title)}
	if err := h.chats.Create(r.Context(), &c); err != nil {
		log.Printf("[chat] failed to create chat: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"chatId": c.ID})
}

// handleMessage persists the inbound user message so it survives any later
// generation failure; the reply is produced by the stream endpoint.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedChat(w, r)
	if !ok {
		return
	}
	if h.orch == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "generation unavailable")
		return
	}

	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	if err := h.orch.AcceptMessage(r.Context(), c.ID, text); err != nil {
		log.Printf("[chat] failed to accept message: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleSend is the atomic variant: the full turn runs inside the request.
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ownedChat(w, r)
	if !ok {
		return
	}
	if h.orch == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "generation unavailable")
		return
	}

	text, ok := decodeText(w, r)
	if !ok {
		return
	}

	reply, err := h.orch.HandleTurn(r.Context(), c.ID, text)
	if err != nil {
		log.Printf("[chat] turn failed for chat=%s: %v", c.ID, err)
		utils.RespondError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

// ownedChat resolves the chat from the URL and checks the session user owns
// it. Foreign chats read as not found.
func (h *Handler) ownedChat(w http.ResponseWriter, r *http.Request) (*chatmodel.Chat, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	chatID := chi.URLParam(r, "chatID")
	c, err := h.chats.Get(r.Context(), chatID)
	if errors.Is(err, repository.ErrChatNotFound) {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return nil, false
	}
	if err != nil {
		log.Printf("[chat] failed to load chat: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load chat")
		return nil, false
	}
	if c.UserID != userID {
		utils.RespondError(w, http.StatusNotFound, "chat not found")
		return nil, false
	}
	return c, true
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return text, true
}
