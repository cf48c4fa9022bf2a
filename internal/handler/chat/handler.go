package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/model/chat"
	chatservice "github.com/zodiai/backend/internal/service/chat"
	"github.com/zodiai/backend/internal/service/search"
	"github.com/zodiai/backend/internal/storage"
	"github.com/zodiai/backend/pkg/utils"
)

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Messages     []chat.UIMessage   `json:"messages"`
	ChatID       string             `json:"chatId"`
	BirthDetails *chat.BirthDetails `json:"birthDetails"`
}

// ingestRequest is the POST /api/documents body.
type ingestRequest struct {
	Documents []search.Document `json:"documents"`
}

// SessionReader serves stored transcripts.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
}

// Handler exposes the conversational endpoints.
type Handler struct {
	turns    *chatservice.Service
	sessions SessionReader
	kb       *search.KnowledgeBase
	logger   *zap.Logger
}

// New creates the chat handler. turns and kb may be nil when the matching
// credentials are absent; the routes then answer 503.
func New(turns *chatservice.Service, sessions SessionReader, kb *search.KnowledgeBase, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{turns: turns, sessions: sessions, kb: kb, logger: logger}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/{chatID}", h.handleTranscript)
	r.Post("/documents", h.handleIngest)
}

// handleChat runs one conversation turn and streams the UI message events.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.turns == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "chat unavailable")
		return
	}

	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Messages) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "messages are required")
		return
	}

	// Body value takes precedence over the header.
	chatID := payload.ChatID
	if chatID == "" {
		chatID = r.Header.Get("X-Chat-ID")
	}

	writer, err := utils.NewStreamWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	h.turns.HandleTurn(r.Context(), writer, chatservice.TurnRequest{
		SessionID:    chatID,
		Messages:     payload.Messages,
		BirthDetails: payload.BirthDetails,
	})
}

// handleTranscript returns a stored session with its turns.
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	session, err := h.sessions.GetSession(r.Context(), chatID)
	if errors.Is(err, storage.ErrSessionNotFound) {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load transcript", zap.String("session", chatID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

// handleIngest adds documents to the knowledge base.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if h.kb == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "knowledge base unavailable")
		return
	}

	var payload ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Documents) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "documents are required")
		return
	}

	if err := h.kb.AddDocuments(r.Context(), payload.Documents); err != nil {
		h.logger.Error("document ingest failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to ingest documents")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]int{"ingested": len(payload.Documents)})
}
