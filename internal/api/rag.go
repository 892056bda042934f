package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/darslabs/darsbot/internal/auth"
	"github.com/darslabs/darsbot/internal/history"
	"github.com/darslabs/darsbot/internal/profile"
	"github.com/darslabs/darsbot/internal/rag"
)

// ragHandler serves the question-answering, personalization, translation,
// and history routes. It also owns the withUser wrapper the auth routes
// share, since identity resolution and answering both need the auth service.
type ragHandler struct {
	engine   *rag.Engine
	auth     AuthService
	profiles ProfileStore
	history  HistoryStore
	version  string
	logger   *slog.Logger
}

// userHandler is an http.HandlerFunc that additionally receives the
// authenticated user.
type userHandler func(w http.ResponseWriter, r *http.Request, user auth.User)

// withUser authenticates the request's session token and invokes next with
// the resolved user. Missing token and bad token get distinct messages so
// the frontend can tell "sign in" apart from "session expired".
func (h *ragHandler) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFromContext(r.Context())
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated", h.logger)
			return
		}

		user, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionInvalid) {
				h.logger.Error("authenticating request", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "Invalid or expired session", h.logger)
			return
		}

		next(w, r, user)
	}
}

type askRequest struct {
	Question     string `json:"question"`
	SelectedText string `json:"selected_text"`
	Language     string `json:"language"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

func (h *ragHandler) ask(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required", h.logger)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	var userProfile *rag.Profile
	p, err := h.profiles.Get(r.Context(), user.ID)
	switch {
	case err == nil:
		userProfile = &p
	case errors.Is(err, profile.ErrNotFound):
		// Answer without personalization.
	default:
		h.logger.Error("loading profile", "error", err, "user_id", user.ID)
	}

	answer := h.engine.Answer(r.Context(), rag.AskRequest{
		Question:     req.Question,
		SelectedText: req.SelectedText,
		Language:     req.Language,
		Profile:      userProfile,
	})

	// History is best-effort: a persistence failure must not cost the user
	// an answer they already have.
	err = h.history.Append(r.Context(), user.ID, req.Question, answer.Text, answer.Context, req.Language)
	if err != nil {
		h.logger.Error("saving chat history", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, Sources: answer.Sources}, h.logger)
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *ragHandler) personalize(w http.ResponseWriter, r *http.Request, user auth.User) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Content is required", h.logger)
		return
	}

	p, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User profile not found", h.logger)
			return
		}
		h.logger.Error("loading profile", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	personalized := h.engine.Personalize(r.Context(), req.Content, p)
	writeJSON(w, http.StatusOK, map[string]string{"personalized_content": personalized}, h.logger)
}

func (h *ragHandler) translate(w http.ResponseWriter, r *http.Request, _ auth.User) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "Content is required", h.logger)
		return
	}

	translated := h.engine.Translate(r.Context(), req.Content)
	writeJSON(w, http.StatusOK, map[string]string{"translated_content": translated}, h.logger)
}

type historyResponse struct {
	Messages []history.Entry `json:"messages"`
}

// recentHistory returns the user's chat history, newest first.
// ?limit= caps the count; the store applies its own default and maximum.
func (h *ragHandler) recentHistory(w http.ResponseWriter, r *http.Request, user auth.User) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", h.logger)
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(r.Context(), user.ID, limit)
	if err != nil {
		h.logger.Error("loading chat history", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Messages: entries}, h.logger)
}

// banner identifies the service at the root path.
func (h *ragHandler) banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Physical AI Textbook API",
		"version": h.version,
		"ai":      "Gemini",
	}, h.logger)
}
