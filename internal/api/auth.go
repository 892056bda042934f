package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/darslabs/darsbot/internal/auth"
	"github.com/darslabs/darsbot/internal/profile"
	"github.com/darslabs/darsbot/internal/rag"
)

// authHandler serves the /api/auth routes.
type authHandler struct {
	auth     AuthService
	profiles ProfileStore
	isDev    bool
	logger   *slog.Logger
}

type signupRequest struct {
	Email              string `json:"email"`
	Name               string `json:"name"`
	Password           string `json:"password"`
	SoftwareBackground string `json:"software_background"`
	HardwareBackground string `json:"hardware_background"`
	OperatingSystem    string `json:"operating_system"`
	GPUHardware        string `json:"gpu_hardware"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the body for both signup and signin.
type sessionResponse struct {
	SessionToken string    `json:"session_token"`
	User         auth.User `json:"user"`
}

func (h *authHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	user, session, err := h.auth.Signup(r.Context(), auth.SignupParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "Email already registered", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	// Profile rows exist for every user, even when all fields arrive empty.
	// Experience level and language take their defaults in the store.
	err = h.profiles.Upsert(r.Context(), user.ID, rag.Profile{
		SoftwareBackground: req.SoftwareBackground,
		HardwareBackground: req.HardwareBackground,
		OperatingSystem:    req.OperatingSystem,
		GPUHardware:        req.GPUHardware,
	})
	if err != nil {
		h.logger.Error("creating profile at signup", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{SessionToken: session.Token, User: user}, h.logger)
}

func (h *authHandler) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	user, session, err := h.auth.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", h.logger)
			return
		}
		h.logger.Error("signin failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	h.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{SessionToken: session.Token, User: user}, h.logger)
}

// signout revokes the session named by the request's token. Always succeeds
// from the client's point of view, even with no token at all.
func (h *authHandler) signout(w http.ResponseWriter, r *http.Request) {
	token := sessionTokenFromContext(r.Context())
	if err := h.auth.Signout(r.Context(), token); err != nil {
		h.logger.Error("signout failed", "error", err)
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out successfully"}, h.logger)
}

type meResponse struct {
	ID      int64       `json:"id"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Profile rag.Profile `json:"profile"`
}

// me returns the authenticated user and their profile. Users without a
// profile row get one with experience_level and language defaults.
func (h *authHandler) me(w http.ResponseWriter, r *http.Request, user auth.User) {
	p, err := h.profiles.Get(r.Context(), user.ID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			h.logger.Error("loading profile", "error", err, "user_id", user.ID)
			writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
			return
		}
		p = rag.Profile{
			ExperienceLevel:   profile.DefaultExperienceLevel,
			PreferredLanguage: profile.DefaultPreferredLanguage,
		}
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Profile: p,
	}, h.logger)
}

func (h *authHandler) setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   !h.isDev,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.isDev,
		SameSite: http.SameSiteLaxMode,
	})
}
