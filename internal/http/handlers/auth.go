package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/http/respond"
	"github.com/jdorantes1987/aapn-nc/internal/models/dto"
)

// AuthHandler owns the two-step login flow: a username existence check first,
// then the username/password exchange that issues the session token.
type AuthHandler struct {
	manager *auth.Manager
	tokens  *auth.TokenManager
	log     *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(manager *auth.Manager, tokens *auth.TokenManager, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{manager: manager, tokens: tokens, log: log}
}

// Register attaches the public auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Get("/login/exists", h.handleExists)
	r.Post("/login", h.handleLogin)
}

func (h *AuthHandler) handleExists(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		respond.Error(w, http.StatusBadRequest, "indica un usuario")
		return
	}
	exists := h.manager.UserExists(r.Context(), username)
	msg := "el usuario no existe, inténtalo de nuevo"
	if exists {
		msg = "usuario validado"
	}
	respond.JSON(w, http.StatusOK, msg, dto.ExistsResponse{Username: username, Exists: exists})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "usuario y contraseña son obligatorios")
		return
	}

	user, ok, msg := h.manager.Authenticate(r.Context(), username, req.Password)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, msg)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("generate token failed", "username", username, "error", err)
		respond.Error(w, http.StatusInternalServerError, "no se pudo iniciar la sesión")
		return
	}
	respond.JSON(w, http.StatusOK, msg, dto.LoginResponse{Token: token, User: user})
}
