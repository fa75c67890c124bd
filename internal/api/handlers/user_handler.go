package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/notes-be/internal/auth"
	"github.com/isdelr/notes-be/internal/models"
	"github.com/isdelr/notes-be/internal/services"
	"github.com/rs/zerolog/hlog"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service       services.UserServiceProvider
	secureCookies bool
}

// NewUserHandler creates a new UserHandler. secureCookies sets the Secure
// flag on the session cookie.
func NewUserHandler(service services.UserServiceProvider, secureCookies bool) *UserHandler {
	return &UserHandler{service: service, secureCookies: secureCookies}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfilePayload names the account to look up.
type ProfilePayload struct {
	Email string `json:"email"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
	Token   string      `json:"token"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeRequest(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("user_id", user.ID).Msg("User registered")
	h.startSession(w, r, user, "User registered successfully")
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeRequest(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed authentication attempt")
		respondError(w, r, err)
		return
	}
	h.startSession(w, r, user, "Login successful")
}

func (h *UserHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User, message string) {
	token, expiresAt, err := h.service.IssueToken(user)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	respondJSON(w, r, http.StatusOK, SessionResponse{Message: message, User: user, Token: token})
}

// Profile retrieves the first user registered with the email given in the
// body or the email query parameter.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	var payload ProfilePayload
	if err := decodeRequest(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}
	if payload.Email == "" {
		payload.Email = r.URL.Query().Get("email")
	}

	user, err := h.service.GetProfile(r.Context(), payload.Email)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// Verify resolves the session token to its user.
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.service.VerifyToken(r.Context(), token)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// List returns every user.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, users)
}

// Logout clears the session cookie. Issued tokens stay valid until expiry.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	respondJSON(w, r, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}
