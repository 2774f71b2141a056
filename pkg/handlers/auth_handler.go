package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// AuthHandler handles sign-up, sign-in, and session endpoints.
type AuthHandler struct {
	accounts  services.AccountService
	secureEnv bool
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAuthHandler creates a new auth handler. secureEnv controls the Secure
// flag on the session cookie and should be false only for local development.
func NewAuthHandler(accounts services.AccountService, secureEnv bool, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:  accounts,
		secureEnv: secureEnv,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/auth/signup", h.SignUp)
	mux.HandleFunc("POST /api/auth/signin", h.SignIn)
	mux.HandleFunc("POST /api/auth/signout", h.SignOut)
	mux.HandleFunc("GET /api/auth/session", authMiddleware.RequireAuth(h.Session))
}

// credentialsRequest is the request body for sign-up and sign-in.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned after successful sign-up or sign-in. The token
// is also set as a cookie for browser clients.
type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	session, err := h.accounts.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, session.Token)
	_ = WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: h.sessionBody(session)})
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	session, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.setSessionCookie(w, session.Token)
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.sessionBody(session)})
}

// SignOut handles POST /api/auth/signout. Tokens are stateless, so sign-out
// just clears the cookie.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureEnv,
		SameSite: http.SameSiteLaxMode,
	})
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// Session handles GET /api/auth/session. Returns the signed-in user.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{
		"id":    claims.Subject,
		"email": claims.Email,
	}})
}

func (h *AuthHandler) sessionBody(session *services.Session) sessionResponse {
	var body sessionResponse
	body.Token = session.Token
	body.User.ID = session.Account.ID.String()
	body.User.Email = session.Account.Email
	return body
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureEnv,
		SameSite: http.SameSiteLaxMode,
	})
}
