package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomasz-karas/parkgate-core/internal/auth"
)

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"` // seconds
	User        loginUser `json:"user"`
}

type loginUser struct {
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// handleLogin authenticates a user and issues a JWT access token.
//
// Wrong username and wrong password both return 401 without distinguishing
// the two. A correct password on a deactivated account returns 403.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		s.logger.Error("login lookup failed", "username", req.Username, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	if !user.IsActive {
		writeForbidden(w, "account is deactivated")
		return
	}

	ttlMinutes := s.secCfg.JWT.AccessTokenTTL
	if req.RememberMe {
		ttlMinutes = s.secCfg.JWT.RememberMeTTL
	}

	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttlMinutes)
	if err != nil {
		s.logger.Error("token generation failed", "username", user.Username, "error", err)
		writeInternalError(w, "login failed")
		return
	}

	// Best effort; a failed timestamp update must not block the login.
	if err := s.users.TouchLastLogin(r.Context(), user.ID); err != nil {
		s.logger.Warn("failed to update last login", "username", user.Username, "error", err)
	}

	s.logger.Info("user logged in", "username", user.Username, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   ttlMinutes * 60,
		User:        loginUser{Username: user.Username, Role: user.Role},
	})
}

// handleLogout acknowledges a logout. Tokens are stateless, so the client
// simply discards its copy; this endpoint exists so the dashboard has a
// uniform auth API.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleWSTicket exchanges a valid bearer token for a short-lived single-use
// WebSocket ticket.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := callerClaims(r)
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	ticket, err := s.tickets.Issue(claims.Subject, claims.Username, claims.Role)
	if err != nil {
		s.logger.Error("ticket issue failed", "username", claims.Username, "error", err)
		writeInternalError(w, "failed to issue ticket")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(s.tickets.TTL().Seconds()),
	})
}
