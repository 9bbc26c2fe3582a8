package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/latchkey-io/latchkey-core/internal/core/domain"
	"github.com/latchkey-io/latchkey-core/internal/core/schemes"
	"github.com/latchkey-io/latchkey-core/internal/observability"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
	Code  string `json:"code,omitempty" example:"password_mismatch"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// refreshAttempter is the optional scheme surface for logins that hand out
// a refresh token alongside the access token.
type refreshAttempter interface {
	AttemptWithRefresh(ctx context.Context, uid, password string) (*domain.AuthToken, error)
}

// refresher is the optional scheme surface for rotating an access token
// from a refresh token.
type refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthToken, error)
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks storage backends)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  StatusResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, backend := range []Pinger{s.db, s.redisClient} {
		if backend == nil {
			continue
		}
		if err := backend.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      Login with credentials
// @Description  Authenticate a uid/password pair against the selected authenticator and receive a token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        authenticator  query     string               false  "Authenticator name (default from config)"
// @Param        request        body      domain.LoginRequest  true   "Login credentials"
// @Success      200            {object}  domain.AuthToken
// @Failure      400            {object}  ErrorResponse  "Invalid request body or unknown authenticator"
// @Failure      401            {object}  ErrorResponse  "Invalid credentials"
// @Failure      500            {object}  ErrorResponse  "Internal server error"
// @Router       /login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, cfg, scheme, err := s.auth.scheme(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "unknown authenticator", domain.ErrorCode(err))
		return
	}

	var token *domain.AuthToken
	if withRefresh, ok := scheme.(refreshAttempter); ok {
		token, err = withRefresh.AttemptWithRefresh(r.Context(), req.UID, req.Password)
	} else {
		token, err = scheme.Attempt(r.Context(), req.UID, req.Password)
	}
	if err != nil {
		var notFound *domain.UserNotFoundError
		var mismatch *domain.PasswordMismatchError
		switch {
		case errors.As(err, &notFound), errors.As(err, &mismatch):
			writeErrorCode(w, http.StatusUnauthorized, "invalid credentials", domain.ErrorCode(err))
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	observability.TokensIssued.WithLabelValues(cfg.Scheme).Inc()
	writeJSON(w, http.StatusOK, token)
}

// handleRefresh godoc
// @Summary      Refresh an access token
// @Description  Exchange a refresh token for a fresh access/refresh token pair. The old refresh token is retired.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        authenticator  query     string                 false  "Authenticator name (default from config)"
// @Param        request        body      domain.RefreshRequest  true   "Refresh token"
// @Success      200            {object}  domain.AuthToken
// @Failure      400            {object}  ErrorResponse  "Invalid request body or authenticator without refresh"
// @Failure      401            {object}  ErrorResponse  "Invalid refresh token"
// @Router       /refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, cfg, scheme, err := s.auth.scheme(r)
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, "unknown authenticator", domain.ErrorCode(err))
		return
	}

	rotator, ok := scheme.(refresher)
	if !ok {
		writeError(w, http.StatusBadRequest, "authenticator does not support refresh")
		return
	}

	token, err := rotator.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			writeErrorCode(w, http.StatusUnauthorized, "invalid refresh token", domain.ErrorCode(err))
			return
		}
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	observability.TokensIssued.WithLabelValues(cfg.Scheme).Inc()
	writeJSON(w, http.StatusOK, token)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	state := authStateFrom(r.Context())
	if state == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, state.user.ToSummary())
}

// Token endpoints

// handleIssueToken godoc
// @Summary      Issue an API token
// @Description  Generate a fresh opaque token for the authenticated user
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  domain.AuthToken
// @Failure      400  {object}  ErrorResponse  "Authenticator does not manage api tokens"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /tokens [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	state := authStateFrom(r.Context())
	if state == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	api, ok := state.scheme.(*schemes.APIScheme)
	if !ok {
		writeError(w, http.StatusBadRequest, "authenticator does not manage api tokens")
		return
	}

	token, err := api.Generate(r.Context(), state.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	observability.TokensIssued.WithLabelValues(domain.SchemeAPI).Inc()
	writeJSON(w, http.StatusCreated, token)
}

// handleListTokens godoc
// @Summary      List API tokens
// @Description  List the authenticated user's live opaque tokens
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.OpaqueToken
// @Failure      400  {object}  ErrorResponse  "Authenticator does not manage api tokens"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /tokens [get]
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	state := authStateFrom(r.Context())
	if state == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	api, ok := state.scheme.(*schemes.APIScheme)
	if !ok {
		writeError(w, http.StatusBadRequest, "authenticator does not manage api tokens")
		return
	}

	tokens, err := api.ListTokensForUser(r.Context(), state.user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// handleRevokeTokens godoc
// @Summary      Revoke API tokens
// @Description  Revoke selected opaque tokens, or all of them when no selection is given
// @Tags         Tokens
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.RevokeTokensRequest  false  "Tokens to revoke (wire form); empty revokes all"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body or authenticator without api tokens"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /tokens [delete]
func (s *Server) handleRevokeTokens(w http.ResponseWriter, r *http.Request) {
	state := authStateFrom(r.Context())
	if state == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// An absent body means revoke everything
	var req domain.RevokeTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	api, ok := state.scheme.(*schemes.APIScheme)
	if !ok {
		writeError(w, http.StatusBadRequest, "authenticator does not manage api tokens")
		return
	}

	if err := api.RevokeTokensForUser(r.Context(), state.user, req.Tokens, req.Delete); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to revoke tokens")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Setup endpoint (no auth required, one-time use)

// setupRequest carries the first-user bootstrap payload
// @Description First-user bootstrap payload
type setupRequest struct {
	Email    string `json:"email" example:"virk@adonisjs.com"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty" example:"Virk"`
}

// handleSetup godoc
// @Summary      Initial setup
// @Description  Create the first user account. Only works while no users exist.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      setupRequest  true  "First user details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      500      {object}  ErrorResponse  "Setup failed"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorCode(w, http.StatusBadRequest, "email and password are required", domain.ErrorCode(domain.ErrInvalidInput))
		return
	}

	hash, err := s.verifier.Hash(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "setup failed")
		return
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.registry.CreateInitialUser(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrSetupComplete) {
			writeErrorCode(w, http.StatusForbidden, "setup already complete", domain.ErrorCode(err))
			return
		}
		writeError(w, http.StatusInternalServerError, "setup failed")
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
