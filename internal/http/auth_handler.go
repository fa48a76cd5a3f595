package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type AuthHandler struct {
	tokens TokenService
	logger *zap.Logger
}

func NewAuthHandler(tokens TokenService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, logger: logger}
}

type TokenRequestDTO struct {
	Email string `json:"email"`
}

type TokenResponseDTO struct {
	Token string `json:"token"`
}

// POST /jwt
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email is required")
		return
	}

	token, err := h.tokens.Issue(email)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponseDTO{Token: token})
}
