package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts   Carts
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(carts Carts, timeout time.Duration, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, timeout: timeout, logger: logger}
}

type AddCartLineRequestDTO struct {
	Email  string  `json:"email"`
	MenuID string  `json:"menuId"`
	Name   string  `json:"name"`
	Image  string  `json:"image"`
	Price  float64 `json:"price"`
}

type InsertResultDTO struct {
	InsertedID string `json:"insertedId"`
}

// GET /carts?email=
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email query parameter is required")
		return
	}

	lines, err := h.carts.ListForOwner(ctx, email)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, lines)
}

// POST /carts
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddCartLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id, err := h.carts.AddLine(ctx, &domain.CartLine{
		OwnerEmail: req.Email,
		MenuItemID: req.MenuID,
		Name:       req.Name,
		Image:      req.Image,
		Price:      req.Price,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, InsertResultDTO{InsertedID: id})
}

// DELETE /carts/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.RemoveLine(ctx, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, DeleteResultDTO{DeletedCount: 1})
}
