package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/internal/storefront"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Views builds the storefront pages.
type Views interface {
	Home(ctx context.Context) storefront.HomeView
	Menu(ctx context.Context, q storefront.MenuQuery) storefront.MenuView
	ProductDetail(ctx context.Context, id domain.ProductID) (storefront.ProductView, error)
	AddReview(ctx context.Context, productID domain.ProductID, in storefront.ReviewInput) (domain.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

type CatalogHandler struct {
	views   Views
	timeout time.Duration
}

func NewCatalogHandler(views Views, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		views:   views,
		timeout: timeout,
	}
}

type ReviewRequestDTO struct {
	Author  string `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(ctx, w, http.StatusOK, h.views.Home(ctx))
}

func (h *CatalogHandler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	params := r.URL.Query()
	q := storefront.MenuQuery{
		Category: params.Get("category"),
		Query:    params.Get("q"),
		Sort:     params.Get("sort"),
	}

	var ok bool
	if q.MinPrice, ok = parsePrice(params.Get("min_price")); !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid_price", "min_price must be a number")
		return
	}
	if q.MaxPrice, ok = parsePrice(params.Get("max_price")); !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid_price", "max_price must be a number")
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.views.Menu(ctx, q))
}

func (h *CatalogHandler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.views.ProductDetail(ctx, productIDParam(r))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, view)
}

func (h *CatalogHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	review, err := h.views.AddReview(ctx, productIDParam(r), storefront.ReviewInput{
		Author:  req.Author,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, review)
}

func (h *CatalogHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.views.DeleteReview(ctx, chi.URLParam(r, "review_id")); err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productIDParam(r *http.Request) domain.ProductID {
	return domain.ProductID(strings.TrimSpace(chi.URLParam(r, "id")))
}

// parsePrice treats an empty value as unset.
func parsePrice(raw string) (decimal.NullDecimal, bool) {
	if raw == "" {
		return decimal.NullDecimal{}, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}
