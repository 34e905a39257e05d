package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/food-storefront/internal/cart"
	"github.com/fjod/food-storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxQuantity = 99

// ProductSource resolves a product id to the product copied into the cart.
type ProductSource interface {
	Product(ctx context.Context, id domain.ProductID) (domain.Product, error)
}

type CartHandler struct {
	sessions *cart.Sessions
	products ProductSource
	timeout  time.Duration
}

func NewCartHandler(sessions *cart.Sessions, products ProductSource, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		products: products,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID domain.ProductID `json:"product_id"`
	Quantity  *int             `json:"quantity,omitempty"`
}

func (h *CartHandler) store(r *http.Request) (*cart.Store, bool) {
	sessionID := SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, false
	}
	return h.sessions.Get(r.Context(), sessionID), true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_session", "missing cart session")
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, store.Snapshot())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, ok := h.store(r)
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "missing_session", "missing cart session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = domain.ProductID(strings.TrimSpace(string(req.ProductID)))
	if req.ProductID == "" {
		respondError(ctx, w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 || quantity > maxQuantity {
		respondError(ctx, w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, err := h.products.Product(ctx, req.ProductID)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	store.AddN(ctx, product.LineItem(quantity), quantity)
	respondJSON(ctx, w, http.StatusCreated, store.Snapshot())
}

func (h *CartHandler) IncreaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).Increase)
}

func (h *CartHandler) DecreaseItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).Decrease)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).Remove)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(r)
	if !ok {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_session", "missing cart session")
		return
	}
	store.Clear(r.Context())
	respondJSON(r.Context(), w, http.StatusOK, store.Snapshot())
}

func (h *CartHandler) mutateItem(w http.ResponseWriter, r *http.Request, op func(*cart.Store, context.Context, domain.ProductID)) {
	store, ok := h.store(r)
	if !ok {
		respondError(r.Context(), w, http.StatusBadRequest, "missing_session", "missing cart session")
		return
	}

	productID := domain.ProductID(strings.TrimSpace(chi.URLParam(r, "product_id")))
	if productID == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	op(store, r.Context(), productID)
	respondJSON(r.Context(), w, http.StatusOK, store.Snapshot())
}
