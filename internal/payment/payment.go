// Package payment handles the payment provider's redirect back to the
// storefront and the matching payment events from Kafka.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/food-storefront/internal/cart"
	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/pkg/logger"
)

// SuccessCode is the provider response code for a completed payment.
const SuccessCode = "00"

// RetryURL is where a failed or cancelled payment sends the shopper back to.
const RetryURL = "/checkout"

const (
	NoticeOrderUnavailable = "Your payment succeeded but the order details could not be loaded."
	NoticePaymentFailed    = "Payment was not completed. Your cart has been kept."
)

var ErrMissingSession = errors.New("payment: missing session id")

// Orders fetches placed orders for display.
type Orders interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

type Handler struct {
	sessions *cart.Sessions
	orders   Orders
	now      func() time.Time
}

func NewHandler(sessions *cart.Sessions, orders Orders) *Handler {
	return &Handler{
		sessions: sessions,
		orders:   orders,
		now:      time.Now,
	}
}

type marker struct {
	ResponseCode string    `json:"response_code"`
	SettledAt    time.Time `json:"settled_at"`
}

func markerKey(orderID string) string {
	return "payment:" + orderID
}

// Settle clears the session's cart when code reports success. Each order id
// clears at most once per session; a repeated settlement reports false.
func (h *Handler) Settle(ctx context.Context, sessionID, code, orderID string) (bool, error) {
	if sessionID == "" {
		return false, ErrMissingSession
	}
	if code != SuccessCode {
		return false, nil
	}

	log := logger.FromContext(ctx).With().
		Str("session_id", sessionID).
		Str("order_id", orderID).
		Logger()

	if orderID != "" {
		raw, _ := json.Marshal(marker{ResponseCode: code, SettledAt: h.now().UTC()})
		first, err := h.sessions.Slot(sessionID).SetIfAbsent(ctx, markerKey(orderID), raw)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("payment marker write failed, clearing anyway")
		case !first:
			log.Debug().Msg("payment already settled")
			return false, nil
		}
	} else {
		log.Warn().Msg("successful payment without order id")
	}

	h.sessions.Get(ctx, sessionID).Clear(ctx)
	log.Info().Msg("cart cleared after payment")
	return true, nil
}

type Result struct {
	Success  bool          `json:"success"`
	Code     string        `json:"response_code"`
	OrderID  string        `json:"order_id,omitempty"`
	Cleared  bool          `json:"cart_cleared"`
	Order    *domain.Order `json:"order,omitempty"`
	Notice   string        `json:"notice,omitempty"`
	RetryURL string        `json:"retry_url,omitempty"`
}

// Handle settles a landing on the payment result page and builds its view.
func (h *Handler) Handle(ctx context.Context, sessionID, code, orderID string) (Result, error) {
	res := Result{
		Success: code == SuccessCode,
		Code:    code,
		OrderID: orderID,
	}
	if !res.Success {
		res.Notice = NoticePaymentFailed
		res.RetryURL = RetryURL
		return res, nil
	}

	cleared, err := h.Settle(ctx, sessionID, code, orderID)
	if err != nil {
		return Result{}, err
	}
	res.Cleared = cleared

	if orderID == "" {
		return res, nil
	}
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("order_id", orderID).Msg("order lookup failed")
		res.Notice = NoticeOrderUnavailable
		return res, nil
	}
	res.Order = &order
	return res, nil
}
