package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/food-storefront/internal/payment"
)

// Payments settles a payment provider redirect.
type Payments interface {
	Handle(ctx context.Context, sessionID, code, orderID string) (payment.Result, error)
}

type PaymentHandler struct {
	payments Payments
	timeout  time.Duration
}

func NewPaymentHandler(payments Payments, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		timeout:  timeout,
	}
}

// Result is the landing route the payment provider redirects the shopper to.
func (h *PaymentHandler) Result(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	params := r.URL.Query()
	code := params.Get("vnp_ResponseCode")
	if code == "" {
		code = params.Get("responseCode")
	}

	res, err := h.payments.Handle(ctx, SessionIDFromContext(ctx), code, params.Get("orderId"))
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, res)
}
