package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/food-storefront/internal/cart"
	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/internal/slot"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	order domain.Order
	err   error
	calls int
}

func (f *fakeOrders) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	f.calls++
	if f.err != nil {
		return domain.Order{}, f.err
	}
	o := f.order
	o.ID = id
	return o, nil
}

func setupTestRedis(t *testing.T) (*cart.Sessions, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cart.NewSessions(slot.NewRedisSlot(client, 0), 0), mr
}

func pho() domain.LineItem {
	return domain.LineItem{ID: "1", Name: "Pho", Price: decimal.NewFromInt(50000)}
}

func TestSettle_ClearsOncePerOrder(t *testing.T) {
	ctx := context.Background()
	sessions, mr := setupTestRedis(t)
	h := NewHandler(sessions, &fakeOrders{})

	sessions.Get(ctx, "s1").AddN(ctx, pho(), 2)

	cleared, err := h.Settle(ctx, "s1", SuccessCode, "ord-1")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Empty(t, sessions.Get(ctx, "s1").Items())
	assert.True(t, mr.Exists("storefront:session:s1:payment:ord-1"))

	// shopper keeps shopping, then refreshes the landing page
	sessions.Get(ctx, "s1").Add(ctx, pho())
	cleared, err = h.Settle(ctx, "s1", SuccessCode, "ord-1")
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, 1, sessions.Get(ctx, "s1").TotalItems())

	// a new order clears again
	cleared, err = h.Settle(ctx, "s1", SuccessCode, "ord-2")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Zero(t, sessions.Get(ctx, "s1").TotalItems())
}

func TestSettle_FailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	h := NewHandler(sessions, &fakeOrders{})
	sessions.Get(ctx, "s1").Add(ctx, pho())

	for _, code := range []string{"24", "", "0", "000"} {
		cleared, err := h.Settle(ctx, "s1", code, "ord-1")
		require.NoError(t, err)
		assert.False(t, cleared, "code %q", code)
	}
	assert.Equal(t, 1, sessions.Get(ctx, "s1").TotalItems())

	// a failed attempt leaves no marker, so a later success still clears
	cleared, err := h.Settle(ctx, "s1", SuccessCode, "ord-1")
	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestSettle_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	h := NewHandler(sessions, &fakeOrders{})
	sessions.Get(ctx, "a").Add(ctx, pho())
	sessions.Get(ctx, "b").Add(ctx, pho())

	_, err := h.Settle(ctx, "a", SuccessCode, "ord-1")
	require.NoError(t, err)

	assert.Zero(t, sessions.Get(ctx, "a").TotalItems())
	assert.Equal(t, 1, sessions.Get(ctx, "b").TotalItems())
}

func TestSettle_WithoutOrderIDAlwaysClears(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	h := NewHandler(sessions, &fakeOrders{})

	for i := 0; i < 2; i++ {
		sessions.Get(ctx, "s1").Add(ctx, pho())
		cleared, err := h.Settle(ctx, "s1", SuccessCode, "")
		require.NoError(t, err)
		assert.True(t, cleared)
	}
}

func TestSettle_MarkerErrorStillClears(t *testing.T) {
	ctx := context.Background()
	sessions, mr := setupTestRedis(t)
	h := NewHandler(sessions, &fakeOrders{})
	sessions.Get(ctx, "s1").Add(ctx, pho())

	mr.Close()

	cleared, err := h.Settle(ctx, "s1", SuccessCode, "ord-1")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Empty(t, sessions.Get(ctx, "s1").Items())
}

func TestSettle_MissingSession(t *testing.T) {
	h := NewHandler(cart.NewSessions(slot.NewMemorySlot(), 0), &fakeOrders{})

	_, err := h.Settle(context.Background(), "", SuccessCode, "ord-1")
	assert.ErrorIs(t, err, ErrMissingSession)
}

func TestHandle_Success(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	orders := &fakeOrders{order: domain.Order{Status: "PAID", TotalAmount: decimal.NewFromInt(100000)}}
	h := NewHandler(sessions, orders)
	sessions.Get(ctx, "s1").AddN(ctx, pho(), 2)

	res, err := h.Handle(ctx, "s1", SuccessCode, "ord-9")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.Cleared)
	require.NotNil(t, res.Order)
	assert.Equal(t, "ord-9", res.Order.ID)
	assert.Empty(t, res.RetryURL)
	assert.Empty(t, res.Notice)

	res, err = h.Handle(ctx, "s1", SuccessCode, "ord-9")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Cleared)
	assert.Equal(t, 2, orders.calls)
}

func TestHandle_OrderLookupFails(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	h := NewHandler(sessions, &fakeOrders{err: errors.New("backend down")})
	sessions.Get(ctx, "s1").Add(ctx, pho())

	res, err := h.Handle(ctx, "s1", SuccessCode, "ord-1")
	require.NoError(t, err)

	assert.True(t, res.Cleared)
	assert.Nil(t, res.Order)
	assert.Equal(t, NoticeOrderUnavailable, res.Notice)
}

func TestHandle_Failure(t *testing.T) {
	ctx := context.Background()
	sessions := cart.NewSessions(slot.NewMemorySlot(), 0)
	orders := &fakeOrders{}
	h := NewHandler(sessions, orders)
	sessions.Get(ctx, "s1").Add(ctx, pho())

	res, err := h.Handle(ctx, "s1", "24", "ord-1")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.False(t, res.Cleared)
	assert.Equal(t, RetryURL, res.RetryURL)
	assert.Equal(t, NoticePaymentFailed, res.Notice)
	assert.Zero(t, orders.calls)
	assert.Equal(t, 1, sessions.Get(ctx, "s1").TotalItems())
}
