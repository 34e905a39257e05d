package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/food-storefront/internal/cart"
	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/internal/payment"
	"github.com/fjod/food-storefront/internal/slot"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

func setupTestSessions(t *testing.T) *cart.Sessions {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cart.NewSessions(slot.NewRedisSlot(client, 0), 0)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

type noOrders struct{}

func (noOrders) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return domain.Order{ID: id}, nil
}

func TestPoller_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := setupTestSessions(t)
	brokers, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	topic := "payment-results"
	createTopic(t, brokers, topic)

	handler := payment.NewHandler(sessions, noOrders{})
	poller := NewPoller(handler, topic, brokers)
	defer poller.Close()

	item := domain.LineItem{ID: "1", Name: "Pho", Price: decimal.NewFromInt(50000)}
	sessions.Get(ctx, "paid").AddN(ctx, item, 2)
	sessions.Get(ctx, "cancelled").Add(ctx, item)
	assert.Equal(t, 2, sessions.Get(ctx, "paid").TotalItems())

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	var msgs []kafkaGo.Message
	for _, ev := range []PaymentEvent{
		{SessionID: "cancelled", OrderID: "ord-2", ResponseCode: "24"},
		{SessionID: "paid", OrderID: "ord-1", ResponseCode: payment.SuccessCode},
	} {
		raw, err := json.Marshal(ev)
		require.NoError(t, err)
		msgs = append(msgs, kafkaGo.Message{Key: []byte(ev.OrderID), Value: raw})
	}
	msgs = append(msgs, kafkaGo.Message{Key: []byte("junk"), Value: []byte("not json")})

	err := w.WriteMessages(ctx, msgs...)
	require.NoError(t, err)
	w.Close()

	go poller.Run(ctx)
	require.Eventually(t, func() bool {
		return sessions.Get(ctx, "paid").TotalItems() == 0
	}, 15*time.Second, 500*time.Millisecond)

	assert.Equal(t, 1, sessions.Get(ctx, "cancelled").TotalItems())

	// the landing page arriving after the event must not clear again
	sessions.Get(ctx, "paid").Add(ctx, item)
	cleared, err := handler.Settle(ctx, "paid", payment.SuccessCode, "ord-1")
	require.NoError(t, err)
	assert.Assert(t, !cleared)
	assert.Equal(t, 1, sessions.Get(ctx, "paid").TotalItems())
}
