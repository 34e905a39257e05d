package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjod/food-storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic   = "payment-results"
	DefaultGroupID = "storefront-payment-consumer"
)

// PaymentEvent is published by the payment flow once the provider reports a result.
type PaymentEvent struct {
	SessionID    string `json:"session_id"`
	OrderID      string `json:"order_id"`
	ResponseCode string `json:"response_code"`
}

// Settler applies a payment result to the shopper's cart.
type Settler interface {
	Settle(ctx context.Context, sessionID, code, orderID string) (bool, error)
}

type Poller struct {
	settler Settler
	reader  *kafka.Reader
}

func NewPoller(settler Settler, topic string, brokers ...string) *Poller {
	if topic == "" {
		topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultGroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{settler: settler, reader: reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.readAndSettle(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		logger.FromContext(context.Background()).Error().Err(err).Msg("error closing reader")
	}
}

func (p *Poller) readAndSettle(ctx context.Context) {
	log := logger.FromContext(ctx)

	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("error reading message")
		}
		return
	}

	var event PaymentEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Error().Err(err).Int64("offset", m.Offset).Msg("error parsing payment event")
		return
	}
	if event.SessionID == "" {
		log.Warn().Int64("offset", m.Offset).Msg("payment event without session_id")
		return
	}

	cleared, err := p.settler.Settle(ctx, event.SessionID, event.ResponseCode, event.OrderID)
	if err != nil {
		log.Error().Err(err).Str("session_id", event.SessionID).Msg("failed to settle payment")
		return
	}
	log.Info().
		Str("session_id", event.SessionID).
		Str("order_id", event.OrderID).
		Str("response_code", event.ResponseCode).
		Bool("cleared", cleared).
		Msg("payment event processed")
}
