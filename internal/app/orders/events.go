package orders

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type OrderCreatedEvent struct {
	ID int `json:"id"`
}

// Sink delivers serialized events to a transport.
type Sink interface {
	Send(ctx context.Context, topic string, payload []byte) error
}

const OrderCreatedTopic = "orders.created"

type Publisher struct {
	sink Sink
}

func NewPublisher(sink Sink) *Publisher {
	return &Publisher{sink: sink}
}

func (p *Publisher) OrderCreated(ctx context.Context, order Order) error {
	payload, err := json.Marshal(OrderCreatedEvent{ID: order.ID})
	if err != nil {
		return errors.Wrap(err, "marshal order created event")
	}
	if err := p.sink.Send(ctx, OrderCreatedTopic, payload); err != nil {
		return errors.Wrapf(err, "publish order created event for order %d", order.ID)
	}
	log.WithField("order", order.ID).Info("order created event published")
	return nil
}

// LogSink writes events to the log instead of a broker.
type LogSink struct{}

func (LogSink) Send(_ context.Context, topic string, payload []byte) error {
	log.WithField("topic", topic).Info(string(payload))
	return nil
}
