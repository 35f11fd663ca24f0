package fulfilment

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type OrderCreatedEvent struct {
	ID int `json:"id"`
}

type FulfilmentService interface {
	FulfilOrder(ctx context.Context, id int) error
}

// OrderCreatedConsumer starts fulfilment for every newly created order.
type OrderCreatedConsumer struct {
	service FulfilmentService
}

func NewOrderCreatedConsumer(service FulfilmentService) *OrderCreatedConsumer {
	return &OrderCreatedConsumer{service: service}
}

func (c *OrderCreatedConsumer) OnMessage(ctx context.Context, event OrderCreatedEvent) error {
	log.WithField("order", event.ID).Info("order created event received")
	if err := c.service.FulfilOrder(ctx, event.ID); err != nil {
		return errors.Wrapf(err, "fulfil order %d", event.ID)
	}
	return nil
}
