package fulfilment

import (
	"context"
)

// Service moves newly created orders into fulfilment through the orders API.
type Service struct {
	orders *OrdersClient
}

func NewService(orders *OrdersClient) *Service {
	return &Service{orders: orders}
}

func (s *Service) FulfilOrder(ctx context.Context, id int) error {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != Pending {
		return nil
	}
	return s.orders.UpdateOrder(ctx, id, Fulfilling)
}
