package fulfilment

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/contracts"
	"github.com/form3tech-oss/pact-orders/pkg/consumer"
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFulfilmentService struct {
	mock.Mock
}

func (m *mockFulfilmentService) FulfilOrder(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ConsumerStage struct {
	t           *testing.T
	assert      *assert.Assertions
	require     *require.Assertions
	httpPact    *consumer.HTTPPact
	messagePact *consumer.MessagePact
	message     *consumer.MessageBuilder
	service     *mockFulfilmentService
	order       *Order
	clientErr   error
	verifyErr   error
}

var expectedOrder = Order{
	ID:     1,
	Status: Pending,
	Date:   time.Date(2023, 6, 28, 12, 13, 14, 0, time.FixedZone("", int(time.Hour/time.Second))),
}

func NewConsumerStage(t *testing.T) (*ConsumerStage, *ConsumerStage, *ConsumerStage) {
	pactDir, err := contracts.PactDir()
	require.NoError(t, err)

	s := &ConsumerStage{
		t:       t,
		assert:  assert.New(t),
		require: require.New(t),
		httpPact: consumer.NewHTTPPact(consumer.Config{
			Consumer: contracts.FulfilmentAPI,
			Provider: contracts.OrdersAPI,
			PactDir:  pactDir,
			Run:      pactRun,
		}),
		messagePact: consumer.NewMessagePact(consumer.Config{
			Consumer: contracts.FulfilmentAPI,
			Provider: contracts.OrdersMessaging,
			PactDir:  pactDir,
			Run:      pactRun,
		}),
		service: &mockFulfilmentService{},
	}
	return s, s, s
}

func (s *ConsumerStage) and() *ConsumerStage {
	return s
}

func statusMatcher(example OrderStatus) contract.Matcher {
	values := make([]string, 0, len(OrderStatuses))
	for _, status := range OrderStatuses {
		values = append(values, string(status))
	}
	return contract.OneOf(string(example), values...)
}

func (s *ConsumerStage) an_order_exists() *ConsumerStage {
	state, params := contracts.OrderExists(expectedOrder.ID)
	s.httpPact.
		UponReceiving(contracts.GetOrder).
		Given(state, params).
		WithRequest(http.MethodGet, "/api/orders/1").
		WithHeader("Accept", "application/json").
		WillRespondWith(http.StatusOK).
		WithJSONBody(map[string]interface{}{
			"id":     contract.Integer(int64(expectedOrder.ID)),
			"status": statusMatcher(expectedOrder.Status),
			"date":   contract.Like(expectedOrder.Date.Format(time.RFC3339)),
		})
	return s
}

func (s *ConsumerStage) no_order_exists() *ConsumerStage {
	s.httpPact.
		UponReceiving(contracts.GetUnknownOrder).
		WithRequest(http.MethodGet, "/api/orders/404").
		WithHeader("Accept", "application/json").
		WillRespondWith(http.StatusNotFound)
	return s
}

func (s *ConsumerStage) the_order_status_can_be_updated() *ConsumerStage {
	state, params := contracts.OrderExists(expectedOrder.ID)
	s.httpPact.
		UponReceiving(contracts.UpdateOrder).
		Given(state, params).
		WithRequest(http.MethodPut, "/api/orders/1/status").
		WithJSONBody(statusMatcher(Fulfilling)).
		WillRespondWith(http.StatusNoContent)
	return s
}

func (s *ConsumerStage) an_order_created_event_is_expected() *ConsumerStage {
	s.message = s.messagePact.
		ExpectsToReceive(contracts.OrderCreated).
		WithJSONContent(map[string]interface{}{
			"id": contract.Integer(1),
		})
	return s
}

func (s *ConsumerStage) fulfilment_succeeds_for_order(id int) *ConsumerStage {
	s.service.On("FulfilOrder", mock.Anything, id).Return(nil).Once()
	return s
}

func (s *ConsumerStage) withClient(call func(client *OrdersClient)) {
	s.verifyErr = s.httpPact.Verify(func(mockServerURL *url.URL) error {
		call(NewOrdersClient(mockServerURL, nil))
		return nil
	})
}

func (s *ConsumerStage) the_order_is_requested(id int) *ConsumerStage {
	s.withClient(func(client *OrdersClient) {
		s.order, s.clientErr = client.GetOrder(context.Background(), id)
	})
	return s
}

func (s *ConsumerStage) the_order_status_is_updated_to(status OrderStatus) *ConsumerStage {
	s.withClient(func(client *OrdersClient) {
		s.clientErr = client.UpdateOrder(context.Background(), expectedOrder.ID, status)
	})
	return s
}

func (s *ConsumerStage) the_order_is_fulfilled() *ConsumerStage {
	s.withClient(func(client *OrdersClient) {
		s.clientErr = NewService(client).FulfilOrder(context.Background(), expectedOrder.ID)
	})
	return s
}

func (s *ConsumerStage) the_order_created_event_is_received() *ConsumerStage {
	orderConsumer := NewOrderCreatedConsumer(s.service)
	s.verifyErr = s.message.Verify(consumer.AsJSON(func(event OrderCreatedEvent) error {
		return orderConsumer.OnMessage(context.Background(), event)
	}))
	return s
}

func (s *ConsumerStage) the_contract_is_verified() *ConsumerStage {
	s.require.NoError(s.verifyErr)
	return s
}

func (s *ConsumerStage) the_call_succeeds() *ConsumerStage {
	s.assert.NoError(s.clientErr)
	return s
}

func (s *ConsumerStage) the_order_is_returned() *ConsumerStage {
	s.require.NotNil(s.order)
	s.assert.Equal(expectedOrder.ID, s.order.ID)
	s.assert.Equal(expectedOrder.Status, s.order.Status)
	s.assert.True(expectedOrder.Date.Equal(s.order.Date), "unexpected date %s", s.order.Date)
	return s
}

func (s *ConsumerStage) the_order_is_not_found() *ConsumerStage {
	s.assert.Nil(s.order)
	s.assert.True(IsNotFound(s.clientErr), "expected not found, got %v", s.clientErr)
	return s
}

func (s *ConsumerStage) fulfilment_was_started() *ConsumerStage {
	s.service.AssertExpectations(s.t)
	s.service.AssertNumberOfCalls(s.t, "FulfilOrder", 1)
	return s
}
