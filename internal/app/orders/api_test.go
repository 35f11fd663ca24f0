package orders

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/contracts"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{}

func (failingSink) Send(context.Context, string, []byte) error {
	return errors.New("broker unavailable")
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetOrder(t *testing.T) {
	repository := NewRepository()
	repository.Save(Order{ID: 1, Status: Shipped, Date: SeedDate})
	e := NewAPI(repository, NewPublisher(LogSink{}), false)

	for _, tt := range []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{
			name:   "existing order",
			path:   "/api/orders/1",
			status: http.StatusOK,
			body:   `{"id":1,"status":"Shipped","date":"2023-06-28T12:13:14+01:00"}`,
		},
		{
			name:   "unknown order",
			path:   "/api/orders/404",
			status: http.StatusNotFound,
			body:   `{"error_message":"id 404: order not found"}`,
		},
		{
			name:   "invalid id",
			path:   "/api/orders/abc",
			status: http.StatusBadRequest,
			body:   `{"error_message":"invalid order id 'abc'"}`,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	for _, tt := range []struct {
		name   string
		path   string
		body   string
		status int
		want   Status
	}{
		{name: "valid status", path: "/api/orders/1/status", body: `"Fulfilling"`, status: http.StatusNoContent, want: Fulfilling},
		{name: "unknown status", path: "/api/orders/1/status", body: `"Lost"`, status: http.StatusBadRequest, want: Pending},
		{name: "status is not a string", path: "/api/orders/1/status", body: `{"status":"Shipped"}`, status: http.StatusBadRequest, want: Pending},
		{name: "unknown order", path: "/api/orders/2/status", body: `"Shipped"`, status: http.StatusNotFound, want: Pending},
	} {
		t.Run(tt.name, func(t *testing.T) {
			repository := NewRepository()
			repository.Save(Order{ID: 1, Status: Pending, Date: SeedDate})
			e := NewAPI(repository, NewPublisher(LogSink{}), false)

			rec := serve(e, http.MethodPut, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			order, err := repository.Get(1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.Status)
		})
	}
}

func TestCreateOrderPublishesEvent(t *testing.T) {
	repository := NewRepository()
	repository.Save(Order{ID: 4, Status: Shipped, Date: SeedDate})
	sink := &captureSink{}
	e := NewAPI(repository, NewPublisher(sink), false)

	rec := serve(e, http.MethodPost, "/api/orders", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":5}`, string(sink.payload))
	order, err := repository.Get(5)
	require.NoError(t, err)
	assert.Equal(t, Pending, order.Status)
	assert.WithinDuration(t, time.Now(), order.Date, time.Minute)
}

func TestCreateOrderFailsWhenEventCannotBePublished(t *testing.T) {
	e := NewAPI(NewRepository(), NewPublisher(failingSink{}), false)

	rec := serve(e, http.MethodPost, "/api/orders", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "broker unavailable")
}

func TestProviderStatesEndpoint(t *testing.T) {
	t.Run("not mounted by default", func(t *testing.T) {
		e := NewAPI(NewRepository(), NewPublisher(LogSink{}), false)

		rec := serve(e, http.MethodPost, ProviderStatesPath, `{"state":"an order with ID {id} exists","params":{"id":"1"}}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("setup seeds and teardown clears", func(t *testing.T) {
		repository := NewRepository()
		e := NewAPI(repository, NewPublisher(LogSink{}), true)

		rec := serve(e, http.MethodPost, ProviderStatesPath, `{"state":"an order with ID {id} exists","params":{"id":"7"},"action":"setup"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		order, err := repository.Get(7)
		require.NoError(t, err)
		assert.Equal(t, Order{ID: 7, Status: Pending, Date: SeedDate}, order)

		rec = serve(e, http.MethodPost, ProviderStatesPath, `{"state":"an order with ID {id} exists","params":{"id":"7"},"action":"teardown"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		_, err = repository.Get(7)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown state", func(t *testing.T) {
		e := NewAPI(NewRepository(), NewPublisher(LogSink{}), true)

		rec := serve(e, http.MethodPost, ProviderStatesPath, `{"state":"no orders exist","action":"setup"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown provider state")
	})

	t.Run("invalid id param", func(t *testing.T) {
		e := NewAPI(NewRepository(), NewPublisher(LogSink{}), true)
		state, _ := contracts.OrderExists(1)

		rec := serve(e, http.MethodPost, ProviderStatesPath, `{"state":"`+state+`","params":{"id":"one"},"action":"setup"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStatusUnmarshal(t *testing.T) {
	for _, status := range Statuses {
		var s Status
		require.NoError(t, s.UnmarshalJSON([]byte(`"`+string(status)+`"`)))
		assert.Equal(t, status, s)
	}

	var s Status
	assert.Error(t, s.UnmarshalJSON([]byte(`"pending"`)))
	assert.Error(t, s.UnmarshalJSON([]byte(`1`)))
}
