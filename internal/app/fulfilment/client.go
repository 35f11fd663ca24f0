package fulfilment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type OrderStatus string

const (
	Pending    OrderStatus = "Pending"
	Fulfilling OrderStatus = "Fulfilling"
	Shipped    OrderStatus = "Shipped"
	Cancelled  OrderStatus = "Cancelled"
)

var OrderStatuses = []OrderStatus{Pending, Fulfilling, Shipped, Cancelled}

type Order struct {
	ID     int         `json:"id"`
	Status OrderStatus `json:"status"`
	Date   time.Time   `json:"date"`
}

// StatusError is returned when the orders API answers with a non-success
// status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("orders API responded with %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

type OrdersClient struct {
	baseURL *url.URL
	client  *http.Client
}

func NewOrdersClient(baseURL *url.URL, client *http.Client) *OrdersClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &OrdersClient{baseURL: baseURL, client: client}
}

func (c *OrdersClient) orderURL(id int, elem ...string) string {
	return c.baseURL.JoinPath(append([]string{"api", "orders", strconv.Itoa(id)}, elem...)...).String()
}

func (c *OrdersClient) GetOrder(ctx context.Context, id int) (*Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orderURL(id), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: res.StatusCode}
	}

	order := &Order{}
	if err := json.NewDecoder(res.Body).Decode(order); err != nil {
		return nil, errors.Wrapf(err, "decode order %d", id)
	}
	return order, nil
}

func (c *OrdersClient) UpdateOrder(ctx context.Context, id int, status OrderStatus) error {
	body, err := json.Marshal(status)
	if err != nil {
		return errors.Wrap(err, "marshal status")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.orderURL(id, "status"), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "update order %d", id)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{StatusCode: res.StatusCode}
	}
	log.WithFields(log.Fields{"order": id, "status": status}).Debug("order status updated")
	return nil
}
