// Package contracts holds the identifiers both sides of the orders contracts
// must agree on. Consumer and provider tests import the same constants, so a
// renamed interaction breaks compilation instead of silently orphaning a
// message scenario.
package contracts

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
)

const (
	FulfilmentAPI   = "Fulfilment API"
	OrdersAPI       = "Orders API"
	OrdersMessaging = "Orders Messaging"
)

const (
	GetOrder        = "a request for an order by ID"
	GetUnknownOrder = "a request for an order with an unknown ID"
	UpdateOrder     = "a request to update the status of an order"
	OrderCreated    = "an event indicating that an order has been created"
)

const (
	OrderExistsState = "an order with ID {id} exists"
	OrderIDParam     = "id"
)

// OrderExists returns the parameterised state for the given order ID.
func OrderExists(id int) (string, map[string]string) {
	return OrderExistsState, map[string]string{OrderIDParam: fmt.Sprint(id)}
}

type pactConfig struct {
	Dir string `env:"PACT_DIR"`
}

// PactDir is where contract artifacts are written by consumer tests and read
// by provider tests. PACT_DIR overrides the checked-in pacts directory.
func PactDir() (string, error) {
	var config pactConfig
	if err := envconfig.Process(context.Background(), &config); err != nil {
		return "", errors.Wrap(err, "process env config")
	}
	if config.Dir != "" {
		return config.Dir, nil
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("unable to locate pacts directory")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "pacts"), nil
}
