package orders

import (
	"context"
	"strconv"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/contracts"
	"github.com/form3tech-oss/pact-orders/pkg/provider"
	"github.com/pkg/errors"
)

// SeedDate is the creation date of orders installed by provider states.
var SeedDate = time.Date(2023, 6, 28, 12, 13, 14, 0, time.FixedZone("", int(time.Hour/time.Second)))

// ProviderStates returns the states the orders contracts depend on.
func ProviderStates(repository *Repository) map[string]provider.State {
	teardown := func(context.Context, map[string]string) error {
		repository.Clear()
		return nil
	}

	return map[string]provider.State{
		contracts.OrderExistsState: {
			Setup: func(_ context.Context, params map[string]string) error {
				id, err := strconv.Atoi(params[contracts.OrderIDParam])
				if err != nil {
					return errors.Errorf("invalid order id '%s'", params[contracts.OrderIDParam])
				}
				repository.Save(Order{ID: id, Status: Pending, Date: SeedDate})
				return nil
			},
			Teardown: teardown,
		},
	}
}
