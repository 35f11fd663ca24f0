package orders

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-orders/pkg/provider"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const ProviderStatesPath = "/provider-states"

type api struct {
	repository *Repository
	publisher  *Publisher
	now        func() time.Time
}

// NewAPI builds the orders HTTP API. The provider states endpoint is only
// mounted when enableProviderStates is set.
func NewAPI(repository *Repository, publisher *Publisher, enableProviderStates bool) *echo.Echo {
	a := &api{repository: repository, publisher: publisher, now: time.Now}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/api/orders/:id", a.getOrder)
	e.PUT("/api/orders/:id/status", a.updateStatus)
	e.POST("/api/orders", a.createOrder)

	if enableProviderStates {
		log.Warn("provider states endpoint enabled")
		e.POST(ProviderStatesPath, provider.StatesHandler(ProviderStates(repository)))
	}
	return e
}

func orderID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, errors.Errorf("invalid order id '%s'", c.Param("id"))
	}
	return id, nil
}

func (a *api) getOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Error(err.Error()))
	}

	order, err := a.repository.Get(id)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, httpresponse.Error(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Error(err.Error()))
	}
	return c.JSON(http.StatusOK, order)
}

func (a *api) updateStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Error(err.Error()))
	}

	var status Status
	if err := json.NewDecoder(c.Request().Body).Decode(&status); err != nil {
		return c.JSON(http.StatusBadRequest, httpresponse.Errorf("invalid status. %s", err.Error()))
	}

	err = a.repository.UpdateStatus(id, status)
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, httpresponse.Error(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Error(err.Error()))
	}

	log.WithFields(log.Fields{"order": id, "status": status}).Info("order status updated")
	return c.NoContent(http.StatusNoContent)
}

func (a *api) createOrder(c echo.Context) error {
	order := a.repository.Create(a.now())
	if err := a.publisher.OrderCreated(c.Request().Context(), order); err != nil {
		return c.JSON(http.StatusInternalServerError, httpresponse.Error(err.Error()))
	}
	return c.JSON(http.StatusCreated, order)
}
