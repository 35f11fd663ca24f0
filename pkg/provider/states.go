package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/form3tech-oss/pact-orders/internal/app/httpresponse"
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	actionSetup    = "setup"
	actionTeardown = "teardown"
)

// StateChange is the body POSTed to the provider states endpoint.
type StateChange struct {
	State  string            `json:"state"`
	Params map[string]string `json:"params,omitempty"`
	Action string            `json:"action"`
}

func (v *Verifier) changeStates(ctx context.Context, states []contract.ProviderState, action string) error {
	if len(states) == 0 {
		return nil
	}
	if v.StateURL == nil {
		return errors.New("no state URL configured")
	}

	for _, state := range states {
		log.WithFields(log.Fields{"state": state.Name, "action": action}).Debug("changing provider state")
		if err := v.postState(ctx, StateChange{State: state.Name, Params: state.Params, Action: action}); err != nil {
			return errors.Wrapf(err, "provider state '%s' %s failed", state.Name, action)
		}
	}
	return nil
}

func (v *Verifier) postState(ctx context.Context, change StateChange) error {
	body, err := json.Marshal(change)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.StateURL.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	res, err := v.client().Do(req)
	if err != nil {
		return errors.Wrapf(err, "unable to reach provider states endpoint %s", v.StateURL)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := httpresponse.APIError{}
		_ = json.NewDecoder(res.Body).Decode(&apiErr)
		return &stateRejectedError{status: res.StatusCode, message: apiErr.ErrorMessage}
	}
	return nil
}

// stateRejectedError is a provider states endpoint answering with a
// non-success status.
type stateRejectedError struct {
	status  int
	message string
}

func (e *stateRejectedError) Error() string {
	return fmt.Sprintf("received status %d %s", e.status, e.message)
}

// stateFailure turns a rejected state into a failure of the interaction. Any
// other error means the endpoint could not be reached and is passed on.
func stateFailure(err error) ([]contract.Mismatch, error) {
	var rejected *stateRejectedError
	if errors.As(err, &rejected) {
		return []contract.Mismatch{{Path: "$.providerStates", Message: err.Error()}}, nil
	}
	return nil, err
}

// State installs and removes the data a named provider state describes.
type State struct {
	Setup    func(ctx context.Context, params map[string]string) error
	Teardown func(ctx context.Context, params map[string]string) error
}

// StatesHandler serves provider state changes for the registered states.
// Unknown states and actions are rejected with 400.
func StatesHandler(states map[string]State) echo.HandlerFunc {
	return func(c echo.Context) error {
		change := StateChange{}
		if err := json.NewDecoder(c.Request().Body).Decode(&change); err != nil {
			return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to decode provider state. %s", err.Error()))
		}

		state, ok := states[change.State]
		if !ok {
			return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unknown provider state '%s'", change.State))
		}

		action := strings.ToLower(change.Action)
		if action == "" {
			action = actionSetup
		}

		var handle func(ctx context.Context, params map[string]string) error
		switch action {
		case actionSetup:
			handle = state.Setup
		case actionTeardown:
			handle = state.Teardown
		default:
			return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unknown provider state action '%s'", change.Action))
		}

		if handle != nil {
			if err := handle(c.Request().Context(), change.Params); err != nil {
				return c.JSON(http.StatusBadRequest, httpresponse.Errorf("unable to %s provider state '%s'. %s", action, change.State, err.Error()))
			}
		}

		log.WithFields(log.Fields{"state": change.State, "action": action}).Info("provider state changed")
		return c.NoContent(http.StatusOK)
	}
}
