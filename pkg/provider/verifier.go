package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultReadyTimeout = 10 * time.Second
	readyPollInterval   = 100 * time.Millisecond
)

// MessageProducer builds the message the provider would publish for a
// scenario. The returned value is serialized as JSON.
type MessageProducer func() (interface{}, error)

// Verifier replays contract interactions against a running provider.
type Verifier struct {
	Provider string
	// BaseURL of the provider API. Only required for HTTP interactions.
	BaseURL *url.URL
	// StateURL receives provider state changes. Only required when an
	// interaction declares provider states.
	StateURL *url.URL
	Client   *http.Client
	// Messages maps message interaction descriptions to their producers.
	Messages     map[string]MessageProducer
	ReadyTimeout time.Duration
}

// VerifyFile loads the contract at path and verifies it.
func (v *Verifier) VerifyFile(ctx context.Context, path string) (*Report, error) {
	pact, err := contract.LoadFile(path)
	if err != nil {
		return nil, &SetupError{err: err}
	}
	return v.Verify(ctx, pact)
}

// Verify replays every interaction in order and reports all of them. The
// returned error is a *SetupError when verification could not start; a
// failing interaction is reported through Report.Err.
func (v *Verifier) Verify(ctx context.Context, pact *contract.Pact) (*Report, error) {
	if pact.Provider.Name != v.Provider {
		return nil, &SetupError{err: errors.Errorf("contract is for provider '%s', not '%s'", pact.Provider.Name, v.Provider)}
	}

	if hasProviderStates(pact) && v.StateURL == nil {
		return nil, &SetupError{err: errors.New("contract declares provider states but no state URL is configured")}
	}
	if hasHTTPInteractions(pact) {
		if v.BaseURL == nil {
			return nil, &SetupError{err: errors.New("no provider base URL configured")}
		}
		if err := v.waitForProvider(ctx); err != nil {
			return nil, &SetupError{err: err}
		}
	}

	report := &Report{Provider: pact.Provider.Name, Consumer: pact.Consumer.Name}
	used := make(map[string]bool)
	for _, interaction := range pact.Interactions {
		logger := log.WithFields(log.Fields{
			"consumer":    pact.Consumer.Name,
			"interaction": interaction.Description,
		})
		logger.Info("verifying interaction")

		result := Result{Description: interaction.Description, Type: interaction.Type}
		result.Mismatches, result.Err = v.verifyInteraction(ctx, interaction, used)
		for _, m := range result.Mismatches {
			logger.Warnf("mismatch %s", m)
		}
		if result.Err != nil {
			logger.WithError(result.Err).Error("interaction could not be verified")
		}
		report.add(result)
	}

	v.logUnusedMessages(used)
	return report, nil
}

// verifyInteraction returns the contract mismatches of one interaction and,
// separately, any failure to talk to the provider at all.
func (v *Verifier) verifyInteraction(ctx context.Context, interaction contract.Interaction, used map[string]bool) ([]contract.Mismatch, error) {
	if err := v.changeStates(ctx, interaction.ProviderStates, actionSetup); err != nil {
		// partially applied states are still torn down
		_ = v.changeStates(ctx, interaction.ProviderStates, actionTeardown)
		return stateFailure(err)
	}

	var mismatches []contract.Mismatch
	var err error
	switch interaction.Type {
	case contract.SynchronousHTTP:
		mismatches, err = v.verifyHTTP(ctx, interaction)
	case contract.AsynchronousMessages:
		used[interaction.Description] = true
		mismatches = v.verifyMessage(interaction)
	}

	teardownErr := v.changeStates(ctx, interaction.ProviderStates, actionTeardown)
	if err != nil {
		return mismatches, err
	}
	if teardownErr != nil {
		more, err := stateFailure(teardownErr)
		return append(mismatches, more...), err
	}
	return mismatches, nil
}

func (v *Verifier) client() *http.Client {
	if v.Client != nil {
		return v.Client
	}
	return http.DefaultClient
}

func (v *Verifier) waitForProvider(ctx context.Context) error {
	timeout := v.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL.String(), nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		res, err := v.client().Do(req)
		if err != nil {
			return err
		}
		res.Body.Close()
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(timeout/readyPollInterval)+1),
		retry.Delay(readyPollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return errors.Wrapf(err, "provider at %s did not become ready within %s", v.BaseURL, timeout)
	}
	return nil
}

func (v *Verifier) verifyHTTP(ctx context.Context, interaction contract.Interaction) ([]contract.Mismatch, error) {
	expected := interaction.Request

	target := *v.BaseURL
	target.Path = strings.TrimSuffix(target.Path, "/") + expected.Path

	var body io.Reader
	if len(expected.Body) > 0 {
		body = bytes.NewReader(expected.Body)
	}
	req, err := http.NewRequestWithContext(ctx, expected.Method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build request")
	}
	for name, value := range expected.Headers {
		req.Header.Set(name, value)
	}

	res, err := v.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", expected.Method, expected.Path)
	}
	defer res.Body.Close()

	actualBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read response body of %s %s", expected.Method, expected.Path)
	}

	response := interaction.Response
	var mismatches []contract.Mismatch
	if res.StatusCode != response.Status {
		mismatches = append(mismatches, contract.Mismatch{
			Path:    "$.status",
			Message: fmt.Sprintf("expected status %d but received %d", response.Status, res.StatusCode),
		})
	}
	mismatches = append(mismatches, contract.CompareHeaders(response.Headers, res.Header)...)
	bodyMismatches := contract.CompareBody(response.Body, actualBody, response.MatchingRules.Body())
	return append(mismatches, contract.Rebase(bodyMismatches, "$.body")...), nil
}

func (v *Verifier) verifyMessage(interaction contract.Interaction) []contract.Mismatch {
	produce, ok := v.Messages[interaction.Description]
	if !ok {
		return []contract.Mismatch{{Path: "$", Message: fmt.Sprintf("no message scenario registered for '%s'", interaction.Description)}}
	}

	message, err := produce()
	if err != nil {
		return []contract.Mismatch{{Path: "$", Message: fmt.Sprintf("message scenario failed. %s", err)}}
	}
	actual, err := json.Marshal(message)
	if err != nil {
		return []contract.Mismatch{{Path: "$", Message: fmt.Sprintf("unable to serialize message. %s", err)}}
	}

	mismatches := contract.CompareBody(interaction.Contents, actual, interaction.MatchingRules.Body())
	return contract.Rebase(mismatches, "$.contents")
}

func (v *Verifier) logUnusedMessages(used map[string]bool) {
	var unused []string
	for description := range v.Messages {
		if !used[description] {
			unused = append(unused, description)
		}
	}
	sort.Strings(unused)
	for _, description := range unused {
		log.WithField("scenario", description).Warn("message scenario is not used by the contract")
	}
}

func hasHTTPInteractions(pact *contract.Pact) bool {
	for _, interaction := range pact.Interactions {
		if interaction.Type == contract.SynchronousHTTP {
			return true
		}
	}
	return false
}

func hasProviderStates(pact *contract.Pact) bool {
	for _, interaction := range pact.Interactions {
		if len(interaction.ProviderStates) > 0 {
			return true
		}
	}
	return false
}
