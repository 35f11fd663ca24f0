package orders

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/configuration"
	"github.com/form3tech-oss/pact-orders/internal/app/contracts"
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/form3tech-oss/pact-orders/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ProviderStage struct {
	t          *testing.T
	assert     *assert.Assertions
	require    *require.Assertions
	repository *Repository
	baseURL    *url.URL
	verifier   *provider.Verifier
	pactPath   string
	report     *provider.Report
	err        error
}

// captureSink keeps the last payload instead of sending it anywhere.
type captureSink struct {
	payload []byte
}

func (s *captureSink) Send(_ context.Context, _ string, payload []byte) error {
	s.payload = payload
	return nil
}

func NewProviderStage(t *testing.T) (*ProviderStage, *ProviderStage, *ProviderStage) {
	repository := NewRepository()
	host, err := configuration.StartHost("127.0.0.1:0", NewAPI(repository, NewPublisher(LogSink{}), true))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, host.Shutdown(ctx))
	})

	s := &ProviderStage{
		t:          t,
		assert:     assert.New(t),
		require:    require.New(t),
		repository: repository,
		baseURL:    host.URL(),
	}
	return s, s, s
}

func (s *ProviderStage) and() *ProviderStage {
	return s
}

func (s *ProviderStage) pactDir() string {
	dir, err := contracts.PactDir()
	s.require.NoError(err)
	return dir
}

func (s *ProviderStage) the_orders_api_contract() *ProviderStage {
	s.pactPath = filepath.Join(s.pactDir(), contract.FileName(contracts.FulfilmentAPI, contracts.OrdersAPI))
	s.verifier = &provider.Verifier{
		Provider:     contracts.OrdersAPI,
		BaseURL:      s.baseURL,
		StateURL:     s.baseURL.JoinPath(ProviderStatesPath),
		ReadyTimeout: 5 * time.Second,
	}
	return s
}

func (s *ProviderStage) the_orders_messaging_contract() *ProviderStage {
	s.pactPath = filepath.Join(s.pactDir(), contract.FileName(contracts.FulfilmentAPI, contracts.OrdersMessaging))
	s.verifier = &provider.Verifier{
		Provider: contracts.OrdersMessaging,
		Messages: map[string]provider.MessageProducer{},
	}
	return s
}

func (s *ProviderStage) the_order_created_scenario_is_registered() *ProviderStage {
	s.verifier.Messages[contracts.OrderCreated] = func() (interface{}, error) {
		sink := &captureSink{}
		if err := NewPublisher(sink).OrderCreated(context.Background(), Order{ID: 2, Status: Pending, Date: SeedDate}); err != nil {
			return nil, err
		}
		return json.RawMessage(sink.payload), nil
	}
	return s
}

func (s *ProviderStage) a_scenario_producing_an_order_id_as_text() *ProviderStage {
	s.verifier.Messages[contracts.OrderCreated] = func() (interface{}, error) {
		return map[string]string{"id": "2"}, nil
	}
	return s
}

// the_contract_also_expects_(field) rewrites the checked-in contract into a
// temporary directory with an extra response field the provider never sends.
func (s *ProviderStage) the_contract_also_expects_(field string) *ProviderStage {
	pact, err := contract.LoadFile(s.pactPath)
	s.require.NoError(err)

	for i := range pact.Interactions {
		interaction := &pact.Interactions[i]
		if interaction.Description != contracts.GetOrder {
			continue
		}
		body := map[string]interface{}{}
		s.require.NoError(json.Unmarshal(interaction.Response.Body, &body))
		body[field] = "ORD-1"
		interaction.Response.Body, err = json.Marshal(body)
		s.require.NoError(err)
	}

	store := contract.FileStore{Dir: s.t.TempDir()}
	s.require.NoError(store.Write(pact))
	s.pactPath = store.Path(pact.Consumer.Name, pact.Provider.Name)
	return s
}

func (s *ProviderStage) the_contract_is_verified() *ProviderStage {
	s.report, s.err = s.verifier.VerifyFile(context.Background(), s.pactPath)
	return s
}

func (s *ProviderStage) verification_is_successful() *ProviderStage {
	s.require.NoError(s.err)
	s.assert.NoError(s.report.Err())
	return s
}

func (s *ProviderStage) every_interaction_was_verified(n int) *ProviderStage {
	s.require.NotNil(s.report)
	s.assert.Len(s.report.Results, n)
	for _, result := range s.report.Results {
		s.assert.Truef(result.Passed, "interaction '%s' failed: %v", result.Description, result.Mismatches)
	}
	return s
}

func (s *ProviderStage) verification_fails_for_(description, path string) *ProviderStage {
	s.require.NoError(s.err)

	var verr *provider.VerificationError
	s.require.ErrorAs(s.report.Err(), &verr)
	s.require.Len(verr.Failures, 1)
	s.assert.Equal(description, verr.Failures[0].Description)

	var paths []string
	for _, m := range verr.Failures[0].Mismatches {
		paths = append(paths, m.Path)
	}
	s.assert.Contains(paths, path)
	return s
}

func (s *ProviderStage) no_provider_state_is_left_behind() *ProviderStage {
	_, err := s.repository.Get(1)
	s.assert.ErrorIs(err, ErrNotFound)
	return s
}
