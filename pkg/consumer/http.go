package consumer

import (
	"net/http"
	"net/url"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	headerContentType = "Content-Type"
	mediaTypeJSON     = "application/json"
)

// HTTPPact records HTTP interactions. Interactions registered with
// UponReceiving are served by a mock server for the duration of one Verify
// call and are written to the artifact only if that call succeeds.
type HTTPPact struct {
	config  Config
	pending []*pendingInteraction
}

func NewHTTPPact(config Config) *HTTPPact {
	return &HTTPPact{config: config}
}

type RequestBuilder struct {
	interaction *pendingInteraction
}

type ResponseBuilder struct {
	interaction *pendingInteraction
}

func (p *HTTPPact) UponReceiving(description string) *RequestBuilder {
	pending := &pendingInteraction{
		interaction: contract.Interaction{
			Type:        contract.SynchronousHTTP,
			Description: description,
			Request:     &contract.Request{},
			Response:    &contract.Response{Status: http.StatusOK},
		},
	}
	p.pending = append(p.pending, pending)
	return &RequestBuilder{interaction: pending}
}

func (b *RequestBuilder) Given(state string, params map[string]string) *RequestBuilder {
	b.interaction.interaction.ProviderStates = append(b.interaction.interaction.ProviderStates,
		contract.ProviderState{Name: state, Params: params})
	return b
}

func (b *RequestBuilder) WithRequest(method, path string) *RequestBuilder {
	b.interaction.interaction.Request.Method = method
	b.interaction.interaction.Request.Path = path
	return b
}

func (b *RequestBuilder) WithHeader(name, value string) *RequestBuilder {
	request := b.interaction.interaction.Request
	if request.Headers == nil {
		request.Headers = map[string]string{}
	}
	request.Headers[name] = value
	return b
}

// WithJSONBody sets the expected request body. body may contain matchers.
func (b *RequestBuilder) WithJSONBody(body interface{}) *RequestBuilder {
	example, rules, err := reifyJSON(body)
	if err != nil {
		b.interaction.fail(errors.Wrap(err, "request body"))
		return b
	}
	b.interaction.interaction.Request.Body = example
	b.interaction.interaction.Request.MatchingRules = rules
	return b.WithHeader(headerContentType, mediaTypeJSON)
}

func (b *RequestBuilder) WillRespondWith(status int) *ResponseBuilder {
	b.interaction.interaction.Response.Status = status
	return &ResponseBuilder{interaction: b.interaction}
}

func (b *ResponseBuilder) WithHeader(name, value string) *ResponseBuilder {
	response := b.interaction.interaction.Response
	if response.Headers == nil {
		response.Headers = map[string]string{}
	}
	response.Headers[name] = value
	return b
}

// WithJSONBody sets the response body served by the mock server. Matchers
// are replaced by their examples.
func (b *ResponseBuilder) WithJSONBody(body interface{}) *ResponseBuilder {
	example, rules, err := reifyJSON(body)
	if err != nil {
		b.interaction.fail(errors.Wrap(err, "response body"))
		return b
	}
	b.interaction.interaction.Response.Body = example
	b.interaction.interaction.Response.MatchingRules = rules
	return b.WithHeader(headerContentType, mediaTypeJSON)
}

// Verify serves the registered interactions on a fresh mock server, runs
// test against it and writes the interactions to the artifact when the test
// passed and every interaction was exercised as recorded. The registered
// interactions are consumed whatever the outcome.
func (p *HTTPPact) Verify(test func(mockServerURL *url.URL) error) error {
	pending := p.pending
	p.pending = nil

	if err := p.config.validate(); err != nil {
		return err
	}
	if len(pending) == 0 {
		return errors.New("no interactions registered")
	}

	interactions := make([]contract.Interaction, 0, len(pending))
	for _, i := range pending {
		interaction, err := i.build()
		if err != nil {
			return err
		}
		interactions = append(interactions, interaction)
	}

	server, err := startMockServer(interactions)
	if err != nil {
		return errors.Wrap(err, "unable to start mock server")
	}
	defer server.close()

	testErr := test(server.url)
	mockErr := server.verify()

	if testErr != nil {
		if mockErr != nil {
			log.Warn(mockErr.Error())
		}
		return errors.Wrap(testErr, "consumer test failed")
	}
	if mockErr != nil {
		return mockErr
	}

	return p.config.write(interactions)
}
