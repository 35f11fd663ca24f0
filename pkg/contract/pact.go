package contract

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

type InteractionType string

const (
	SynchronousHTTP      InteractionType = "Synchronous/HTTP"
	AsynchronousMessages InteractionType = "Asynchronous/Messages"

	SpecificationVersion = "4.0"
)

// Pact is the contract artifact exchanged between a consumer and a provider.
type Pact struct {
	Consumer     Pacticipant   `json:"consumer"`
	Provider     Pacticipant   `json:"provider"`
	Interactions []Interaction `json:"interactions"`
	Metadata     Metadata      `json:"metadata"`
}

type Metadata struct {
	PactSpecification Specification `json:"pactSpecification"`
}

type Specification struct {
	Version string `json:"version"`
}

type ProviderState struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Interaction is one expected exchange. HTTP interactions carry Request and
// Response, message interactions carry Contents and MatchingRules.
type Interaction struct {
	Type           InteractionType   `json:"type"`
	Description    string            `json:"description"`
	ProviderStates []ProviderState   `json:"providerStates,omitempty"`
	Request        *Request          `json:"request,omitempty"`
	Response       *Response         `json:"response,omitempty"`
	Contents       json.RawMessage   `json:"contents,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	MatchingRules  MatchingRules     `json:"matchingRules,omitempty"`
}

type Request struct {
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	MatchingRules MatchingRules     `json:"matchingRules,omitempty"`
}

type Response struct {
	Status        int               `json:"status"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          json.RawMessage   `json:"body,omitempty"`
	MatchingRules MatchingRules     `json:"matchingRules,omitempty"`
}

func New(consumer, provider string) *Pact {
	return &Pact{
		Consumer: Pacticipant{Name: consumer},
		Provider: Pacticipant{Name: provider},
		Metadata: Metadata{PactSpecification: Specification{Version: SpecificationVersion}},
	}
}

// Parse decodes and validates an artifact.
func Parse(data []byte) (*Pact, error) {
	pact := &Pact{}
	if err := json.Unmarshal(data, pact); err != nil {
		return nil, errors.Wrap(err, "unable to parse contract")
	}
	if err := pact.Validate(); err != nil {
		return nil, err
	}
	return pact, nil
}

func (p *Pact) Validate() error {
	if err := ValidateName(p.Consumer.Name); err != nil {
		return errors.Wrap(err, "invalid consumer")
	}
	if err := ValidateName(p.Provider.Name); err != nil {
		return errors.Wrap(err, "invalid provider")
	}
	if len(p.Interactions) == 0 {
		return errors.Errorf("contract between '%s' and '%s' has no interactions", p.Consumer.Name, p.Provider.Name)
	}

	seen := make(map[string]bool, len(p.Interactions))
	for i := range p.Interactions {
		interaction := &p.Interactions[i]
		if err := interaction.Validate(); err != nil {
			return errors.Wrapf(err, "invalid interaction %d '%s'", i, interaction.Description)
		}
		if seen[interaction.Description] {
			return errors.Errorf("duplicate interaction '%s'", interaction.Description)
		}
		seen[interaction.Description] = true
	}
	return nil
}

func (i *Interaction) Validate() error {
	if strings.TrimSpace(i.Description) == "" {
		return errors.New("no description defined")
	}
	for _, state := range i.ProviderStates {
		if strings.TrimSpace(state.Name) == "" {
			return errors.New("provider state without a name")
		}
	}

	switch i.Type {
	case SynchronousHTTP:
		if i.Request == nil {
			return errors.New("no request defined")
		}
		if i.Response == nil {
			return errors.New("no response defined")
		}
		if i.Request.Method == "" {
			return errors.New("no request method defined")
		}
		if !strings.HasPrefix(i.Request.Path, "/") {
			return errors.Errorf("request path '%s' must start with '/'", i.Request.Path)
		}
		if http.StatusText(i.Response.Status) == "" {
			return errors.Errorf("invalid response status %d", i.Response.Status)
		}
		if err := validateBody(i.Request.Body, i.Request.MatchingRules); err != nil {
			return errors.Wrap(err, "request")
		}
		if err := validateBody(i.Response.Body, i.Response.MatchingRules); err != nil {
			return errors.Wrap(err, "response")
		}
	case AsynchronousMessages:
		if len(i.Contents) == 0 {
			return errors.New("no message contents defined")
		}
		if err := validateBody(i.Contents, i.MatchingRules); err != nil {
			return errors.Wrap(err, "message")
		}
	default:
		return errors.Errorf("unknown interaction type '%s'", i.Type)
	}
	return nil
}

func validateBody(body json.RawMessage, rules MatchingRules) error {
	if len(body) > 0 && !json.Valid(body) {
		return errors.New("body is not valid json")
	}
	if err := rules.validate(); err != nil {
		return err
	}
	if len(body) == 0 && len(rules.Body()) > 0 {
		return errors.New("body matching rules defined without a body")
	}
	if mismatches := CompareBody(body, body, rules.Body()); len(mismatches) > 0 {
		return errors.Errorf("example does not satisfy its own matching rules: %s", mismatches[0])
	}
	return nil
}
