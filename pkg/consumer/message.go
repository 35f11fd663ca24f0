package consumer

import (
	"encoding/json"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/pkg/errors"
)

// MessageHandler receives the serialized message built from the recorded
// contents.
type MessageHandler func(contents []byte) error

// AsJSON adapts a handler of a typed message.
func AsJSON[T any](handler func(message T) error) MessageHandler {
	return func(contents []byte) error {
		var message T
		if err := json.Unmarshal(contents, &message); err != nil {
			return errors.Wrap(err, "unable to decode message")
		}
		return handler(message)
	}
}

// MessagePact records asynchronous message interactions. There is no
// transport: the synthetic message is passed straight to the handler.
type MessagePact struct {
	config Config
}

func NewMessagePact(config Config) *MessagePact {
	return &MessagePact{config: config}
}

type MessageBuilder struct {
	pact        *MessagePact
	interaction *pendingInteraction
}

func (p *MessagePact) ExpectsToReceive(description string) *MessageBuilder {
	return &MessageBuilder{
		pact: p,
		interaction: &pendingInteraction{
			interaction: contract.Interaction{
				Type:        contract.AsynchronousMessages,
				Description: description,
			},
		},
	}
}

func (b *MessageBuilder) Given(state string, params map[string]string) *MessageBuilder {
	b.interaction.interaction.ProviderStates = append(b.interaction.interaction.ProviderStates,
		contract.ProviderState{Name: state, Params: params})
	return b
}

func (b *MessageBuilder) WithMetadata(key, value string) *MessageBuilder {
	if b.interaction.interaction.Metadata == nil {
		b.interaction.interaction.Metadata = map[string]string{}
	}
	b.interaction.interaction.Metadata[key] = value
	return b
}

func (b *MessageBuilder) WithJSONContent(body interface{}) *MessageBuilder {
	example, rules, err := reifyJSON(body)
	if err != nil {
		b.interaction.fail(errors.Wrap(err, "message contents"))
		return b
	}
	b.interaction.interaction.Contents = example
	b.interaction.interaction.MatchingRules = rules
	return b.WithMetadata("contentType", mediaTypeJSON)
}

// Verify hands the example message to handler and records the interaction
// if the handler succeeds.
func (b *MessageBuilder) Verify(handler MessageHandler) error {
	if err := b.pact.config.validate(); err != nil {
		return err
	}
	interaction, err := b.interaction.build()
	if err != nil {
		return err
	}

	if err := handler(interaction.Contents); err != nil {
		return errors.Wrapf(err, "message handler failed for '%s'", interaction.Description)
	}

	return b.pact.config.write([]contract.Interaction{interaction})
}
