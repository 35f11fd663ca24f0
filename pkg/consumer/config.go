package consumer

import (
	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/pkg/errors"
)

// Config names the two participants and the directory the artifact is
// written to.
type Config struct {
	Consumer string
	Provider string
	PactDir  string
	// Run, when set, collects verified interactions until Run.Close instead
	// of merging them into the artifact straight away.
	Run *Run
}

func (c Config) validate() error {
	if err := contract.ValidateName(c.Consumer); err != nil {
		return errors.Wrap(err, "invalid consumer")
	}
	if err := contract.ValidateName(c.Provider); err != nil {
		return errors.Wrap(err, "invalid provider")
	}
	if c.PactDir == "" {
		return errors.New("no pact directory configured")
	}
	return nil
}

func (c Config) write(interactions []contract.Interaction) error {
	if c.Run != nil {
		c.Run.record(c, interactions)
		return nil
	}
	pact := contract.New(c.Consumer, c.Provider)
	pact.Interactions = interactions
	return contract.FileStore{Dir: c.PactDir}.Write(pact)
}

type pendingInteraction struct {
	interaction contract.Interaction
	err         error
}

func (p *pendingInteraction) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *pendingInteraction) build() (contract.Interaction, error) {
	if p.err != nil {
		return contract.Interaction{}, errors.Wrapf(p.err, "invalid interaction '%s'", p.interaction.Description)
	}
	if err := p.interaction.Validate(); err != nil {
		return contract.Interaction{}, errors.Wrapf(err, "invalid interaction '%s'", p.interaction.Description)
	}
	return p.interaction, nil
}

func reifyJSON(body interface{}) ([]byte, contract.MatchingRules, error) {
	example, rules, err := contract.Reify(body)
	if err != nil {
		return nil, nil, err
	}
	if len(rules) == 0 {
		return example, nil, nil
	}
	return example, contract.MatchingRules{contract.CategoryBody: rules}, nil
}
