package consumer

import (
	"sync"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Run collects the interactions verified by a whole test run and writes each
// artifact once, on Close. Interactions recorded by an earlier run that the
// current run no longer declares are dropped from the artifact.
//
// A Run is shared by every Config of a test binary, typically from TestMain.
type Run struct {
	mu    sync.Mutex
	pacts map[string]*runPact
	order []string
}

type runPact struct {
	store contract.FileStore
	pact  *contract.Pact
	index map[string]int
}

func NewRun() *Run {
	return &Run{pacts: map[string]*runPact{}}
}

func (r *Run) record(config Config, interactions []contract.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store := contract.FileStore{Dir: config.PactDir}
	path := store.Path(config.Consumer, config.Provider)
	entry, ok := r.pacts[path]
	if !ok {
		entry = &runPact{
			store: store,
			pact:  contract.New(config.Consumer, config.Provider),
			index: map[string]int{},
		}
		r.pacts[path] = entry
		r.order = append(r.order, path)
	}

	for _, interaction := range interactions {
		if i, ok := entry.index[interaction.Description]; ok {
			entry.pact.Interactions[i] = interaction
			continue
		}
		entry.index[interaction.Description] = len(entry.pact.Interactions)
		entry.pact.Interactions = append(entry.pact.Interactions, interaction)
	}
}

// Close replaces every artifact the run recorded interactions for. Artifacts
// are written independently; the first error is returned.
func (r *Run) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for _, path := range r.order {
		entry := r.pacts[path]
		if err := entry.store.Replace(entry.pact); err != nil {
			log.WithError(err).WithField("path", path).Error("unable to write contract")
			if first == nil {
				first = errors.Wrapf(err, "write %s", path)
			}
			continue
		}
		log.WithFields(log.Fields{
			"path":         path,
			"interactions": len(entry.pact.Interactions),
		}).Info("contract written")
	}
	return first
}
