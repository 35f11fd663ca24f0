package contract

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// FileStore keeps artifacts as <Consumer>-<Provider>.json files in Dir.
type FileStore struct {
	Dir string
}

var fileLocks sync.Map

func lockFor(path string) *sync.Mutex {
	lock, _ := fileLocks.LoadOrStore(path, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s FileStore) Path(consumer, provider string) string {
	return filepath.Join(s.Dir, FileName(consumer, provider))
}

// Write merges the interactions of pact into the artifact on disk, replacing
// interactions with the same description. Fields of the existing document
// that this package does not model are kept. The file is replaced
// atomically so a reader never observes a partial artifact.
func (s FileStore) Write(pact *Pact) error {
	return s.commit(pact, true)
}

// Replace overwrites the artifact on disk with pact, dropping interactions
// the previous document recorded but pact does not.
func (s FileStore) Replace(pact *Pact) error {
	return s.commit(pact, false)
}

func (s FileStore) commit(pact *Pact, mergeExisting bool) error {
	if err := pact.Validate(); err != nil {
		return errors.Wrap(err, "refusing to write contract")
	}

	path := s.Path(pact.Consumer.Name, pact.Provider.Name)
	lock := lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrap(err, "unable to create contract directory")
	}

	doc, err := json.Marshal(pact)
	if err != nil {
		return errors.Wrap(err, "unable to encode contract")
	}

	if mergeExisting {
		existing, err := os.ReadFile(path)
		switch {
		case err == nil:
			doc, err = merge(existing, doc, pact)
			if err != nil {
				return err
			}
		case !os.IsNotExist(err):
			return errors.Wrapf(err, "unable to read contract '%s'", path)
		}
	}

	formatted := pretty.PrettyOptions(doc, &pretty.Options{Indent: "  "})
	if _, err := Parse(formatted); err != nil {
		return errors.Wrap(err, "merged contract is invalid")
	}

	log.WithFields(log.Fields{
		"path":         path,
		"interactions": len(pact.Interactions),
		"merge":        mergeExisting,
	}).Debug("writing contract")
	return writeAtomic(path, formatted)
}

func merge(existing, fresh []byte, pact *Pact) ([]byte, error) {
	current, err := Parse(existing)
	if err != nil {
		log.WithError(err).Warn("replacing unreadable contract")
		return fresh, nil
	}
	if current.Consumer.Name != pact.Consumer.Name || current.Provider.Name != pact.Provider.Name {
		log.Warnf("replacing contract between '%s' and '%s'", current.Consumer.Name, current.Provider.Name)
		return fresh, nil
	}

	doc := existing
	for _, interaction := range pact.Interactions {
		raw, err := json.Marshal(interaction)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to encode interaction '%s'", interaction.Description)
		}

		key := "interactions.-1"
		if i := interactionIndex(doc, interaction.Description); i >= 0 {
			key = "interactions." + strconv.Itoa(i)
		}
		doc, err = sjson.SetRawBytes(doc, key, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to merge interaction '%s'", interaction.Description)
		}
	}

	doc, err = sjson.SetBytes(doc, "metadata.pactSpecification.version", SpecificationVersion)
	if err != nil {
		return nil, errors.Wrap(err, "unable to set specification version")
	}
	return doc, nil
}

func interactionIndex(doc []byte, description string) int {
	index, i := -1, 0
	gjson.GetBytes(doc, "interactions").ForEach(func(_, value gjson.Result) bool {
		if value.Get("description").String() == description {
			index = i
			return false
		}
		i++
		return true
	})
	return index
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "unable to create temporary contract file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "unable to write contract")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "unable to write contract")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "unable to set contract permissions")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "unable to replace contract '%s'", path)
	}
	return nil
}

// Load reads the artifact for the pair and checks that the participants
// recorded inside the file are the ones asked for.
func (s FileStore) Load(consumer, provider string) (*Pact, error) {
	if err := ValidateName(consumer); err != nil {
		return nil, err
	}
	if err := ValidateName(provider); err != nil {
		return nil, err
	}

	pact, err := LoadFile(s.Path(consumer, provider))
	if err != nil {
		return nil, err
	}
	if pact.Consumer.Name != consumer || pact.Provider.Name != provider {
		return nil, errors.Errorf("contract is between '%s' and '%s', expected '%s' and '%s'",
			pact.Consumer.Name, pact.Provider.Name, consumer, provider)
	}
	return pact, nil
}

func (s FileStore) Remove(consumer, provider string) error {
	err := os.Remove(s.Path(consumer, provider))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "unable to remove contract")
	}
	return nil
}

func LoadFile(path string) (*Pact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read contract '%s'", path)
	}
	pact, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid contract '%s'", path)
	}
	return pact, nil
}
