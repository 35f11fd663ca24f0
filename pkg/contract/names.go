package contract

import (
	"regexp"

	"github.com/pkg/errors"
)

// Participant names are words of letters and digits separated by single
// spaces, e.g. "Fulfilment API". Underscore and hyphen separated names are
// rejected so that both sides of a contract resolve to the same file.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9]+( [A-Za-z0-9]+)*$`)

type Pacticipant struct {
	Name string `json:"name"`
}

func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return errors.Errorf("invalid participant name %q, expected space separated words of letters and digits", name)
	}
	return nil
}

// FileName returns the artifact file name for a consumer/provider pair.
func FileName(consumer, provider string) string {
	return consumer + "-" + provider + ".json"
}
