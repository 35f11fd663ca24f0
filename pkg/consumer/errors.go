package consumer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
)

// MockServerError describes how the requests received by the mock server
// diverged from the registered interactions.
type MockServerError struct {
	Unexpected []string
	Missing    []string
	Mismatches map[string][]contract.Mismatch
}

func (e *MockServerError) Error() string {
	var lines []string
	for _, request := range e.Unexpected {
		lines = append(lines, fmt.Sprintf("unexpected request %s", request))
	}

	descriptions := make([]string, 0, len(e.Mismatches))
	for description := range e.Mismatches {
		descriptions = append(descriptions, description)
	}
	sort.Strings(descriptions)
	for _, description := range descriptions {
		for _, m := range e.Mismatches[description] {
			lines = append(lines, fmt.Sprintf("request for '%s' does not match. %s", description, m))
		}
	}

	for _, description := range e.Missing {
		lines = append(lines, fmt.Sprintf("interaction '%s' was not requested", description))
	}
	return "mock server verification failed:\n" + strings.Join(lines, "\n")
}
