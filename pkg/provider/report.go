package provider

import (
	"fmt"
	"strings"

	"github.com/form3tech-oss/pact-orders/pkg/contract"
)

// Result is the outcome of replaying one interaction.
type Result struct {
	Description string                   `json:"description"`
	Type        contract.InteractionType `json:"type"`
	Passed      bool                     `json:"passed"`
	Mismatches  []contract.Mismatch      `json:"mismatches,omitempty"`
	// Err is set when the interaction could not be replayed at all, e.g. the
	// provider or its states endpoint dropped the connection.
	Err          error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// Report aggregates the results of every interaction of one contract.
type Report struct {
	Provider     string   `json:"provider"`
	Consumer     string   `json:"consumer"`
	Results      []Result `json:"results"`
	FailureCount int      `json:"failureCount"`
}

func (r *Report) add(result Result) {
	if result.Err != nil {
		result.ErrorMessage = result.Err.Error()
	}
	result.Passed = len(result.Mismatches) == 0 && result.Err == nil
	if !result.Passed {
		r.FailureCount++
	}
	r.Results = append(r.Results, result)
}

func (r *Report) Passed() bool {
	return r.FailureCount == 0
}

// Err returns a *ConnectivityError when any interaction could not be
// replayed, otherwise a *VerificationError when any interaction failed.
func (r *Report) Err() error {
	if r.Passed() {
		return nil
	}

	cerr := &ConnectivityError{Provider: r.Provider, Consumer: r.Consumer}
	verr := &VerificationError{Provider: r.Provider, Consumer: r.Consumer}
	for _, result := range r.Results {
		switch {
		case result.Err != nil:
			cerr.Failures = append(cerr.Failures, result)
		case !result.Passed:
			verr.Failures = append(verr.Failures, result)
		}
	}
	if len(cerr.Failures) > 0 {
		cerr.Mismatched = len(verr.Failures)
		return cerr
	}
	return verr
}

// VerificationError means the provider was reachable but did not honour
// the contract.
type VerificationError struct {
	Provider string
	Consumer string
	Failures []Result
}

func (e *VerificationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "provider '%s' does not satisfy %d interaction(s) of the contract with '%s'", e.Provider, len(e.Failures), e.Consumer)
	for _, failure := range e.Failures {
		fmt.Fprintf(&sb, "\n'%s':", failure.Description)
		for _, m := range failure.Mismatches {
			fmt.Fprintf(&sb, "\n  %s", m)
		}
	}
	return sb.String()
}

// ConnectivityError means the provider or its states endpoint could not be
// talked to while replaying some interactions, so the contract was not
// fully verified. It is not a contract failure.
type ConnectivityError struct {
	Provider string
	Consumer string
	Failures []Result
	// Mismatched counts the interactions that were replayed and failed.
	Mismatched int
}

func (e *ConnectivityError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unable to verify %d interaction(s) of the contract between '%s' and '%s'", len(e.Failures), e.Consumer, e.Provider)
	for _, failure := range e.Failures {
		fmt.Fprintf(&sb, "\n'%s': %s", failure.Description, failure.Err)
	}
	if e.Mismatched > 0 {
		fmt.Fprintf(&sb, "\n%d other interaction(s) did not satisfy the contract", e.Mismatched)
	}
	return sb.String()
}

func (e *ConnectivityError) Unwrap() error {
	return e.Failures[0].Err
}

// SetupError means verification could not run at all, e.g. the provider
// never became reachable or the contract could not be loaded.
type SetupError struct {
	err error
}

func (e *SetupError) Error() string {
	return "verification setup failed: " + e.err.Error()
}

func (e *SetupError) Unwrap() error {
	return e.err
}

func (e *SetupError) Cause() error {
	return e.err
}
