package contract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var errNestedMatcher = errors.New("matchers can only be nested in map[string]interface{} or []interface{} values")

// Matcher is a constraint narrower than strict equality. The example is what
// the mock server returns and what the provider replays; the rule is what
// real values are checked against.
type Matcher interface {
	Example() interface{}
	Rule() Rule
	check() error
}

type typeMatcher struct {
	example interface{}
}

// Like matches any value of the same JSON type as the example. Objects and
// arrays cascade the type match to their children.
func Like(example interface{}) Matcher {
	return typeMatcher{example: example}
}

func (m typeMatcher) Example() interface{} { return m.example }
func (m typeMatcher) Rule() Rule           { return Rule{Match: MatchType} }
func (m typeMatcher) check() error         { return nil }

func (m typeMatcher) MarshalJSON() ([]byte, error) { return nil, errNestedMatcher }

type integerMatcher struct {
	example int64
}

func Integer(example int64) Matcher {
	return integerMatcher{example: example}
}

func (m integerMatcher) Example() interface{} { return m.example }
func (m integerMatcher) Rule() Rule           { return Rule{Match: MatchInteger} }
func (m integerMatcher) check() error         { return nil }

func (m integerMatcher) MarshalJSON() ([]byte, error) { return nil, errNestedMatcher }

type regexMatcher struct {
	example string
	pattern string
}

// Regex matches strings fully matching pattern.
func Regex(example, pattern string) Matcher {
	return regexMatcher{example: example, pattern: pattern}
}

// OneOf matches exactly one of the enumerated values.
func OneOf(example string, values ...string) Matcher {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, regexp.QuoteMeta(v))
	}
	return Regex(example, strings.Join(quoted, "|"))
}

func (m regexMatcher) Example() interface{} { return m.example }
func (m regexMatcher) Rule() Rule           { return Rule{Match: MatchRegex, Regex: m.pattern} }

func (m regexMatcher) check() error {
	re, err := m.Rule().compile()
	if err != nil {
		return err
	}
	if !re.MatchString(m.example) {
		return errors.Errorf("example '%s' does not match regex '%s'", m.example, m.pattern)
	}
	return nil
}

func (m regexMatcher) MarshalJSON() ([]byte, error) { return nil, errNestedMatcher }

// Reify resolves a body made of plain values and matchers into its example
// document and the matching rules keyed by JSON path.
func Reify(body interface{}) (json.RawMessage, map[string]RuleSet, error) {
	rules := map[string]RuleSet{}
	example, err := reify("$", body, rules)
	if err != nil {
		return nil, nil, err
	}

	data, err := json.Marshal(example)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to encode example body")
	}
	if len(rules) == 0 {
		rules = nil
	}
	return data, rules, nil
}

func reify(path string, value interface{}, rules map[string]RuleSet) (interface{}, error) {
	switch v := value.(type) {
	case Matcher:
		if err := v.check(); err != nil {
			return nil, errors.Wrapf(err, "invalid matcher at '%s'", path)
		}
		rules[path] = RuleSet{Matchers: []Rule{v.Rule()}}
		return reify(path, v.Example(), rules)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, child := range v {
			resolved, err := reify(childPath(path, key), child, rules)
			if err != nil {
				return nil, err
			}
			result[key] = resolved
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, child := range v {
			resolved, err := reify(indexPath(path, i), child, rules)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	case nil, string, bool, int, int64, float64:
		return v, nil
	}

	// structs and typed collections are normalized through their JSON form
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to encode value at '%s'", path)
	}
	var normalized interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, errors.Wrapf(err, "unable to decode value at '%s'", path)
	}
	return normalized, nil
}
