package contract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

const (
	MatchType    = "type"
	MatchInteger = "integer"
	MatchRegex   = "regex"

	CategoryBody = "body"
)

type Rule struct {
	Match string `json:"match"`
	Regex string `json:"regex,omitempty"`
}

type RuleSet struct {
	Matchers []Rule `json:"matchers"`
}

// MatchingRules maps a category ("body") to JSON paths ("$.id") and the
// rules that replace strict equality at that path.
type MatchingRules map[string]map[string]RuleSet

func (m MatchingRules) Body() map[string]RuleSet {
	return m[CategoryBody]
}

func bodyRules(rules map[string]RuleSet) MatchingRules {
	if len(rules) == 0 {
		return nil
	}
	return MatchingRules{CategoryBody: rules}
}

func (m MatchingRules) validate() error {
	for category, paths := range m {
		if category != CategoryBody {
			return errors.Errorf("unsupported matching rule category '%s'", category)
		}
		for path, set := range paths {
			if len(set.Matchers) == 0 {
				return errors.Errorf("no matchers defined for path '%s'", path)
			}
			for _, rule := range set.Matchers {
				if err := rule.validate(); err != nil {
					return errors.Wrapf(err, "invalid rule for path '%s'", path)
				}
			}
		}
	}
	return nil
}

func (r Rule) validate() error {
	switch r.Match {
	case MatchType, MatchInteger:
		return nil
	case MatchRegex:
		_, err := r.compile()
		return err
	}
	return errors.Errorf("unknown matcher '%s'", r.Match)
}

// compile anchors the expression so that it must match the whole value.
func (r Rule) compile() (*regexp.Regexp, error) {
	if r.Regex == "" {
		return nil, errors.New("regex matcher without an expression")
	}
	re, err := regexp.Compile("^(?:" + r.Regex + ")$")
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse regex '%s'", r.Regex)
	}
	return re, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func childPath(parent, key string) string {
	if identifier.MatchString(key) {
		return parent + "." + key
	}
	return parent + "[" + strconv.Quote(key) + "]"
}

func indexPath(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
