package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

type Mismatch struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s", m.Path, m.Message)
}

// Rebase moves mismatch paths from the document root "$" to root, e.g. "$.body".
func Rebase(mismatches []Mismatch, root string) []Mismatch {
	for i := range mismatches {
		mismatches[i].Path = root + strings.TrimPrefix(mismatches[i].Path, "$")
	}
	return mismatches
}

// CompareBody checks an actual JSON body against the expected example and
// its matching rules. An empty expected body accepts anything.
func CompareBody(expected, actual []byte, rules map[string]RuleSet) []Mismatch {
	if len(bytes.TrimSpace(expected)) == 0 {
		return nil
	}
	if len(bytes.TrimSpace(actual)) == 0 {
		return []Mismatch{{Path: "$", Message: "expected a body but it was empty"}}
	}

	var exp, act interface{}
	if err := json.Unmarshal(expected, &exp); err != nil {
		return []Mismatch{{Path: "$", Message: fmt.Sprintf("expected body is not valid json. %s", err)}}
	}
	if err := json.Unmarshal(actual, &act); err != nil {
		return []Mismatch{{Path: "$", Message: fmt.Sprintf("body is not valid json. %s", err)}}
	}
	return Compare(exp, act, rules)
}

// Compare walks the expected document and resolves each path in actual.
// Keys absent from expected are ignored.
func Compare(expected, actual interface{}, rules map[string]RuleSet) []Mismatch {
	c := &comparator{rules: rules, actual: actual}
	c.compare("$", expected, false)
	return c.mismatches
}

type comparator struct {
	rules      map[string]RuleSet
	actual     interface{}
	mismatches []Mismatch
}

func (c *comparator) fail(path, format string, a ...interface{}) {
	c.mismatches = append(c.mismatches, Mismatch{Path: path, Message: fmt.Sprintf(format, a...)})
}

func (c *comparator) lookup(path string) (interface{}, bool) {
	if path == "$" {
		return c.actual, true
	}
	val, err := jsonpath.Get(path, c.actual)
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *comparator) compare(path string, expected interface{}, cascade bool) {
	actual, ok := c.lookup(path)
	if !ok {
		c.fail(path, "expected %s but it was missing", describe(expected))
		return
	}

	if set, ok := c.rules[path]; ok {
		for _, rule := range set.Matchers {
			switch rule.Match {
			case MatchRegex:
				c.compareRegex(path, rule, actual)
				return
			case MatchInteger:
				if n, ok := actual.(float64); !ok || n != math.Trunc(n) {
					c.fail(path, "expected an integer but got %s", describe(actual))
				}
				return
			case MatchType:
				cascade = true
			}
		}
	}

	switch exp := expected.(type) {
	case map[string]interface{}:
		if _, ok := actual.(map[string]interface{}); !ok {
			c.fail(path, "expected an object but got %s", describe(actual))
			return
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c.compare(childPath(path, k), exp[k], cascade)
		}
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok {
			c.fail(path, "expected an array but got %s", describe(actual))
			return
		}
		if cascade {
			// an empty example accepts any array
			if len(exp) == 0 {
				return
			}
			for i := range act {
				c.compare(indexPath(path, i), exp[0], true)
			}
			return
		}
		if len(act) != len(exp) {
			c.fail(path, "expected %d elements but got %d", len(exp), len(act))
			return
		}
		for i := range exp {
			c.compare(indexPath(path, i), exp[i], cascade)
		}
	default:
		if cascade {
			if kind(expected) != kind(actual) {
				c.fail(path, "expected a %s but got %s", kind(expected), describe(actual))
			}
			return
		}
		if !reflect.DeepEqual(expected, actual) {
			c.fail(path, "expected %s but got %s", describe(expected), describe(actual))
		}
	}
}

func (c *comparator) compareRegex(path string, rule Rule, actual interface{}) {
	s, ok := actual.(string)
	if !ok {
		c.fail(path, "expected a string matching '%s' but got %s", rule.Regex, describe(actual))
		return
	}
	re, err := rule.compile()
	if err != nil {
		c.fail(path, "%s", err)
		return
	}
	if !re.MatchString(s) {
		c.fail(path, "value '%s' does not match regex '%s'", s, rule.Regex)
	}
}

// CompareHeaders checks that every expected header is present. Content-Type
// is compared by media type so that parameters such as charset are ignored.
func CompareHeaders(expected map[string]string, actual http.Header) []Mismatch {
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	var mismatches []Mismatch
	for _, name := range names {
		path := childPath("$.headers", name)
		value := actual.Get(name)
		if value == "" {
			mismatches = append(mismatches, Mismatch{Path: path, Message: fmt.Sprintf("expected header '%s' but it was missing", name)})
			continue
		}

		want := expected[name]
		if strings.EqualFold(name, "Content-Type") {
			want, value = mediaType(want), mediaType(value)
		}
		if want != value {
			mismatches = append(mismatches, Mismatch{Path: path, Message: fmt.Sprintf("expected '%s' but got '%s'", want, value)})
		}
	}
	return mismatches
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mt
}

func kind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	const max = 64
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
