// engine.go
//
// A polymorphic, schema-validated entity store over SQL
// Copyright (c) 2026 LocalForge contributors (https://github.com/localforge)
//
// This file is part of entitydb.
// entitydb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// entitydb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with entitydb.
// If not, see <https://www.gnu.org/licenses/>.

package validation

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

// Violation rule identifiers, one per check the engine performs.
const (
	RuleMissingRequired = "missing_required_field"
	RuleType            = "type"
	RuleEnum            = "enum"
	RuleMin             = "min"
	RuleMax             = "max"
	RuleMinLength       = "min_length"
	RuleMaxLength       = "max_length"
	RulePattern         = "pattern"
	RuleFormat          = "format"
)

// Violation describes a single failed check on a single field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// identifierPattern matches the canonical 36-character hyphenated hex layout.
var identifierPattern = regexp.MustCompile("^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$")

// emailPattern is deliberately permissive: local@domain with at least one dot
// in the domain part.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// patternCache holds compiled, anchored user patterns. Schema definitions are
// small and long-lived, so compiled patterns are never evicted.
var patternCache sync.Map // string -> *regexp.Regexp

// Validate checks a property bag against a schema definition and returns every
// violation found. A nil return means the value is acceptable.
//
// The schema is a minimum-shape contract: fields present in value but absent
// from the definition pass through untouched. All declared fields are checked
// and all violations collected; the engine never stops at the first failure
// and never mutates its inputs.
func Validate(value map[string]interface{}, def Definition) []Violation {
	var violations []Violation

	for _, name := range sortedFieldNames(def) {
		rule := def[name]
		v, present := value[name]

		if !present {
			if rule.Required {
				violations = append(violations, Violation{
					Field:   name,
					Rule:    RuleMissingRequired,
					Message: fmt.Sprintf("field %q is required", name),
				})
			}
			// Defaults are applied by the caller before storage, never here.
			continue
		}

		violations = append(violations, checkValue(name, v, rule, true)...)
	}

	return violations
}

// checkValue runs every constraint of rule against a single present value.
// nested guards the one-level depth limit for object/array sub-rules.
func checkValue(field string, v interface{}, rule FieldRule, nested bool) []Violation {
	var violations []Violation

	if rule.Type != "" {
		if ok, msg := kindMatches(v, rule.Type); !ok {
			violations = append(violations, Violation{Field: field, Rule: RuleType, Message: msg})
			// A value of the wrong kind fails the remaining checks trivially;
			// reporting them too would be noise.
			return violations
		}
	}

	if len(rule.Enum) > 0 {
		if !enumContains(rule.Enum, v) {
			violations = append(violations, Violation{
				Field:   field,
				Rule:    RuleEnum,
				Message: fmt.Sprintf("value %q is not one of the allowed values", render(v)),
			})
		}
	}

	if n, isNum := asNumber(v); isNum {
		if rule.Min != nil && n < *rule.Min {
			violations = append(violations, Violation{
				Field:   field,
				Rule:    RuleMin,
				Message: fmt.Sprintf("value %s is below minimum %s", render(v), renderFloat(*rule.Min)),
			})
		}
		if rule.Max != nil && n > *rule.Max {
			violations = append(violations, Violation{
				Field:   field,
				Rule:    RuleMax,
				Message: fmt.Sprintf("value %s is above maximum %s", render(v), renderFloat(*rule.Max)),
			})
		}
	}

	if s, isStr := v.(string); isStr {
		violations = append(violations, checkString(field, s, rule)...)
	}

	if nested {
		if arr, ok := v.([]interface{}); ok && rule.Items != nil {
			for i, item := range arr {
				violations = append(violations, checkValue(fmt.Sprintf("%s[%d]", field, i), item, *rule.Items, false)...)
			}
		}
		if obj, ok := v.(map[string]interface{}); ok && len(rule.Fields) > 0 {
			for _, sub := range sortedFieldNames(rule.Fields) {
				subRule := rule.Fields[sub]
				path := field + "." + sub
				sv, present := obj[sub]
				if !present {
					if subRule.Required {
						violations = append(violations, Violation{
							Field:   path,
							Rule:    RuleMissingRequired,
							Message: fmt.Sprintf("field %q is required", path),
						})
					}
					continue
				}
				violations = append(violations, checkValue(path, sv, subRule, false)...)
			}
		}
	}

	return violations
}

func checkString(field, s string, rule FieldRule) []Violation {
	var violations []Violation

	length := utf8.RuneCountInString(s)
	if rule.MinLength != nil && length < *rule.MinLength {
		violations = append(violations, Violation{
			Field:   field,
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("length %d is below minimum length %d", length, *rule.MinLength),
		})
	}
	if rule.MaxLength != nil && length > *rule.MaxLength {
		violations = append(violations, Violation{
			Field:   field,
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("length %d exceeds maximum length %d", length, *rule.MaxLength),
		})
	}

	if rule.Pattern != "" {
		re, err := compilePattern(rule.Pattern)
		if err == nil && !re.MatchString(s) {
			violations = append(violations, Violation{
				Field:   field,
				Rule:    RulePattern,
				Message: fmt.Sprintf("value does not match pattern %q", rule.Pattern),
			})
		}
	}

	if rule.Format != "" {
		if ok := checkFormat(s, rule.Format); !ok {
			violations = append(violations, Violation{
				Field:   field,
				Rule:    RuleFormat,
				Message: fmt.Sprintf("value is not a valid %s", rule.Format),
			})
		}
	}

	return violations
}

func checkFormat(s, format string) bool {
	switch format {
	case FormatIdentifier:
		return identifierPattern.MatchString(s)
	case FormatEmail:
		return emailPattern.MatchString(s)
	case FormatTimestamp:
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	}
	return true
}

// kindMatches compares the runtime kind of v against a declared type.
// Integer is a refinement of number: a numeric value with a zero fractional
// part satisfies both.
func kindMatches(v interface{}, declared string) (bool, string) {
	switch declared {
	case TypeString:
		if _, ok := v.(string); ok {
			return true, ""
		}
	case TypeNumber:
		if _, ok := asNumber(v); ok {
			return true, ""
		}
	case TypeInteger:
		if n, ok := asNumber(v); ok {
			if n == math.Trunc(n) {
				return true, ""
			}
			return false, fmt.Sprintf("expected integer, got number %s", render(v))
		}
	case TypeBoolean:
		if _, ok := v.(bool); ok {
			return true, ""
		}
	case TypeArray:
		if _, ok := v.([]interface{}); ok {
			return true, ""
		}
	case TypeObject:
		if _, ok := v.(map[string]interface{}); ok {
			return true, ""
		}
	}
	return false, fmt.Sprintf("expected %s, got %s", declared, kindName(v))
}

// asNumber widens every numeric representation a decoded value tree can carry.
// JSON decoding produces float64; callers handing native maps may carry ints.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func kindName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	if _, ok := asNumber(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// enumContains compares by canonical string rendering so that a schema
// authored with ["1","2"] accepts the JSON number 1.
func enumContains(enum []interface{}, v interface{}) bool {
	rendered := render(v)
	for _, member := range enum {
		if render(member) == rendered {
			return true
		}
	}
	return false
}

func render(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}
	if n, ok := asNumber(v); ok {
		return renderFloat(n)
	}
	return fmt.Sprintf("%v", v)
}

func renderFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// compilePattern anchors a schema pattern so it must match the full value,
// then caches the compiled form.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// sortedFieldNames keeps violation order deterministic across runs.
func sortedFieldNames(def map[string]FieldRule) []string {
	names := make([]string, 0, len(def))
	for name := range def {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
