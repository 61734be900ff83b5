// rules.go
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
	"bytes"
	"encoding/json"
	"fmt"
)

// Field types accepted in a schema definition.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Semantic formats accepted on string fields.
const (
	FormatIdentifier = "identifier"
	FormatEmail      = "email"
	FormatTimestamp  = "timestamp"
)

// FieldRule holds the validation constraints for a single field.
// Nil pointer members mean "no constraint".
type FieldRule struct {
	Type      string               `json:"type,omitempty"`
	Required  bool                 `json:"required,omitempty"`
	Enum      []interface{}        `json:"enum,omitempty"`
	Min       *float64             `json:"min,omitempty"`
	Max       *float64             `json:"max,omitempty"`
	MinLength *int                 `json:"minLength,omitempty"`
	MaxLength *int                 `json:"maxLength,omitempty"`
	Pattern   string               `json:"pattern,omitempty"`
	Format    string               `json:"format,omitempty"`
	Default   interface{}          `json:"default,omitempty"`
	Items     *FieldRule           `json:"items,omitempty"`
	Fields    map[string]FieldRule `json:"fields,omitempty"`
}

// Definition is a schema document body: field name to rule.
type Definition map[string]FieldRule

// DecodeDefinition parses a stored schema definition. Unknown rule keys are
// rejected so a typo in an authored schema fails at registration, not at the
// first entity write.
func DecodeDefinition(raw []byte) (Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("invalid schema definition: %w", err)
	}
	if len(def) == 0 {
		return nil, fmt.Errorf("invalid schema definition: no fields declared")
	}

	for name, rule := range def {
		if err := checkRule(name, rule); err != nil {
			return nil, err
		}
	}

	return def, nil
}

// EncodeDefinition serializes a definition for storage.
func EncodeDefinition(def Definition) ([]byte, error) {
	return json.Marshal(def)
}

// ApplyDefaults returns a copy of value with every absent field that declares
// a default filled in. Defaults are applied by the store before validation
// and storage; the validator itself never injects values.
func ApplyDefaults(value map[string]interface{}, def Definition) map[string]interface{} {
	out := make(map[string]interface{}, len(value)+len(def))
	for k, v := range value {
		out[k] = v
	}
	for name, rule := range def {
		if rule.Default == nil {
			continue
		}
		if _, present := out[name]; !present {
			out[name] = rule.Default
		}
	}
	return out
}

func checkRule(name string, rule FieldRule) error {
	switch rule.Type {
	case "", TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
	default:
		return fmt.Errorf("invalid schema definition: field %q has unknown type %q", name, rule.Type)
	}
	switch rule.Format {
	case "", FormatIdentifier, FormatEmail, FormatTimestamp:
	default:
		return fmt.Errorf("invalid schema definition: field %q has unknown format %q", name, rule.Format)
	}
	if rule.Min != nil && rule.Max != nil && *rule.Min > *rule.Max {
		return fmt.Errorf("invalid schema definition: field %q has min > max", name)
	}
	if rule.MinLength != nil && *rule.MinLength < 0 {
		return fmt.Errorf("invalid schema definition: field %q has negative minLength", name)
	}
	if rule.Pattern != "" {
		if _, err := compilePattern(rule.Pattern); err != nil {
			return fmt.Errorf("invalid schema definition: field %q pattern: %w", name, err)
		}
	}
	if rule.Items != nil {
		if err := checkRule(name+"[]", *rule.Items); err != nil {
			return err
		}
	}
	for sub, subRule := range rule.Fields {
		if err := checkRule(name+"."+sub, subRule); err != nil {
			return err
		}
	}
	return nil
}
