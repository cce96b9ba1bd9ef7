// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package recovery

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the expected JSON type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	// KindInteger accepts JSON numbers with no fractional part. encoding/json
	// decodes every number as float64, so integrality is checked on the
	// decoded value, not the lexical token.
	KindInteger
	KindBool
	KindObject
	KindArray
)

// String names the kind for violation messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Field declares the contract for one field of a structured payload. Object
// fields nest through Fields; array fields describe their element contract
// through Elem.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Enum restricts a string field to the listed values. Empty means
	// unrestricted.
	Enum []string
	// Positive requires a number or integer field to be strictly > 0.
	Positive bool
	// Min and Max bound a numeric field inclusively when non-nil.
	Min *float64
	Max *float64
	// NonEmpty requires an array field to hold at least one element.
	NonEmpty bool
	// Fields declares the members of an object field.
	Fields []*Field
	// Elem declares the contract each element of an array field must meet.
	// Its Name is ignored; paths use the element index instead.
	Elem *Field
}

// Schema is the declarative contract a recovered payload must satisfy. The
// root describes a JSON object.
type Schema struct {
	Fields []*Field
}

// Validate walks the decoded generic value against the contract and returns
// every violation found. The walk never stops at the first defect: a repair
// prompt that lists all problems at once costs one regeneration instead of
// one per problem. An empty slice means the value conforms.
func (s *Schema) Validate(v any) []Violation {
	var out []Violation
	obj, ok := v.(map[string]any)
	if !ok {
		return append(out, Violation{Path: "$", Message: fmt.Sprintf("expected object, got %s", typeName(v))})
	}
	for _, f := range s.Fields {
		out = validateField(out, f, f.Name, obj)
	}
	return out
}

// validateField checks presence and, when present, the value contract of one
// field inside parent, appending any violations to out.
func validateField(out []Violation, f *Field, path string, parent map[string]any) []Violation {
	v, present := parent[f.Name]
	if !present {
		if f.Required {
			out = append(out, Violation{Path: path, Message: "required field is missing"})
		}
		return out
	}
	return validateValue(out, f, path, v)
}

func validateValue(out []Violation, f *Field, path string, v any) []Violation {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return append(out, Violation{Path: path, Message: fmt.Sprintf("expected string, got %s", typeName(v))})
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("value %q not in allowed set [%s]", s, strings.Join(f.Enum, ", "))})
		}
	case KindNumber, KindInteger:
		n, ok := v.(float64)
		if !ok {
			return append(out, Violation{Path: path, Message: fmt.Sprintf("expected %s, got %s", f.Kind, typeName(v))})
		}
		if f.Kind == KindInteger && n != math.Trunc(n) {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("expected integer, got %v", n)})
		}
		if f.Positive && n <= 0 {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("must be positive, got %v", n)})
		}
		if f.Min != nil && n < *f.Min {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("must be >= %v, got %v", *f.Min, n)})
		}
		if f.Max != nil && n > *f.Max {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("must be <= %v, got %v", *f.Max, n)})
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			out = append(out, Violation{Path: path, Message: fmt.Sprintf("expected bool, got %s", typeName(v))})
		}
	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return append(out, Violation{Path: path, Message: fmt.Sprintf("expected object, got %s", typeName(v))})
		}
		for _, child := range f.Fields {
			out = validateField(out, child, path+"."+child.Name, obj)
		}
	case KindArray:
		arr, ok := v.([]any)
		if !ok {
			return append(out, Violation{Path: path, Message: fmt.Sprintf("expected array, got %s", typeName(v))})
		}
		if f.NonEmpty && len(arr) == 0 {
			out = append(out, Violation{Path: path, Message: "array must not be empty"})
		}
		if f.Elem != nil {
			for i, el := range arr {
				out = validateValue(out, f.Elem, fmt.Sprintf("%s[%d]", path, i), el)
			}
		}
	}
	return out
}

// typeName reports the JSON-level type of a decoded value for messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
