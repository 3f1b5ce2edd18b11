package validate

import (
	"fmt"
	"math"
)

// FieldType is the declared type of a schema field.
type FieldType string

// Supported field types.
const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeID     FieldType = "id"
	TypeList   FieldType = "list"
	TypeObject FieldType = "object"
)

// Field declares a single schema field and its constraints.
type Field struct {
	Name     string
	Type     FieldType
	Required bool

	// MinLen and MaxLen bound string length. MaxLen 0 means unbounded.
	MinLen int
	MaxLen int

	// Enum restricts string values to the listed set when non-empty.
	Enum []string
}

// Schema is a declarative entity description evaluated by Validator().
// It replaces per-entity hand-written validation: every entity module
// declares one of these and gets a consistent default validator.
type Schema struct {
	// Name identifies the entity in error messages (e.g. "post").
	Name string

	Fields []Field
}

// Validator compiles the schema into the pipeline's default validator.
// Strict mode rejects undeclared fields; AllowPartial skips required
// checks. The returned validator copies the input before normalizing,
// so callers keep their original payload untouched.
func (s Schema) Validator() Validator {
	declared := make(map[string]Field, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = f
	}

	return func(input map[string]any, opts Options) (map[string]any, error) {
		if input == nil {
			return nil, Errorf("", "%s payload is nil", s.Name)
		}

		out := make(map[string]any, len(input))
		for k, v := range input {
			if _, ok := declared[k]; !ok && opts.IsStrict() {
				return nil, Errorf(k, "field not declared in %s schema", s.Name)
			}
			out[k] = v
		}

		for _, f := range s.Fields {
			v, present := out[f.Name]
			if !present || v == nil {
				if f.Required && !opts.IsPartial() {
					return nil, Errorf(f.Name, "required field missing")
				}
				continue
			}
			normalized, err := checkField(f, v)
			if err != nil {
				return nil, err
			}
			out[f.Name] = normalized
		}

		return out, nil
	}
}

// checkField validates a single value against its declaration and
// returns the normalized value (JSON numbers become int for int
// fields).
func checkField(f Field, v any) (any, error) {
	switch f.Type {
	case TypeString, TypeID:
		str, ok := v.(string)
		if !ok {
			return nil, Errorf(f.Name, "expected string, got %T", v)
		}
		if f.MinLen > 0 && len(str) < f.MinLen {
			return nil, Errorf(f.Name, "shorter than minimum length %d", f.MinLen)
		}
		if f.MaxLen > 0 && len(str) > f.MaxLen {
			return nil, Errorf(f.Name, "longer than maximum length %d", f.MaxLen)
		}
		if len(f.Enum) > 0 {
			found := false
			for _, e := range f.Enum {
				if str == e {
					found = true
					break
				}
			}
			if !found {
				return nil, Errorf(f.Name, "value %q not in %v", str, f.Enum)
			}
		}
		return str, nil

	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			// JSON decoding yields float64; accept integral values.
			if n != math.Trunc(n) {
				return nil, Errorf(f.Name, "expected integer, got %v", n)
			}
			return int(n), nil
		default:
			return nil, Errorf(f.Name, "expected integer, got %T", v)
		}

	case TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		default:
			return nil, Errorf(f.Name, "expected number, got %T", v)
		}

	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, Errorf(f.Name, "expected boolean, got %T", v)
		}
		return b, nil

	case TypeList:
		if _, ok := v.([]any); !ok {
			return nil, Errorf(f.Name, "expected list, got %T", v)
		}
		return v, nil

	case TypeObject:
		if _, ok := v.(map[string]any); !ok {
			return nil, Errorf(f.Name, "expected object, got %T", v)
		}
		return v, nil

	default:
		return nil, fmt.Errorf("unknown field type %q for %q", f.Type, f.Name)
	}
}
