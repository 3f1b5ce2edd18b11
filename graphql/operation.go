// Package graphql renders GraphQL operation documents for the SDK's
// request layer. An Operation is a pure value: rendering the same
// Operation twice yields byte-identical output, which the transport
// relies on for request de-duplication and the tests rely on for
// snapshot-style assertions.
package graphql

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind identifies the GraphQL operation type.
type Kind string

// Supported operation kinds.
const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Variable is a single typed operation variable. Variables are declared
// in the operation signature and passed to the resolved field by
// reference, never as inline literals.
type Variable struct {
	// Name is the GraphQL variable name without the leading "$".
	Name string

	// Type is the GraphQL type expression (e.g. "String!", "[ID!]").
	Type string

	// Value is the runtime value sent in the request's variables map.
	Value any
}

// Operation describes a single GraphQL query or mutation against a
// collection namespace. It is immutable after construction; Document
// and VariableValues derive everything from its fields.
type Operation struct {
	Kind Kind

	// Collection is the root field grouping the entity's operations
	// (e.g. "users", "posts"). Empty means the operation field sits at
	// the top level of the document ("flat" shape).
	Collection string

	// Name is the operation field name as the backend exposes it. It
	// may contain spaces; they are stripped during rendering.
	Name string

	// Variables are declared in slice order.
	Variables []Variable

	// ReturnFields is the selection set requested from the operation.
	// An empty list omits the selection braces entirely.
	ReturnFields []string
}

// Query constructs a query operation.
func Query(collection, name string, vars []Variable, fields []string) Operation {
	return Operation{
		Kind:         KindQuery,
		Collection:   collection,
		Name:         name,
		Variables:    vars,
		ReturnFields: fields,
	}
}

// Mutation constructs a mutation operation.
func Mutation(collection, name string, vars []Variable, fields []string) Operation {
	return Operation{
		Kind:         KindMutation,
		Collection:   collection,
		Name:         name,
		Variables:    vars,
		ReturnFields: fields,
	}
}

// Validate checks structural invariants that the renderer assumes:
// a non-empty name and unique variable names.
func (op Operation) Validate() error {
	if strings.TrimSpace(op.Name) == "" {
		return fmt.Errorf("operation name cannot be empty")
	}
	if op.Kind != KindQuery && op.Kind != KindMutation {
		return fmt.Errorf("invalid operation kind: %q", op.Kind)
	}
	seen := make(map[string]struct{}, len(op.Variables))
	for _, v := range op.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable name cannot be empty")
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate variable name: %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// OperationName returns the document-level operation name, formed from
// the collection and the space-stripped field name in UpperCamelCase
// (e.g. collection "users" + name "sign in" -> "UsersSignIn").
func (op Operation) OperationName() string {
	return upperFirst(stripSpaces(op.Collection)) + upperFirst(stripSpaces(op.Name))
}

// FieldName returns the field name used inside the document body: the
// space-stripped operation name with a lower-cased first rune.
func (op Operation) FieldName() string {
	return lowerFirst(stripSpaces(op.Name))
}

// VariableValues returns the flat variables map sent alongside the
// document. Keys match the declared variable names exactly.
func (op Operation) VariableValues() map[string]any {
	values := make(map[string]any, len(op.Variables))
	for _, v := range op.Variables {
		values[v.Name] = v.Value
	}
	return values
}

// Document renders the operation into a GraphQL document string. The
// output is deterministic: variable declarations follow slice order and
// indentation is fixed.
func (op Operation) Document() string {
	var b strings.Builder

	b.WriteString(string(op.Kind))
	b.WriteByte(' ')
	b.WriteString(op.OperationName())
	if len(op.Variables) > 0 {
		b.WriteByte('(')
		for i, v := range op.Variables {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(v.Name)
			b.WriteString(": ")
			b.WriteString(v.Type)
		}
		b.WriteByte(')')
	}
	b.WriteString(" {\n")

	indent := "\t"
	if op.Collection != "" {
		b.WriteString(indent)
		b.WriteString(stripSpaces(op.Collection))
		b.WriteString(" {\n")
		indent += "\t"
	}

	b.WriteString(indent)
	b.WriteString(op.FieldName())
	if len(op.Variables) > 0 {
		b.WriteByte('(')
		for i, v := range op.Variables {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.Name)
			b.WriteString(": $")
			b.WriteString(v.Name)
		}
		b.WriteByte(')')
	}
	if len(op.ReturnFields) > 0 {
		b.WriteString(" {\n")
		for _, f := range op.ReturnFields {
			b.WriteString(indent)
			b.WriteString("\t")
			b.WriteString(f)
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString("}")
	}
	b.WriteByte('\n')

	if op.Collection != "" {
		b.WriteString("\t}\n")
	}
	b.WriteString("}")

	return b.String()
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
