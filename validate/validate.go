// Package validate implements the validation pipeline shared by every
// entity action set. A Pipeline composes a mandatory default validator,
// an optional host-supplied adapter, and an optional per-call custom
// validation hook, in that fixed order. Adapter and options can be
// replaced at runtime without rebuilding the callers that hold the
// pipeline.
package validate

import (
	"fmt"
	"sync"
)

// Environment names accepted in Options.Environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Validator validates and optionally transforms an entity payload.
// It returns the (possibly rewritten) payload or an error. Validators
// must not mutate the input map; they copy on write.
type Validator func(input map[string]any, opts Options) (map[string]any, error)

// Adapter is a host-supplied validator that runs after the default
// schema validation. It receives the default validator's output.
type Adapter = Validator

// Options tune a validation run. Boolean knobs use pointers so a merge
// can distinguish "unset" from "explicitly false"; call-site options
// win over base options on every set key.
type Options struct {
	// Strict rejects fields the schema does not declare.
	Strict *bool

	// AllowPartial skips required-field checks (update payloads).
	AllowPartial *bool

	// Environment is informational and forwarded to every stage.
	Environment string

	// CustomValidation, when set, runs as the final pipeline stage.
	CustomValidation Validator
}

// IsStrict reports the effective Strict setting.
func (o Options) IsStrict() bool {
	return o.Strict != nil && *o.Strict
}

// IsPartial reports the effective AllowPartial setting.
func (o Options) IsPartial() bool {
	return o.AllowPartial != nil && *o.AllowPartial
}

// merge overlays over onto o. Set keys in over win.
func (o Options) merge(over Options) Options {
	out := o
	if over.Strict != nil {
		out.Strict = over.Strict
	}
	if over.AllowPartial != nil {
		out.AllowPartial = over.AllowPartial
	}
	if over.Environment != "" {
		out.Environment = over.Environment
	}
	if over.CustomValidation != nil {
		out.CustomValidation = over.CustomValidation
	}
	return out
}

// Bool is a convenience for building Options literals.
func Bool(v bool) *bool { return &v }

// Error is a validation failure carrying the offending field path.
// It is never retried and never reaches the network.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// Errorf builds an *Error for the given field.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Pipeline is the composed validator. The adapter reference and base
// options form an explicit mutable cell guarded by a mutex: writers
// (UpdateAdapter, UpdateOptions) take effect for subsequent Validate
// calls only, and a Validate call snapshots both at entry so swaps
// never affect a run already in flight.
type Pipeline struct {
	mu      sync.RWMutex
	def     Validator
	adapter Adapter
	base    Options
}

// NewPipeline builds a pipeline around the mandatory default
// validator. adapter may be nil.
func NewPipeline(def Validator, adapter Adapter, base Options) *Pipeline {
	if def == nil {
		def = Identity
	}
	return &Pipeline{def: def, adapter: adapter, base: base}
}

// Identity is a default validator that accepts any payload unchanged.
func Identity(input map[string]any, _ Options) (map[string]any, error) {
	return input, nil
}

// UpdateAdapter replaces the adapter used by subsequent Validate calls.
// Passing nil removes the adapter stage.
func (p *Pipeline) UpdateAdapter(a Adapter) {
	p.mu.Lock()
	p.adapter = a
	p.mu.Unlock()
}

// UpdateOptions shallow-merges partial into the base options used by
// subsequent Validate calls. Last writer wins.
func (p *Pipeline) UpdateOptions(partial Options) {
	p.mu.Lock()
	p.base = p.base.merge(partial)
	p.mu.Unlock()
}

// Validate runs the pipeline: default validator, then the adapter if
// one is registered, then the merged options' CustomValidation if set.
// Each stage receives the previous stage's output.
func (p *Pipeline) Validate(input map[string]any, callOpts Options) (map[string]any, error) {
	p.mu.RLock()
	def := p.def
	adapter := p.adapter
	opts := p.base.merge(callOpts)
	p.mu.RUnlock()

	out, err := def(input, opts)
	if err != nil {
		return nil, err
	}
	if adapter != nil {
		out, err = adapter(out, opts)
		if err != nil {
			return nil, err
		}
	}
	if opts.CustomValidation != nil {
		out, err = opts.CustomValidation(out, opts)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
