// Package action generates the per-entity operation set every
// collection exposes: add, update, remove, item-by-id and list, each
// validating input, building the GraphQL operation, executing it over
// the authenticated transport and dispatching the result to the store.
// Entity modules become pure configuration; all request mechanics live
// here once.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/piwi3910/gqlflux/graphql"
	"github.com/piwi3910/gqlflux/store"
	"github.com/piwi3910/gqlflux/transport"
	"github.com/piwi3910/gqlflux/validate"
)

// Backend field names for the generated operations.
const (
	opAdd    = "addItem"
	opUpdate = "updateItem"
	opRemove = "removeItem"
	opItem   = "itemById"
	opList   = "listAll"
)

// Executor is the slice of the transport the action layer needs.
// *transport.Client satisfies it; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, op graphql.Operation, opts transport.ExecOptions) (*transport.Outcome, error)
}

// Config declares one entity's operation set.
type Config struct {
	// Collection is the GraphQL root field grouping the entity's
	// operations (e.g. "posts").
	Collection string

	// Singular is the payload key used in success dispatches
	// (e.g. "post").
	Singular string

	// InputType is the GraphQL input type for add/update payloads
	// (e.g. "PostInput!").
	InputType string

	// Validator is the entity's default validator, typically a
	// compiled schema. Required.
	Validator validate.Validator

	// Adapter is the optional host-supplied post-processing stage.
	Adapter validate.Validator

	// Options are the base validation options.
	Options validate.Options

	// ReturnFields is the selection set for add/update/item/list.
	ReturnFields []string

	// RemoveReturnFields are requested in addition to "id" on remove.
	RemoveReturnFields []string
}

// Result carries one operation's outcome. SessionInvalidated mirrors
// the transport's soft session-death signal; Value is empty when set.
type Result struct {
	Value              json.RawMessage
	SessionInvalidated bool
}

// EntitySet is the generated operation set for one collection. Safe
// for concurrent use; the validation pipeline is the only mutable
// piece and guards itself.
type EntitySet struct {
	collection string
	singular   string
	inputType  string
	fields     []string
	remove     []string

	pipeline *validate.Pipeline
	client   Executor
	store    store.Dispatcher
	logger   *zap.Logger
}

// New builds an EntitySet from its configuration.
func New(cfg Config, client Executor, st store.Dispatcher, logger *zap.Logger) (*EntitySet, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}
	if cfg.Singular == "" {
		return nil, fmt.Errorf("singular name cannot be empty")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("entity %q: validator is required", cfg.Collection)
	}
	if client == nil {
		return nil, fmt.Errorf("entity %q: transport cannot be nil", cfg.Collection)
	}
	if st == nil {
		return nil, fmt.Errorf("entity %q: store cannot be nil", cfg.Collection)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EntitySet{
		collection: cfg.Collection,
		singular:   cfg.Singular,
		inputType:  cfg.InputType,
		fields:     cfg.ReturnFields,
		remove:     append([]string{"id"}, cfg.RemoveReturnFields...),
		pipeline:   validate.NewPipeline(cfg.Validator, cfg.Adapter, cfg.Options),
		client:     client,
		store:      st,
		logger:     logger.Named("action." + cfg.Collection),
	}, nil
}

// UpdateAdapter hot-swaps the entity's custom adapter for subsequent
// calls.
func (e *EntitySet) UpdateAdapter(adapter validate.Validator) {
	e.pipeline.UpdateAdapter(adapter)
}

// UpdateAdapterOptions shallow-merges new base options for subsequent
// calls.
func (e *EntitySet) UpdateAdapterOptions(opts validate.Options) {
	e.pipeline.UpdateOptions(opts)
}

// Add validates the payload and creates the entity. Per-call options
// overlay the base options for this run only.
func (e *EntitySet) Add(ctx context.Context, input map[string]any, opts ...validate.Options) (*Result, error) {
	return e.run(ctx, opAdd, graphql.Mutation(e.collection, opAdd,
		e.inputVars(nil, input), e.fields), input, callOpts(opts))
}

// Update validates the payload and updates the entity by id.
func (e *EntitySet) Update(ctx context.Context, id string, input map[string]any, opts ...validate.Options) (*Result, error) {
	return e.run(ctx, opUpdate, graphql.Mutation(e.collection, opUpdate,
		e.inputVars(&id, input), e.fields), input, callOpts(opts))
}

// Remove deletes the entity by id. No validation runs and only the id
// plus the configured extra fields are requested back.
func (e *EntitySet) Remove(ctx context.Context, id string) (*Result, error) {
	return e.run(ctx, opRemove, graphql.Mutation(e.collection, opRemove,
		idVar(id), e.remove), nil, validate.Options{})
}

// ItemByID fetches a single entity.
func (e *EntitySet) ItemByID(ctx context.Context, id string) (*Result, error) {
	return e.run(ctx, opItem, graphql.Query(e.collection, opItem,
		idVar(id), e.fields), nil, validate.Options{})
}

// List fetches the full collection.
func (e *EntitySet) List(ctx context.Context) (*Result, error) {
	return e.run(ctx, opList, graphql.Query(e.collection, opList, nil, e.fields), nil, validate.Options{})
}

func callOpts(opts []validate.Options) validate.Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return validate.Options{}
}

// run is the shared path: validate when a payload exists, execute,
// then dispatch success or error. Errors are both dispatched and
// returned so hosts can observe either channel.
func (e *EntitySet) run(ctx context.Context, opName string, op graphql.Operation, input map[string]any, opts validate.Options) (*Result, error) {
	if input != nil {
		validated, err := e.pipeline.Validate(input, opts)
		if err != nil {
			observeValidationFailure(e.collection)
			return nil, e.fail(opName, err)
		}
		// The operation was built from the raw payload; swap in the
		// validated value so transforms applied by adapters reach the
		// wire.
		for i := range op.Variables {
			if op.Variables[i].Name == "input" {
				op.Variables[i].Value = validated
			}
		}
	}

	out, err := e.client.Execute(ctx, op, transport.ExecOptions{Authenticated: true})
	if err != nil {
		observeAction(e.collection, opName, "error")
		return nil, e.fail(opName, err)
	}
	if out.SessionInvalidated {
		observeAction(e.collection, opName, "session_invalidated")
		return &Result{SessionInvalidated: true}, nil
	}

	value, err := transport.Extract(out.Data, op.Collection, op.FieldName())
	if err != nil {
		observeAction(e.collection, opName, "error")
		return nil, e.fail(opName, err)
	}

	e.store.Dispatch(store.Action{
		Type:    SuccessType(e.collection, opName),
		Payload: map[string]any{e.singular: value},
	})
	observeAction(e.collection, opName, "success")
	return &Result{Value: value}, nil
}

// fail dispatches the error action and returns the error unchanged.
func (e *EntitySet) fail(opName string, err error) error {
	e.logger.Debug("operation failed",
		zap.String("operation", opName),
		zap.Error(err),
	)
	e.store.Dispatch(store.Action{
		Type:    ErrorType(e.collection, opName),
		Payload: map[string]any{"error": err.Error()},
	})
	return err
}

func (e *EntitySet) inputVars(id *string, input map[string]any) []graphql.Variable {
	inputType := e.inputType
	if inputType == "" {
		inputType = "JSON!"
	}
	var vars []graphql.Variable
	if id != nil {
		vars = append(vars, graphql.Variable{Name: "id", Type: "ID!", Value: *id})
	}
	return append(vars, graphql.Variable{Name: "input", Type: inputType, Value: input})
}

func idVar(id string) []graphql.Variable {
	return []graphql.Variable{{Name: "id", Type: "ID!", Value: id}}
}

// SuccessType returns the store action type for a successful
// operation, e.g. ("posts", "addItem") -> "POSTS_ADD_ITEM_SUCCESS".
func SuccessType(collection, opName string) string {
	return actionType(collection, opName, "SUCCESS")
}

// ErrorType returns the store action type for a failed operation,
// e.g. ("posts", "addItem") -> "POSTS_ADD_ITEM_ERROR".
func ErrorType(collection, opName string) string {
	return actionType(collection, opName, "ERROR")
}

func actionType(collection, opName, suffix string) string {
	return screamingSnake(collection) + "_" + screamingSnake(opName) + "_" + suffix
}

// screamingSnake converts camelCase to SCREAMING_SNAKE_CASE.
func screamingSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		if r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
