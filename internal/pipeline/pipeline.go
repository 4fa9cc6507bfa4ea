// Package pipeline runs a GraphQL request end to end: parse, validate with the
// depth limit, coerce variables, then execute against the resolver graph with
// a fresh set of loaders.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vektah/gqlparser/v2/validator/rules"

	"github.com/hanpama/usergraph/internal/dataloader"
	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
	"github.com/hanpama/usergraph/internal/executor"
	"github.com/hanpama/usergraph/internal/graph"
	"github.com/hanpama/usergraph/internal/introspection"
	"github.com/hanpama/usergraph/internal/language"
	"github.com/hanpama/usergraph/internal/schema"
	"github.com/hanpama/usergraph/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error codes for requests that never reach execution.
const (
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
)

// Kind classifies how far a request got.
type Kind string

const (
	KindOK         Kind = "ok"
	KindSyntax     Kind = "syntax"
	KindValidation Kind = "validation"
	KindExecution  Kind = "execution"
)

// Params is one GraphQL request.
type Params struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Result is the response of one request. Requests rejected before execution
// carry errors only.
type Result struct {
	Data   any
	Errors []executor.GraphQLError

	kind          Kind
	operationType string
	depths        int
}

func (r *Result) Kind() Kind { return r.kind }

// OperationType is "query" or "mutation", empty when the operation was not
// resolved.
func (r *Result) OperationType() string { return r.operationType }

// Depths is the number of batched execution rounds.
func (r *Result) Depths() int { return r.depths }

func (r Result) MarshalJSON() ([]byte, error) {
	if r.kind == KindSyntax || r.kind == KindValidation {
		return json.Marshal(struct {
			Errors []executor.GraphQLError `json:"errors"`
		}{r.Errors})
	}
	return json.Marshal(struct {
		Data   any                     `json:"data"`
		Errors []executor.GraphQLError `json:"errors,omitempty"`
	}{r.Data, r.Errors})
}

type config struct {
	maxDepth     int
	maxBatchSize int
	logger       *slog.Logger
}

type Option func(*config)

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

func WithMaxBatchSize(n int) Option { return func(c *config) { c.maxBatchSize = n } }

func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

type Pipeline struct {
	source *ast.Schema
	schema *schema.Schema
	store  store.Store
	rules  *rules.Rules
	cfg    config
}

func New(s store.Store, opts ...Option) (*Pipeline, error) {
	cfg := config{maxDepth: DefaultMaxDepth, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	src, sch, err := graph.Schema()
	if err != nil {
		return nil, err
	}
	sch = introspection.Extend(src, sch)
	rs := rules.NewDefaultRules()
	depth := maxDepthRule(cfg.maxDepth)
	rs.AddRule(depth.Name, depth.RuleFunc)
	return &Pipeline{source: src, schema: sch, store: s, rules: rs, cfg: cfg}, nil
}

// MaxDepth returns the configured nesting limit.
func (p *Pipeline) MaxDepth() int { return p.cfg.maxDepth }

// Execute runs one request. It never returns nil.
func (p *Pipeline) Execute(ctx context.Context, params Params) *Result {
	start := time.Now()
	res := p.execute(ctx, params)
	p.cfg.logger.DebugContext(ctx, "graphql request",
		"operation", params.OperationName,
		"type", res.operationType,
		"kind", res.kind,
		"errors", len(res.Errors),
		"depths", res.depths,
		"duration", time.Since(start),
	)
	eventbus.Publish(ctx, events.GraphQLFinish{
		OperationName: params.OperationName,
		OperationType: res.operationType,
		Outcome:       string(res.kind),
		Errors:        len(res.Errors),
		Duration:      time.Since(start),
	})
	return res
}

func (p *Pipeline) execute(ctx context.Context, params Params) *Result {
	doc, err := language.ParseQuery(params.Query)
	if err != nil {
		return rejected(KindSyntax, CodeParseFailed, asList(err))
	}
	if errs := validator.ValidateWithRules(p.source, doc, p.rules); len(errs) > 0 {
		return rejected(KindValidation, CodeValidationFailed, errs)
	}

	op := doc.Operations.ForName(params.OperationName)
	if op == nil {
		msg := "operation name is required when the document has more than one operation"
		if params.OperationName != "" {
			msg = "unknown operation " + params.OperationName
		}
		return rejected(KindValidation, CodeValidationFailed, gqlerror.List{gqlerror.Errorf("%s", msg)})
	}
	vars, err := validator.VariableValues(p.source, op, params.Variables)
	if err != nil {
		return rejected(KindValidation, CodeValidationFailed, asList(err))
	}

	eventbus.Publish(ctx, events.GraphQLStart{OperationName: op.Name, OperationType: string(op.Operation)})

	req := graph.NewRequest(p.store,
		graph.WithLogger(p.cfg.logger),
		graph.WithMaxBatchSize(p.cfg.maxBatchSize),
		graph.WithBatchObserver(publishBatch),
	)
	out := executor.NewExecutor(introspection.Wrap(graph.NewRuntime(req), p.source), p.schema).ExecuteRequest(ctx, executor.Request{
		Document:       doc,
		OperationName:  params.OperationName,
		VariableValues: vars,
	})

	res := &Result{
		Data:          out.Data,
		Errors:        out.Errors,
		kind:          KindOK,
		operationType: string(op.Operation),
		depths:        out.Depths,
	}
	if len(out.Errors) > 0 {
		res.kind = KindExecution
	}
	return res
}

func publishBatch(ctx context.Context, info dataloader.BatchInfo) {
	eventbus.Publish(ctx, events.LoaderBatch{
		Loader:   info.Loader,
		Keys:     info.Keys,
		Duration: info.Duration,
		Err:      info.Err,
	})
}

func rejected(kind Kind, code string, errs gqlerror.List) *Result {
	out := make([]executor.GraphQLError, len(errs))
	for i, e := range errs {
		ge := executor.GraphQLError{
			Message:    e.Message,
			Extensions: map[string]any{"code": code},
		}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		for k, v := range e.Extensions {
			ge.Extensions[k] = v
		}
		out[i] = ge
	}
	return &Result{Errors: out, kind: kind}
}

func asList(err error) gqlerror.List {
	var list gqlerror.List
	if errors.As(err, &list) {
		return list
	}
	return gqlerror.List{language.AsError(err)}
}
