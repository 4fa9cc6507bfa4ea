package graph

import (
	"context"
	"fmt"

	"github.com/hanpama/usergraph/internal/executor"
)

// Runtime binds the resolver graph to one Request.
type Runtime struct {
	req *Request
}

var _ executor.Runtime = (*Runtime)(nil)

func NewRuntime(req *Request) *Runtime {
	return &Runtime{req: req}
}

func (rt *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	fr, ok := lookupResolver(objectType, field)
	if !ok {
		return nil, fmt.Errorf("no resolver for %s.%s", objectType, field)
	}
	v, err := fr.resolve(ctx, rt.req, params{Source: source, Args: args})
	if err != nil {
		return nil, fieldError(err)
	}
	if th, ok := v.(Thunk); ok {
		v, err = th()
		return v, fieldError(err)
	}
	return v, nil
}

// BatchResolveAsync runs every async resolver of a depth, which only schedules
// loader keys, then dispatches the loaders once and forces the results.
func (rt *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	thunks := make([]Thunk, len(tasks))
	for i, task := range tasks {
		fr, ok := lookupResolver(task.ObjectType, task.Field)
		if !ok {
			results[i].Error = fmt.Errorf("no resolver for %s.%s", task.ObjectType, task.Field)
			continue
		}
		v, err := fr.resolve(ctx, rt.req, params{Source: task.Source, Args: task.Args, SelectionSet: task.SelectionSet})
		if err != nil {
			results[i].Error = fieldError(err)
			continue
		}
		if th, ok := v.(Thunk); ok {
			thunks[i] = th
			continue
		}
		results[i].Value = v
	}

	rt.req.Loaders.DispatchAll(ctx)

	for i, th := range thunks {
		if th == nil {
			continue
		}
		v, err := th()
		results[i] = executor.AsyncResolveResult{Value: v, Error: fieldError(err)}
	}
	return results
}

func (rt *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return "", fmt.Errorf("abstract type %s is not supported", abstractType)
}

func (rt *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	return serializeLeaf(typeName, value)
}
