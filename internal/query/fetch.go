package query

import (
	"context"
	"fmt"
)

// FetchAs is the typed wrapper over Orchestrator.Fetch. The cached value for a
// key always comes from the same operation, so the assertion only fails when
// two operations share a name with different result types.
func FetchAs[T any](ctx context.Context, o *Orchestrator, operation string, params any, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T
	value, err := o.Fetch(ctx, operation, params, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("query: cached value for %q has unexpected type %T", operation, value)
	}
	return typed, nil
}
