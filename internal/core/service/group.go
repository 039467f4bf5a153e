package service

import "context"

// Group runs several services as one. Services start in order; cleanup
// runs in reverse order so dependents shut down before their
// dependencies.
type Group []Service

// Run starts every service. If one fails to start, the ones already
// running are cleaned up before the error is returned.
func (g Group) Run(ctx context.Context) (func(context.Context) error, error) {
	cleanups := make([]func(context.Context) error, 0, len(g))

	for _, svc := range g {
		cleanup, err := svc.Run(ctx)
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				_ = cleanups[i](ctx)
			}
			return nil, err
		}
		cleanups = append(cleanups, cleanup)
	}

	combined := func(ctx context.Context) error {
		var firstErr error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return combined, nil
}
