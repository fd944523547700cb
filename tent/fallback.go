package tent

import (
	"context"
	"errors"
	"fmt"
)

var errNoCandidates = errors.New("no candidates")

// Tries each candidate in order with attempt, returning the first success. Candidates after a success are never attempted.
//
// If every candidate fails, the returned error joins each rejection. onReject (optional) is called for every rejected candidate.
func firstSuccess[C any, T any](ctx context.Context, candidates []C, attempt func(context.Context, C) (T, error), onReject func(C, error)) (T, C, error) {
	var zero T
	var none C
	if len(candidates) == 0 {
		return zero, none, errNoCandidates
	}

	errs := make([]error, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		val, err := attempt(ctx, c)
		if err == nil {
			return val, c, nil
		}
		if onReject != nil {
			onReject(c, err)
		}
		errs = append(errs, fmt.Errorf("%v: %w", c, err))
	}
	return zero, none, errors.Join(errs...)
}
