package resolve

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchEntry is one outcome of a batch resolution. Err is a *ResolveError
// when that entry failed; other entries are unaffected.
type BatchEntry struct {
	Request Request
	Result  Result
	Err     error
}

// ResolveBatch resolves independent requests concurrently with bounded
// fan-out. Entries come back in input order. A failed entry never fails
// the batch; callers inspect Err per entry.
func (r *Resolver) ResolveBatch(ctx context.Context, reqs []Request) []BatchEntry {
	if len(reqs) == 0 {
		return nil
	}

	entries := make([]BatchEntry, len(reqs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to stay inside upstream rate limits.

	for i, req := range reqs {
		g.Go(func() error {
			res, err := r.Resolve(gCtx, req)
			entries[i] = BatchEntry{Request: req, Result: res, Err: err}
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()
	return entries
}
