// Package pagination provides page arithmetic and the gather-by-index fan-out
// used to load one page of catalog items in parallel.
//
// Example usage:
//
//	offset := pagination.Offset(page, 10)
//	batch := pagination.Gather(ctx, pagination.DefaultConfig(), len(ids),
//		func(ctx context.Context, i int) (*pokeapi.Pokemon, error) {
//			return client.Pokemon(ctx, ids[i])
//		})
//	summary := pagination.Reduce(batch.Snapshot())
//
// The gather primitive:
//   - Starts one task per index, bounded by MaxConcurrency
//   - Records each outcome in its own slot; a failure never cancels siblings
//   - Exposes in-progress snapshots while tasks are still running
//   - Reduces slots to pending count, first error and resolved values in index order
package pagination
