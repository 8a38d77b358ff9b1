// Package parallel runs per-item work in bounded concurrent chunks with
// all-settled semantics: one item's failure never stops the others.
package parallel

import (
	"sync"

	"lesson-insights-go/internal/logger"
)

// ItemError pairs a failed item with its error.
type ItemError[I any] struct {
	Item I
	Err  error
}

// Process runs fn over items, concurrency at a time, and collects all
// successes and all failures. Result order follows input order within each
// chunk.
func Process[I, R any](items []I, concurrency int, fn func(I) (R, error)) ([]R, []ItemError[I]) {
	log := logger.New().WithField("module", "parallel")

	if concurrency < 1 {
		concurrency = 1
	}
	log.WithField("items", len(items)).WithField("concurrency", concurrency).Info("processing batch")

	var results []R
	var failures []ItemError[I]

	for chunkStart := 0; chunkStart < len(items); chunkStart += concurrency {
		chunkEnd := chunkStart + concurrency
		if chunkEnd > len(items) {
			chunkEnd = len(items)
		}
		chunk := items[chunkStart:chunkEnd]

		type outcome struct {
			value R
			err   error
		}
		outcomes := make([]outcome, len(chunk))

		var wg sync.WaitGroup
		for i, item := range chunk {
			wg.Add(1)
			go func(i int, item I) {
				defer wg.Done()
				v, err := fn(item)
				outcomes[i] = outcome{value: v, err: err}
			}(i, item)
		}
		wg.Wait()

		for i, o := range outcomes {
			if o.err != nil {
				failures = append(failures, ItemError[I]{Item: chunk[i], Err: o.err})
				continue
			}
			results = append(results, o.value)
		}
	}

	log.WithField("succeeded", len(results)).WithField("failed", len(failures)).Info("batch complete")
	return results, failures
}

// OptimalConcurrency keeps small batches at low fan-out and caps larger
// ones at the configured maximum.
func OptimalConcurrency(totalItems, maxConcurrency int) int {
	switch {
	case totalItems <= 0:
		return 1
	case totalItems <= 5:
		return min(2, totalItems)
	case totalItems <= 10:
		return min(3, totalItems)
	default:
		return min(maxConcurrency, totalItems)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
