package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one source within a batch.
type Outcome struct {
	Index  int
	Source string
	Result Result
	Err    error
}

// RunBatch runs every source through Run with at most concurrency runs in
// flight. A failing source never stops its siblings; canceling ctx stops all
// of them. Outcomes are returned in input order. onDone, when set, is called
// once per source as it finishes, never concurrently.
func (c *Coordinator) RunBatch(ctx context.Context, sources []string, concurrency int, onDone func(Outcome)) []Outcome {
	if concurrency < 1 {
		concurrency = 1
	}
	outcomes := make([]Outcome, len(sources))

	var (
		group errgroup.Group
		mu    sync.Mutex
	)
	group.SetLimit(concurrency)
	for i, source := range sources {
		group.Go(func() error {
			res, err := c.Run(ctx, Request{Source: source})
			outcome := Outcome{Index: i, Source: source, Result: res, Err: err}
			outcomes[i] = outcome
			if onDone != nil {
				mu.Lock()
				onDone(outcome)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return outcomes
}

// Failed returns the outcomes that ended with an error.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed = append(failed, outcome)
		}
	}
	return failed
}
