package annotate

import (
	"context"
	"runtime"
	"sync"

	"github.com/varlab/vas/internal/vcf"
)

// WorkItem holds a variant queued for batch annotation.
type WorkItem struct {
	Seq     int
	Variant *vcf.Variant
}

// WorkResult holds the outcome for a single variant. Err is per-item: one
// variant failing never aborts its siblings.
type WorkResult struct {
	Seq     int
	Variant *vcf.Variant
	Result  *Result
	Err     error
}

// ParallelAnnotate annotates work items using a pool of workers, all
// calling the backend selected by mode. Results are sent to the returned
// channel in arrival order (not sequence order); use OrderedCollect to
// consume them in sequence-number order. If workers is 0, runtime.NumCPU()
// is used.
func (c *Client) ParallelAnnotate(ctx context.Context, items <-chan WorkItem, mode Mode, include SourceSet, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := c.Annotate(ctx, item.Variant, mode, include)
				results <- WorkResult{
					Seq:     item.Seq,
					Variant: item.Variant,
					Result:  res,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// AnnotateBatch annotates variants in parallel and returns per-variant
// outcomes in input order. The mode is validated once up front so an
// unsupported mode fails the whole batch instead of every item.
func (c *Client) AnnotateBatch(ctx context.Context, variants []*vcf.Variant, mode Mode, include SourceSet, workers int) ([]WorkResult, error) {
	if _, ok := c.backends[mode]; !ok {
		return nil, &UnsupportedModeError{Mode: string(mode)}
	}

	items := make(chan WorkItem, len(variants))
	for i, v := range variants {
		items <- WorkItem{Seq: i, Variant: v}
	}
	close(items)

	results := c.ParallelAnnotate(ctx, items, mode, include, workers)

	out := make([]WorkResult, 0, len(variants))
	if err := OrderedCollect(results, func(r WorkResult) error {
		out = append(out, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderedCollect calls fn for each result in sequence-number order. It
// buffers out-of-order results in a pending map and emits them as soon as
// the next expected sequence number is available. Blocks until the results
// channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
