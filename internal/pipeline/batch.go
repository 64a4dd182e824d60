package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a job with its outcome. Exactly one of Result and Err is
// set.
type BatchResult struct {
	Job    Job
	Result *Result
	Err    error
}

// RunBatch aligns jobs concurrently with at most limit runs in flight; a
// non-positive limit means one per CPU. Results are returned in job order. A
// failing job is reported in its own result and does not stop the others.
//
// When ctx is cancelled, jobs that have not started yet report ctx.Err().
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job, limit int) []BatchResult {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, job := range jobs {
		results[i].Job = job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			res, err := p.Run(ctx, job)
			results[i].Result, results[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
