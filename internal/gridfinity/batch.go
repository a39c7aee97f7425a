package gridfinity

import (
	"context"
	"fmt"
	"sync"
)

// BatchFailure records one assignment that could not be committed.
type BatchFailure struct {
	ItemID string `json:"item_id"`
	Code   string `json:"code"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

// BatchResult aggregates the outcome of committing an auto-layout run.
type BatchResult struct {
	Placed   []Placement    `json:"placed"`
	Failed   []BatchFailure `json:"failed"`
	Unplaced []string       `json:"unplaced"`
}

// Summary renders the aggregate outcome, e.g. "3 placed, 1 failed".
func (r BatchResult) Summary() string {
	s := fmt.Sprintf("%d placed, %d failed", len(r.Placed), len(r.Failed))
	if n := len(r.Unplaced); n > 0 {
		s += fmt.Sprintf(", %d did not fit", n)
	}
	return s
}

// CommitFunc commits a single assignment.
type CommitFunc func(ctx context.Context, a Assignment) (Placement, error)

// CommitAll dispatches every assignment concurrently and waits for all of them.
// A failing commit does not stop the others. Results keep the order of the
// assignments.
func CommitAll(ctx context.Context, assignments []Assignment, commit CommitFunc) BatchResult {
	type outcome struct {
		p   Placement
		err error
	}
	outcomes := make([]outcome, len(assignments))

	var wg sync.WaitGroup
	for i, a := range assignments {
		wg.Add(1)
		go func(i int, a Assignment) {
			defer wg.Done()
			p, err := commit(ctx, a)
			outcomes[i] = outcome{p: p, err: err}
		}(i, a)
	}
	wg.Wait()

	res := BatchResult{Placed: []Placement{}, Failed: []BatchFailure{}, Unplaced: []string{}}
	for i, o := range outcomes {
		if o.err != nil {
			res.Failed = append(res.Failed, BatchFailure{
				ItemID: assignments[i].ItemID,
				Code:   ErrorCode(o.err),
				Error:  Message(o.err),
				Err:    o.err,
			})
			continue
		}
		res.Placed = append(res.Placed, o.p)
	}
	return res
}
