package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// runBranches executes every branch concurrently against one immutable
// snapshot and collects the outputs. Each goroutine writes only its own
// slot, and a failing branch never cancels its siblings; that is why the
// group is built without a derived context.
func runBranches(ctx context.Context, snap Snapshot, branches []branchDescriptor) map[string]BranchOutput {
	results := make([]BranchOutput, len(branches))

	var g errgroup.Group
	for i, br := range branches {
		i, br := i, br

		if br.skip != nil && br.skip(snap) {
			results[i] = BranchOutput{Name: br.name, Status: StatusSkipped}
			continue
		}

		g.Go(func() error {
			start := time.Now()

			payload, err := safeRun(ctx, br, snap)

			out := BranchOutput{
				Name:     br.name,
				Payload:  payload,
				Duration: time.Since(start),
			}
			switch {
			case err == nil:
				out.Status = StatusSuccess
			case br.optional:
				out.Status = StatusFailed
				out.Err = err
			default:
				// Required branches degrade to their safe default
				// rather than fail; the payload already holds
				// whatever partial work survived.
				out.Status = StatusDegraded
				out.Err = err
			}
			results[i] = out
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	out := make(map[string]BranchOutput, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

// safeRun invokes one branch body and converts a panic into an error so a
// single misbehaving branch cannot take down the whole group.
func safeRun(ctx context.Context, br branchDescriptor, snap Snapshot) (payload BranchPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: branch %s panicked: %v", br.name, r)
		}
	}()
	return br.run(ctx, snap)
}
