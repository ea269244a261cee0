package shift

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/ccnfit/internal/numeric"
)

// Input is one scan's raw series as seen by the estimator.
type Input struct {
	SMPS       []float64
	CCNC       []float64
	ScanUpTime int
}

// BatchResult holds both passes of a batch estimate. Phase1[i] and Final[i]
// belong to scans[i].
type BatchResult struct {
	Median int
	// MedianOK is false when no scan produced a usable first-pass shift;
	// the second pass then ran with a zero reference.
	MedianOK bool
	Phase1   []Result
	Final    []Result
}

// EstimateBatch runs the estimator twice over every scan. The first pass uses
// a zero reference shift; the lower median of its usable shifts becomes the
// reference for the second pass. Scans within a pass run concurrently on at
// most workers goroutines (GOMAXPROCS when workers <= 0). Cancellation is
// observed between scans.
func EstimateBatch(ctx context.Context, scans []Input, cfg Config, workers int) (BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	phase1, err := mapScans(ctx, scans, 0, cfg, workers)
	if err != nil {
		return BatchResult{}, fmt.Errorf("first pass: %w", err)
	}

	usable := make([]int, 0, len(phase1))
	for _, r := range phase1 {
		if r.Usable {
			usable = append(usable, r.Shift)
		}
	}
	median, ok := numeric.MedianInt(usable)
	if !ok {
		shiftLog("no usable first-pass shift across %d scans, using reference 0", len(scans))
	}

	final, err := mapScans(ctx, scans, median, cfg, workers)
	if err != nil {
		return BatchResult{}, fmt.Errorf("second pass: %w", err)
	}

	return BatchResult{
		Median:   median,
		MedianOK: ok,
		Phase1:   phase1,
		Final:    final,
	}, nil
}

func mapScans(ctx context.Context, scans []Input, reference int, cfg Config, workers int) ([]Result, error) {
	out := make([]Result, len(scans))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range scans {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := scans[i]
			out[i] = Estimate(s.SMPS, s.CCNC, s.ScanUpTime, reference, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
