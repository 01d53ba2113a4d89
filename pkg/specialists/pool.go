package specialists

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs the six domain specialists concurrently against one alert.
// Spec §4.8: specialists run concurrently and no specialist may depend
// on another's output, so a failure or panic in one (already absorbed by
// runSafely) never blocks the others from reporting.
type Pool struct {
	specialists []Specialist
}

func NewPool(specialists ...Specialist) *Pool {
	return &Pool{specialists: specialists}
}

// Investigate fans the alert out to every specialist in the pool and
// waits for all of them. Findings are returned in specialist-registration
// order, not completion order, so callers get deterministic output.
func (p *Pool) Investigate(ctx context.Context, alert Alert) []Finding {
	findings := make([]Finding, len(p.specialists))

	g, gctx := errgroup.WithContext(ctx)
	for i, specialist := range p.specialists {
		i, specialist := i, specialist
		g.Go(func() error {
			findings[i] = specialist.Investigate(gctx, alert)
			return nil
		})
	}
	_ = g.Wait()

	return findings
}
