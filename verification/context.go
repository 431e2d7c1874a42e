// Package verification implements the concrete VerificationContext every
// catalog descriptor runs against (spec.md §4.4), and hosts the shared
// helpers the setup and tally verification bodies build on: chunked
// parallel iteration and canonical signature checking. The verification
// bodies themselves live in
// verification/setup and verification/tally, grouped by phase.
package verification

import (
	"context"
	"fmt"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/trust"
	"golang.org/x/sync/errgroup"
)

// Ctx is the concrete VerificationContext backing every running
// descriptor. It is constructed fresh by the scheduler for each
// verification so AppendFailure/AppendError calls are attributed to the
// right descriptor without the body needing to repeat its own id.
type Ctx struct {
	runCtx     context.Context
	ds         *dataset.Dataset
	tr         trust.Verifier
	phase      string
	id         string
	maxWorkers int

	anomalies *anomaly.Set
}

// New builds a Ctx for one running descriptor. maxWorkers bounds
// ParallelFor's concurrency; it is typically the same budget the
// scheduler uses for inter-verification parallelism (spec.md §5: the
// concurrency budget is centralized, not per-caller).
func New(runCtx context.Context, ds *dataset.Dataset, tr trust.Verifier, phase, id string, maxWorkers int, anomalies *anomaly.Set) *Ctx {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Ctx{runCtx: runCtx, ds: ds, tr: tr, phase: phase, id: id, maxWorkers: maxWorkers, anomalies: anomalies}
}

// Context implements catalog.VerificationContext.
func (c *Ctx) Context() context.Context { return c.runCtx }

// Dataset implements catalog.VerificationContext.
func (c *Ctx) Dataset() *dataset.Dataset { return c.ds }

// Trust implements catalog.VerificationContext.
func (c *Ctx) Trust() trust.Verifier { return c.tr }

// Location implements catalog.VerificationContext.
func (c *Ctx) Location() anomaly.Location {
	return anomaly.Location{Phase: c.phase, VerificationID: c.id}
}

// AppendFailure implements catalog.VerificationContext.
func (c *Ctx) AppendFailure(loc anomaly.Location, format string, args ...any) {
	c.anomalies.Append(anomaly.NewFailure(loc, format, args...))
}

// AppendError implements catalog.VerificationContext.
func (c *Ctx) AppendError(loc anomaly.Location, cause error) {
	c.anomalies.Append(anomaly.NewError(loc, cause))
}

// ParallelFor implements catalog.VerificationContext: it splits [0, n)
// into chunks of at most chunkSize and runs body over each chunk
// concurrently, bounded by c.maxWorkers. It checks ctx before dispatching
// each chunk so a cancelled run stops issuing new chunks at the next
// opportunity (spec.md §5's cooperative-cancellation granularity).
func (c *Ctx) ParallelFor(ctx context.Context, n, chunkSize int, body func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if chunkSize <= 0 {
		chunkSize = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)

	for lo := 0; lo < n; lo += chunkSize {
		lo := lo
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			body(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

var _ catalog.VerificationContext = (*Ctx)(nil)

// VerifySignature is the shared body of every Authentication-category
// verification (spec.md §4.4): compute the canonical signed bytes of
// payload and ask the trust boundary to check them, appending one Failure
// per payload that does not verify.
func VerifySignature[T any](c catalog.VerificationContext, loc anomaly.Location, payload *dataset.SignedPayload[T]) {
	canonical, err := payload.CanonicalBytes()
	if err != nil {
		c.AppendError(loc, fmt.Errorf("canonicalizing payload: %w", err))
		return
	}
	result, err := c.Trust().Verify(canonical, payload.Signature, payload.AuthenticatingAuthority)
	if err != nil {
		c.AppendError(loc, fmt.Errorf("checking signature: %w", err))
		return
	}
	switch result {
	case trust.Valid:
		return
	case trust.UnknownAuthority:
		c.AppendFailure(loc, "signature references unknown authority %q", payload.AuthenticatingAuthority)
	default:
		c.AppendFailure(loc, "signature does not verify against authority %q", payload.AuthenticatingAuthority)
	}
}
