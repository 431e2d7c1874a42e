package verification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/trust"
)

type fakeVerifier struct {
	result trust.Result
	err    error
}

func (f fakeVerifier) Verify(_, _ []byte, _ string) (trust.Result, error) {
	return f.result, f.err
}

func TestCtxLocationAndAppend(t *testing.T) {
	set := &anomaly.Set{}
	c := New(context.Background(), nil, fakeVerifier{}, "Setup", "01.01", 2, set)

	require.Equal(t, anomaly.Location{Phase: "Setup", VerificationID: "01.01"}, c.Location())

	c.AppendFailure(c.Location(), "bad %d", 1)
	c.AppendError(c.Location(), errors.New("boom"))

	require.Equal(t, 2, set.Len())
	require.True(t, set.HasFailures())
	require.True(t, set.HasErrors())
}

func TestCtxParallelForCoversEveryChunk(t *testing.T) {
	c := New(context.Background(), nil, fakeVerifier{}, "Setup", "01.01", 4, &anomaly.Set{})

	var mu sync.Mutex
	var seen [][2]int
	c.ParallelFor(context.Background(), 10, 3, func(lo, hi int) {
		mu.Lock()
		seen = append(seen, [2]int{lo, hi})
		mu.Unlock()
	})

	sort.Slice(seen, func(i, j int) bool { return seen[i][0] < seen[j][0] })
	require.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 9}, {9, 10}}, seen)
}

func TestCtxParallelForZeroNIsNoop(t *testing.T) {
	c := New(context.Background(), nil, fakeVerifier{}, "Setup", "01.01", 2, &anomaly.Set{})
	called := false
	c.ParallelFor(context.Background(), 0, 5, func(lo, hi int) { called = true })
	require.False(t, called)
}

func TestCtxParallelForStopsDispatchingAfterCancel(t *testing.T) {
	c := New(context.Background(), nil, fakeVerifier{}, "Setup", "01.01", 1, &anomaly.Set{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	c.ParallelFor(ctx, 5, 1, func(lo, hi int) { ran = true })
	require.False(t, ran, "body must not run once the context is already cancelled")
}

func TestVerifySignatureValid(t *testing.T) {
	set := &anomaly.Set{}
	c := New(context.Background(), nil, fakeVerifier{result: trust.Valid}, "Setup", "01.01", 1, set)

	payload, err := dataset.ParseSignedPayload[struct{}]([]byte(`{"signature":"0xdead","authenticatingAuthority":"EA"}`))
	require.NoError(t, err)

	VerifySignature(c, c.Location(), payload)
	require.Equal(t, 0, set.Len())
}

func TestVerifySignatureUnknownAuthority(t *testing.T) {
	set := &anomaly.Set{}
	c := New(context.Background(), nil, fakeVerifier{result: trust.UnknownAuthority}, "Setup", "01.01", 1, set)

	payload, err := dataset.ParseSignedPayload[struct{}]([]byte(`{"signature":"0xdead","authenticatingAuthority":"EA"}`))
	require.NoError(t, err)

	VerifySignature(c, c.Location(), payload)
	require.True(t, set.HasFailures())
	require.False(t, set.HasErrors())
}

func TestVerifySignatureInvalid(t *testing.T) {
	set := &anomaly.Set{}
	c := New(context.Background(), nil, fakeVerifier{result: trust.Invalid}, "Setup", "01.01", 1, set)

	payload, err := dataset.ParseSignedPayload[struct{}]([]byte(`{"signature":"0xdead","authenticatingAuthority":"EA"}`))
	require.NoError(t, err)

	VerifySignature(c, c.Location(), payload)
	require.True(t, set.HasFailures())
}

func TestVerifySignatureTrustErrorAppendsError(t *testing.T) {
	set := &anomaly.Set{}
	c := New(context.Background(), nil, fakeVerifier{err: errors.New("store unavailable")}, "Setup", "01.01", 1, set)

	payload, err := dataset.ParseSignedPayload[struct{}]([]byte(`{"signature":"0xdead","authenticatingAuthority":"EA"}`))
	require.NoError(t, err)

	VerifySignature(c, c.Location(), payload)
	require.True(t, set.HasErrors())
	require.False(t, set.HasFailures())
}
