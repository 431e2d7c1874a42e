package tally

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/trust"
	"github.com/vocdoni/evote-verifier/verification"
)

func writeBallotBox(t *testing.T, root, id, decodedJSON string) {
	t.Helper()
	dir := filepath.Join(root, "tally", id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "decodedBallots.json"), []byte(decodedJSON), 0o644))
}

func runBody(t *testing.T, ds *dataset.Dataset, id string) *anomaly.Set {
	t.Helper()
	d, ok := catalog.Get(id)
	require.True(t, ok, "descriptor %q must be registered", id)

	set := &anomaly.Set{}
	c := verification.New(context.Background(), ds, trust.NullVerifier{}, "Tally", id, 2, set)
	require.NoError(t, d.Body(c))
	return set
}

func openTallyDataset(t *testing.T) (*dataset.Dataset, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {}, "authorizations": {}, "votations": {}, "electionGroups": {},
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tally"), 0o755))

	ds, err := dataset.Open(root)
	require.NoError(t, err)
	return ds, root
}

func TestBallotCountConsistencyDetectsMismatch(t *testing.T) {
	_, root := openTallyDataset(t)
	decoded := `{
		"decodedVotes": ["q1|a1", "q1|a2"],
		"decodedWriteIns": [],
		"validVotingCardsTotal": 3,
		"invalidVotingCardsTotal": 0,
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	writeBallotBox(t, root, "bb-1", decoded)

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "07.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "decoded 2 votes but validVotingCardsTotal=3")
}

func TestBallotCountConsistencyAcceptsMatching(t *testing.T) {
	_, root := openTallyDataset(t)
	decoded := `{
		"decodedVotes": ["q1|a1", "q1|a2"],
		"decodedWriteIns": [],
		"validVotingCardsTotal": 2,
		"invalidVotingCardsTotal": 0,
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	writeBallotBox(t, root, "bb-1", decoded)

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "07.01")
	require.False(t, set.HasFailures())
}

func TestDecodedVoteEncodingIntegrityDetectsMalformedOption(t *testing.T) {
	_, root := openTallyDataset(t)
	decoded := `{
		"decodedVotes": ["q1|a1", "malformed"],
		"decodedWriteIns": [],
		"validVotingCardsTotal": 2,
		"invalidVotingCardsTotal": 0,
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	writeBallotBox(t, root, "bb-1", decoded)

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "08.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "malformed decoded option")
}

func TestBallotBoxesPresentDetectsEmptyTally(t *testing.T) {
	ds, _ := openTallyDataset(t)
	set := runBody(t, ds, "09.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "no ballot boxes")
}

func TestBallotBoxesPresentAcceptsNonEmptyTally(t *testing.T) {
	_, root := openTallyDataset(t)
	decoded := `{
		"decodedVotes": [], "decodedWriteIns": [],
		"validVotingCardsTotal": 0, "invalidVotingCardsTotal": 0,
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	writeBallotBox(t, root, "bb-1", decoded)

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "09.01")
	require.False(t, set.HasFailures())
}

func TestECH0222DocumentPresentDetectsMissingFile(t *testing.T) {
	ds, _ := openTallyDataset(t)
	set := runBody(t, ds, "09.02")
	require.True(t, set.HasErrors())
}

func TestECH0222DocumentPresentAcceptsExistingFile(t *testing.T) {
	_, root := openTallyDataset(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "tally", "eCH-0222_contest-1.xml"), []byte("<eCH0222/>"), 0o644))

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "09.02")
	require.False(t, set.HasErrors())
}
