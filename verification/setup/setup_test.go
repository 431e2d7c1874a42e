package setup

import (
	"context"
	"fmt"
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

// buildDataset writes a minimal but schema-valid setup dataset with
// numComponents control components (named cc-1..cc-N) and one ballot box
// "bb-1" declared in the context tree, then returns it opened.
func buildDataset(t *testing.T, numComponents int, params []string) *dataset.Dataset {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {"bb-1": {"verificationCardSetAlias": "vcs_a1"}},
		"authorizations": {},
		"votations": {},
		"electionGroups": {},
		"signature": "0xdead",
		"authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "setup"), 0o755))

	for i := 0; i < numComponents; i++ {
		ccDir := filepath.Join(root, "setup", fmt.Sprintf("cc-%d", i+1))
		require.NoError(t, os.MkdirAll(ccDir, 0o755))

		p := "0xaa"
		if params != nil {
			p = params[i]
		}
		encParams := fmt.Sprintf(`{"p":%q,"q":"0xbb","g":"0xcc","signature":"0xdead","authenticatingAuthority":"EA"}`, p)
		require.NoError(t, os.WriteFile(filepath.Join(ccDir, "encryptionParametersPayload.json"), []byte(encParams), 0o644))

		boxDir := filepath.Join(ccDir, "bb-1")
		require.NoError(t, os.MkdirAll(boxDir, 0o755))

		shuffle := fmt.Sprintf(`{"ballotBoxId":"bb-1","commitments":["0x%02x"],"responses":["0x01"],"signature":"0xdead","authenticatingAuthority":"EA"}`, i+1)
		require.NoError(t, os.WriteFile(filepath.Join(boxDir, "shuffleProofPayload.json"), []byte(shuffle), 0o644))

		decryption := fmt.Sprintf(`{"ballotBoxId":"bb-1","commitments":["0x%02x"],"responses":["0x01"],"signature":"0xdead","authenticatingAuthority":"EA"}`, i+10)
		require.NoError(t, os.WriteFile(filepath.Join(boxDir, "decryptionProofPayload.json"), []byte(decryption), 0o644))
	}

	ds, err := dataset.Open(root)
	require.NoError(t, err)
	return ds
}

func runBody(t *testing.T, ds *dataset.Dataset, id string) *anomaly.Set {
	t.Helper()
	d, ok := catalog.Get(id)
	require.True(t, ok, "descriptor %q must be registered", id)

	set := &anomaly.Set{}
	c := verification.New(context.Background(), ds, trust.NullVerifier{}, "Setup", id, 2, set)
	require.NoError(t, d.Body(c))
	return set
}

func TestControlComponentCountConsistency(t *testing.T) {
	ds := buildDataset(t, 4, nil)
	set := runBody(t, ds, "02.04")
	require.False(t, set.HasFailures())

	ds = buildDataset(t, 2, nil)
	set = runBody(t, ds, "02.04")
	require.True(t, set.HasFailures())
}

func TestEncryptionParameterConsistencyDetectsMismatch(t *testing.T) {
	ds := buildDataset(t, 2, []string{"0xaa", "0xff"})
	set := runBody(t, ds, "02.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "expected 0xaa")
}

func TestEncryptionParameterConsistencyAcceptsMatching(t *testing.T) {
	ds := buildDataset(t, 3, nil)
	set := runBody(t, ds, "02.01")
	require.False(t, set.HasFailures())
}

func TestAllControlComponentsPresent(t *testing.T) {
	ds := buildDataset(t, 0, nil)
	set := runBody(t, ds, "04.01")
	require.True(t, set.HasFailures())

	ds = buildDataset(t, 4, nil)
	set = runBody(t, ds, "04.01")
	require.False(t, set.HasFailures())
}

func TestShuffleProofDistinctnessDetectsDuplicateCommitments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {"bb-1": {"verificationCardSetAlias": "vcs_a1"}},
		"authorizations": {}, "votations": {}, "electionGroups": {},
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))

	for _, cc := range []string{"cc-1", "cc-2"} {
		boxDir := filepath.Join(root, "setup", cc, "bb-1")
		require.NoError(t, os.MkdirAll(boxDir, 0o755))
		// identical commitments across both control components.
		shuffle := `{"ballotBoxId":"bb-1","commitments":["0x01"],"responses":["0x02"],"signature":"0xdead","authenticatingAuthority":"EA"}`
		require.NoError(t, os.WriteFile(filepath.Join(boxDir, "shuffleProofPayload.json"), []byte(shuffle), 0o644))
	}

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "05.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "identical shuffle proof commitments")
}

func TestShuffleProofShapeIntegrityDetectsMalformedShape(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {"bb-1": {"verificationCardSetAlias": "vcs_a1"}},
		"authorizations": {}, "votations": {}, "electionGroups": {},
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))

	boxDir := filepath.Join(root, "setup", "cc-1", "bb-1")
	require.NoError(t, os.MkdirAll(boxDir, 0o755))
	// two commitments, one response: malformed shape.
	shuffle := `{"ballotBoxId":"bb-1","commitments":["0x01","0x02"],"responses":["0x03"],"signature":"0xdead","authenticatingAuthority":"EA"}`
	require.NoError(t, os.WriteFile(filepath.Join(boxDir, "shuffleProofPayload.json"), []byte(shuffle), 0o644))

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "03.01")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "malformed commitment/response shape")
}

func TestBallotBoxArtifactsCompleteDetectsMissingProof(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {"bb-1": {"verificationCardSetAlias": "vcs_a1"}},
		"authorizations": {}, "votations": {}, "electionGroups": {},
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))

	ccDir := filepath.Join(root, "setup", "cc-1", "bb-1")
	require.NoError(t, os.MkdirAll(ccDir, 0o755))
	shuffle := `{"ballotBoxId":"bb-1","commitments":["0x01"],"responses":["0x02"],"signature":"0xdead","authenticatingAuthority":"EA"}`
	require.NoError(t, os.WriteFile(filepath.Join(ccDir, "shuffleProofPayload.json"), []byte(shuffle), 0o644))
	// no decryptionProofPayload.json written.

	ds, err := dataset.Open(root)
	require.NoError(t, err)

	set := runBody(t, ds, "04.02")
	require.True(t, set.HasFailures())
	require.Contains(t, set.Items()[0].Message, "missing decryption proof")
}
