package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vocdoni/evote-verifier/types"
)

// SetupTree is the Setup sub-tree: zero or more control-component folders,
// each holding that authority's contribution to the encryption-parameter
// setup and, later, shuffle/decryption proofs.
type SetupTree struct {
	root       string
	components []ControlComponent
}

// ControlComponent is one control component's folder within setup/.
type ControlComponent struct {
	ID  types.ControlComponentID
	dir string
}

// ControlComponents returns the discovered control-component folders,
// sorted by id for deterministic iteration.
func (s *SetupTree) ControlComponents() []ControlComponent {
	return s.components
}

// EncryptionParameters reads and parses this control component's signed
// encryption-parameters payload (the primes p, q and generator g checked
// for cross-component consistency by verification 02.xx).
func (c ControlComponent) EncryptionParameters() (*SignedPayload[EncryptionParameters], error) {
	return readSigned[EncryptionParameters](filepath.Join(c.dir, "encryptionParametersPayload.json"))
}

// ShuffleProof reads and parses this control component's signed shuffle
// proof for the given ballot box.
func (c ControlComponent) ShuffleProof(ballotBox types.BallotBoxID) (*SignedPayload[ShuffleProof], error) {
	return readSigned[ShuffleProof](filepath.Join(c.dir, string(ballotBox), "shuffleProofPayload.json"))
}

// DecryptionProof reads and parses this control component's signed
// decryption proof for the given ballot box.
func (c ControlComponent) DecryptionProof(ballotBox types.BallotBoxID) (*SignedPayload[DecryptionProof], error) {
	return readSigned[DecryptionProof](filepath.Join(c.dir, string(ballotBox), "decryptionProofPayload.json"))
}

// EncryptionParameters is the encryption group's modulus/order/generator,
// expected to appear identically across every control component.
type EncryptionParameters struct {
	P types.HexBytes `json:"p"`
	Q types.HexBytes `json:"q"`
	G types.HexBytes `json:"g"`
}

// ShuffleProof is a control component's Σ-protocol evidence that it
// correctly re-encrypted and permuted a ballot box's ciphertexts.
type ShuffleProof struct {
	BallotBoxID types.BallotBoxID `json:"ballotBoxId"`
	Commitments []types.HexBytes  `json:"commitments"`
	Responses   []types.HexBytes  `json:"responses"`
}

// DecryptionProof is a control component's plaintext-equality evidence for
// its partial decryption of a ballot box's ciphertexts.
type DecryptionProof struct {
	BallotBoxID types.BallotBoxID `json:"ballotBoxId"`
	Commitments []types.HexBytes  `json:"commitments"`
	Responses   []types.HexBytes  `json:"responses"`
}

func loadSetup(root string) (*SetupTree, error) {
	dir := filepath.Join(root, "setup")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading setup tree: %w", err)
	}

	var components []ControlComponent
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		components = append(components, ControlComponent{
			ID:  types.ControlComponentID(e.Name()),
			dir: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(components, func(i, j int) bool { return components[i].ID < components[j].ID })

	return &SetupTree{root: dir, components: components}, nil
}
