// Package types holds small, dependency-light identifier and value types
// shared by every verifier package: election entity identifiers and
// hex-encoded byte wrappers, in the style of the teacher module's own
// types package (HexBytes, ProcessID) but scoped to this domain.
package types

import (
	"encoding/hex"
	"encoding/json"

	"github.com/vocdoni/evote-verifier/util"
)

// HexBytes is a byte slice that marshals to/from JSON as a "0x"-prefixed
// hex string, matching the wire format of the signed payloads this module
// reads (mirrors the teacher's types.HexBytes).
type HexBytes []byte

// String returns the "0x"-prefixed hex representation.
func (h HexBytes) String() string {
	if len(h) == 0 {
		return "0x"
	}
	return "0x" + hex.EncodeToString(h)
}

// MarshalJSON implements json.Marshaler.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// BallotBoxID identifies a logical vote container. One or more ballot boxes
// map onto a single CountingCircleID.
type BallotBoxID string

// CountingCircleID identifies the administrative unit results are
// aggregated into.
type CountingCircleID string

// ControlComponentID identifies one of the (typically four) independent
// authority processes that sign and contribute to setup payloads.
type ControlComponentID string

// VerificationCardSetID identifies the per-voter credential batch
// associated with a ballot box.
type VerificationCardSetID string

// AuthorizationID identifies an authorization entry resolved from a
// VerificationCardSetID by stripping the "vcs_" alias prefix (see
// ech0222.Build).
type AuthorizationID string

// Phase discriminates the two halves of an election's artifact lifecycle
// that the catalog and scheduler operate over.
type Phase string

const (
	// PhaseSetup covers pre-election artifacts: encryption parameters,
	// shuffle proofs, key generation.
	PhaseSetup Phase = "Setup"
	// PhaseTally covers post-election artifacts: decryption proofs,
	// decoded votes, the eCH-0222 result document.
	PhaseTally Phase = "Tally"
)
