package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/vocdoni/evote-verifier/types"
)

// BallotBox is one ballot-box subfolder within tally/: the encrypted votes
// it contains, plus the decoded votes and write-ins produced by mixing.
type BallotBox struct {
	ID  types.BallotBoxID
	dir string

	decoded *slot[*SignedPayload[DecodedBallots]]
}

// DecodedBallots is the per-ballot-box mixnet output: one decoded vote
// string (prime-product encoded option identifiers joined by "|", per the
// GLOSSARY) and one decoded write-in list per cast ballot, positionally
// aligned.
type DecodedBallots struct {
	Votes        []string   `json:"decodedVotes"`
	WriteIns     [][]string `json:"decodedWriteIns"`
	ValidCount   int        `json:"validVotingCardsTotal"`
	InvalidCount int        `json:"invalidVotingCardsTotal"`
}

// SignedDecoded returns the signed decoded-ballots payload for this ballot
// box, lazily parsed and memoized (sticky on error, per C1's invariants).
// Signature verification itself is the caller's concern (via the Trust
// boundary, C9); this accessor only parses the envelope.
func (b *BallotBox) SignedDecoded() (*SignedPayload[DecodedBallots], error) {
	return b.decoded.get(func() (*SignedPayload[DecodedBallots], error) {
		payload, err := readSigned[DecodedBallots](filepath.Join(b.dir, "decodedBallots.json"))
		if err != nil {
			return nil, fmt.Errorf("ballot box %s: %w", b.ID, err)
		}
		decoded := payload.Content
		if len(decoded.WriteIns) != 0 && len(decoded.WriteIns) != len(decoded.Votes) {
			return nil, fmt.Errorf("ballot box %s: %d decoded votes but %d write-in entries", b.ID, len(decoded.Votes), len(decoded.WriteIns))
		}
		return payload, nil
	})
}

// Decoded returns just the decoded-ballots content, a convenience over
// SignedDecoded for verifications that do not need the envelope.
func (b *BallotBox) Decoded() (*DecodedBallots, error) {
	payload, err := b.SignedDecoded()
	if err != nil {
		return nil, err
	}
	return &payload.Content, nil
}

func newBallotBox(dir string) *BallotBox {
	return &BallotBox{
		ID:      types.BallotBoxID(filepath.Base(dir)),
		dir:     dir,
		decoded: &slot[*SignedPayload[DecodedBallots]]{},
	}
}
