// Package tally registers every Tally-phase verification (spec.md §4.4,
// ids 06.01-10.02) into the catalog. As in verification/setup, the
// numbering is sparse (see DESIGN.md); 08.02-08.09 and 10.01-10.02 are
// registered as NotImplemented by catalog/registry.go and never run.
package tally

import (
	"fmt"
	"strings"

	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/ech0222"
	"github.com/vocdoni/evote-verifier/types"
	"github.com/vocdoni/evote-verifier/verification"
)

func init() {
	catalog.Register(catalog.Descriptor{
		ID: "06.01", Name: "Decoded ballots payload signature",
		Phase: types.PhaseTally, Category: catalog.Authentication,
		Body: decodedBallotsSignature,
	})
	catalog.Register(catalog.Descriptor{
		ID: "07.01", Name: "Decoded ballot count consistency",
		Phase: types.PhaseTally, Category: catalog.Consistency,
		Dependencies: []string{"06.01"},
		Body:         ballotCountConsistency,
	})
	catalog.Register(catalog.Descriptor{
		ID: "07.02", Name: "Write-in alignment consistency",
		Phase: types.PhaseTally, Category: catalog.Consistency,
		Dependencies: []string{"06.01"},
		Body:         writeInAlignmentConsistency,
	})
	catalog.Register(catalog.Descriptor{
		ID: "08.01", Name: "Decoded vote encoding integrity",
		Phase: types.PhaseTally, Category: catalog.Integrity,
		Dependencies: []string{"07.01"},
		Body:         decodedVoteEncodingIntegrity,
	})
	catalog.Register(catalog.Descriptor{
		ID: "09.01", Name: "Ballot boxes present",
		Phase: types.PhaseTally, Category: catalog.Completeness,
		Body: ballotBoxesPresent,
	})
	catalog.Register(catalog.Descriptor{
		ID: "09.02", Name: "eCH-0222 result document present",
		Phase: types.PhaseTally, Category: catalog.Completeness,
		Body: ech0222DocumentPresent,
	})
	catalog.Register(catalog.Descriptor{
		ID: "09.03", Name: "VerifyECH0222",
		Phase: types.PhaseTally, Category: catalog.Evidence,
		Dependencies: []string{"09.02"},
		Body:         verifyECH0222,
	})
}

func decodedBallotsSignature(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for box, err := range tallyTree.BallotBoxes() {
		if err != nil {
			c.AppendError(c.Location(), err)
			continue
		}
		loc := c.Location().WithFile(string(box.ID))
		payload, err := box.SignedDecoded()
		if err != nil {
			c.AppendError(loc, err)
			continue
		}
		verification.VerifySignature(c, loc, payload)
	}
	return nil
}

func ballotCountConsistency(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for box, err := range tallyTree.BallotBoxes() {
		if err != nil {
			c.AppendError(c.Location(), err)
			continue
		}
		loc := c.Location().WithFile(string(box.ID))
		decoded, err := box.Decoded()
		if err != nil {
			c.AppendError(loc, err)
			continue
		}
		if len(decoded.Votes) != decoded.ValidCount {
			c.AppendFailure(loc, "decoded %d votes but validVotingCardsTotal=%d", len(decoded.Votes), decoded.ValidCount)
		}
	}
	return nil
}

func writeInAlignmentConsistency(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for box, err := range tallyTree.BallotBoxes() {
		if err != nil {
			c.AppendError(c.Location(), err)
			continue
		}
		loc := c.Location().WithFile(string(box.ID))
		decoded, err := box.Decoded()
		if err != nil {
			c.AppendError(loc, err)
			continue
		}
		if len(decoded.WriteIns) != 0 && len(decoded.WriteIns) != len(decoded.Votes) {
			c.AppendFailure(loc, "decoded %d votes but %d write-in entries", len(decoded.Votes), len(decoded.WriteIns))
		}
	}
	return nil
}

func decodedVoteEncodingIntegrity(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for box, err := range tallyTree.BallotBoxes() {
		if err != nil {
			c.AppendError(c.Location(), err)
			continue
		}
		decoded, err := box.Decoded()
		if err != nil {
			c.AppendError(c.Location().WithFile(string(box.ID)), err)
			continue
		}
		boxID := box.ID
		c.ParallelFor(c.Context(), len(decoded.Votes), 256, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				option := decoded.Votes[i]
				parts := strings.SplitN(option, "|", 2)
				if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
					c.AppendFailure(c.Location().WithFile(string(boxID)).WithIndex(i),
						"malformed decoded option %q, expected \"id|id\"", option)
				}
			}
		})
	}
	return nil
}

func ballotBoxesPresent(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	count := 0
	for _, err := range tallyTree.BallotBoxes() {
		if err != nil {
			c.AppendError(c.Location(), err)
			continue
		}
		count++
	}
	if count == 0 {
		c.AppendFailure(c.Location(), "tally dataset contains no ballot boxes")
	}
	return nil
}

func ech0222DocumentPresent(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	if _, err := tallyTree.ECH0222Bytes(); err != nil {
		c.AppendError(c.Location(), err)
	}
	return nil
}

func verifyECH0222(c catalog.VerificationContext) error {
	tallyTree, err := c.Dataset().Tally()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	context, err := c.Dataset().Context()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}

	imported, err := ech0222.ParseImported(tallyTree)
	if err != nil {
		c.AppendError(c.Location(), fmt.Errorf("parsing imported eCH-0222 document: %w", err))
		return nil
	}
	calculated, err := ech0222.Build(&ech0222.ContestConfig{Context: context}, tallyTree)
	if err != nil {
		c.AppendError(c.Location(), fmt.Errorf("building calculated result: %w", err))
		return nil
	}

	for _, finding := range ech0222.Compare(imported, calculated) {
		finding.Location.VerificationID = c.Location().VerificationID
		c.AppendFailure(finding.Location, "%s", finding.Message)
	}
	return nil
}
