// Package setup registers every Setup-phase verification (spec.md §4.4,
// ids 01.01-05.21) into the catalog. The numbering is sparse: ids were
// retired over the life of the election authority's original system and
// this registry preserves the surviving span rather than inventing dense
// filler checks (see DESIGN.md).
package setup

import (
	"fmt"
	"sort"

	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/primitives"
	"github.com/vocdoni/evote-verifier/types"
	"github.com/vocdoni/evote-verifier/verification"
)

func init() {
	catalog.Register(catalog.Descriptor{
		ID: "01.01", Name: "Encryption parameters payload signature",
		Phase: types.PhaseSetup, Category: catalog.Authentication,
		Body: encryptionParametersSignature,
	})
	catalog.Register(catalog.Descriptor{
		ID: "01.02", Name: "Shuffle proof payload signature",
		Phase: types.PhaseSetup, Category: catalog.Authentication,
		Body: shuffleProofSignature,
	})
	catalog.Register(catalog.Descriptor{
		ID: "01.03", Name: "Decryption proof payload signature",
		Phase: types.PhaseSetup, Category: catalog.Authentication,
		Body: decryptionProofSignature,
	})
	catalog.Register(catalog.Descriptor{
		ID: "02.01", Name: "Encryption parameter p consistency",
		Phase: types.PhaseSetup, Category: catalog.Consistency,
		Dependencies: []string{"01.01"},
		Body:         encryptionParameterConsistency("p", func(p dataset.EncryptionParameters) types.HexBytes { return p.P }),
	})
	catalog.Register(catalog.Descriptor{
		ID: "02.02", Name: "Encryption parameter q consistency",
		Phase: types.PhaseSetup, Category: catalog.Consistency,
		Dependencies: []string{"01.01"},
		Body:         encryptionParameterConsistency("q", func(p dataset.EncryptionParameters) types.HexBytes { return p.Q }),
	})
	catalog.Register(catalog.Descriptor{
		ID: "02.03", Name: "Encryption parameter g consistency",
		Phase: types.PhaseSetup, Category: catalog.Consistency,
		Dependencies: []string{"01.01"},
		Body:         encryptionParameterConsistency("g", func(p dataset.EncryptionParameters) types.HexBytes { return p.G }),
	})
	catalog.Register(catalog.Descriptor{
		ID: "02.04", Name: "Control component count consistency",
		Phase: types.PhaseSetup, Category: catalog.Consistency,
		Body: controlComponentCountConsistency,
	})
	catalog.Register(catalog.Descriptor{
		ID: "03.01", Name: "Shuffle proof shape integrity",
		Phase: types.PhaseSetup, Category: catalog.Integrity,
		Dependencies: []string{"01.02"},
		Body:         shuffleProofShapeIntegrity,
	})
	catalog.Register(catalog.Descriptor{
		ID: "03.02", Name: "Decryption proof shape integrity",
		Phase: types.PhaseSetup, Category: catalog.Integrity,
		Dependencies: []string{"01.03"},
		Body:         decryptionProofShapeIntegrity,
	})
	catalog.Register(catalog.Descriptor{
		ID: "04.01", Name: "All control components present",
		Phase: types.PhaseSetup, Category: catalog.Completeness,
		Body: allControlComponentsPresent,
	})
	catalog.Register(catalog.Descriptor{
		ID: "04.02", Name: "Ballot box artifacts complete per control component",
		Phase: types.PhaseSetup, Category: catalog.Completeness,
		Dependencies: []string{"04.01"},
		Body:         ballotBoxArtifactsComplete,
	})
	catalog.Register(catalog.Descriptor{
		ID: "05.01", Name: "Shuffle proof cross-component distinctness",
		Phase: types.PhaseSetup, Category: catalog.Integrity,
		Dependencies: []string{"03.01"},
		Body:         shuffleProofDistinctness,
	})
	catalog.Register(catalog.Descriptor{
		ID: "05.21", Name: "Decryption proof cross-component distinctness",
		Phase: types.PhaseSetup, Category: catalog.Integrity,
		Dependencies: []string{"03.02"},
		Body:         decryptionProofDistinctness,
	})
}

// ballotBoxIDs returns the sorted ballot box ids declared by the election
// event context, the set every per-ballot-box Setup check iterates over
// (shuffle/decryption proofs are produced ahead of tallying, keyed by the
// same ballot box ids the Tally sub-tree will later use).
func ballotBoxIDs(ds *dataset.Dataset) ([]types.BallotBoxID, error) {
	context, err := ds.Context()
	if err != nil {
		return nil, err
	}
	ids := make([]types.BallotBoxID, 0, len(context.VerificationCardSetContexts))
	for id := range context.VerificationCardSetContexts {
		ids = append(ids, types.BallotBoxID(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func encryptionParametersSignature(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		loc := c.Location().WithFile(string(cc.ID))
		payload, err := cc.EncryptionParameters()
		if err != nil {
			c.AppendError(loc, err)
			continue
		}
		verification.VerifySignature(c, loc, payload)
	}
	return nil
}

func shuffleProofSignature(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		for _, boxID := range boxIDs {
			loc := c.Location().WithFile(fmt.Sprintf("%s/%s", cc.ID, boxID))
			payload, err := cc.ShuffleProof(boxID)
			if err != nil {
				c.AppendError(loc, err)
				continue
			}
			verification.VerifySignature(c, loc, payload)
		}
	}
	return nil
}

func decryptionProofSignature(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		for _, boxID := range boxIDs {
			loc := c.Location().WithFile(fmt.Sprintf("%s/%s", cc.ID, boxID))
			payload, err := cc.DecryptionProof(boxID)
			if err != nil {
				c.AppendError(loc, err)
				continue
			}
			verification.VerifySignature(c, loc, payload)
		}
	}
	return nil
}

// encryptionParameterConsistency returns a Verifier asserting that field
// (selected by get) is identical across every control component's
// encryption parameters, reporting every deviating component rather than
// stopping at the first mismatch (spec.md §4.4 Consistency shape).
func encryptionParameterConsistency(field string, get func(dataset.EncryptionParameters) types.HexBytes) catalog.Verifier {
	return func(c catalog.VerificationContext) error {
		setup, err := c.Dataset().Setup()
		if err != nil {
			c.AppendError(c.Location(), err)
			return nil
		}
		components := setup.ControlComponents()
		if len(components) == 0 {
			return nil
		}

		var reference types.HexBytes
		var referenceID string
		for i, cc := range components {
			payload, err := cc.EncryptionParameters()
			if err != nil {
				c.AppendError(c.Location().WithFile(string(cc.ID)), err)
				continue
			}
			value := get(payload.Content)
			if i == 0 || referenceID == "" {
				reference = value
				referenceID = string(cc.ID)
				continue
			}
			if value.String() != reference.String() {
				c.AppendFailure(c.Location().WithFile(string(cc.ID)).WithField(field),
					"control component %s has %s=%s, expected %s (matching %s)", cc.ID, field, value, reference, referenceID)
			}
		}
		return nil
	}
}

func controlComponentCountConsistency(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	const expected = 4
	if got := len(setup.ControlComponents()); got != expected {
		c.AppendFailure(c.Location(), "found %d control components, expected %d", got, expected)
	}
	return nil
}

func shuffleProofShapeIntegrity(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		boxIDs := boxIDs
		cc := cc
		c.ParallelFor(c.Context(), len(boxIDs), 8, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				boxID := boxIDs[i]
				loc := c.Location().WithFile(fmt.Sprintf("%s/%s", cc.ID, boxID))
				payload, err := cc.ShuffleProof(boxID)
				if err != nil {
					c.AppendError(loc, err)
					continue
				}
				shape := primitives.SigmaProof{Commitments: payload.Content.Commitments, Responses: payload.Content.Responses}
				if !primitives.VerifyShape(shape) {
					c.AppendFailure(loc, "shuffle proof has malformed commitment/response shape")
				}
			}
		})
	}
	return nil
}

func decryptionProofShapeIntegrity(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		for _, boxID := range boxIDs {
			loc := c.Location().WithFile(fmt.Sprintf("%s/%s", cc.ID, boxID))
			payload, err := cc.DecryptionProof(boxID)
			if err != nil {
				c.AppendError(loc, err)
				continue
			}
			shape := primitives.SigmaProof{Commitments: payload.Content.Commitments, Responses: payload.Content.Responses}
			if !primitives.VerifyShape(shape) {
				c.AppendFailure(loc, "decryption proof has malformed commitment/response shape")
			}
		}
	}
	return nil
}

func allControlComponentsPresent(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	if len(setup.ControlComponents()) == 0 {
		c.AppendFailure(c.Location(), "no control components found in setup tree")
	}
	return nil
}

func ballotBoxArtifactsComplete(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, cc := range setup.ControlComponents() {
		for _, boxID := range boxIDs {
			loc := c.Location().WithFile(fmt.Sprintf("%s/%s", cc.ID, boxID))
			if _, err := cc.ShuffleProof(boxID); err != nil {
				c.AppendFailure(loc, "missing shuffle proof: %v", err)
			}
			if _, err := cc.DecryptionProof(boxID); err != nil {
				c.AppendFailure(loc, "missing decryption proof: %v", err)
			}
		}
	}
	return nil
}

func shuffleProofDistinctness(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, boxID := range boxIDs {
		seen := make(map[string]types.ControlComponentID)
		for _, cc := range setup.ControlComponents() {
			payload, err := cc.ShuffleProof(boxID)
			if err != nil {
				continue
			}
			key := fmt.Sprintf("%v", payload.Content.Commitments)
			if owner, ok := seen[key]; ok {
				c.AppendFailure(c.Location().WithFile(string(boxID)),
					"control components %s and %s produced identical shuffle proof commitments", owner, cc.ID)
				continue
			}
			seen[key] = cc.ID
		}
	}
	return nil
}

func decryptionProofDistinctness(c catalog.VerificationContext) error {
	setup, err := c.Dataset().Setup()
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	boxIDs, err := ballotBoxIDs(c.Dataset())
	if err != nil {
		c.AppendError(c.Location(), err)
		return nil
	}
	for _, boxID := range boxIDs {
		seen := make(map[string]types.ControlComponentID)
		for _, cc := range setup.ControlComponents() {
			payload, err := cc.DecryptionProof(boxID)
			if err != nil {
				continue
			}
			key := fmt.Sprintf("%v", payload.Content.Commitments)
			if owner, ok := seen[key]; ok {
				c.AppendFailure(c.Location().WithFile(string(boxID)),
					"control components %s and %s produced identical decryption proof commitments", owner, cc.ID)
				continue
			}
			seen[key] = cc.ID
		}
	}
	return nil
}
