// Package primitives is the narrow boundary surface onto the
// cryptographic-primitives collaborator that spec.md §1 places explicitly
// out of scope: modular exponentiation, Pedersen commitments, the
// Σ-protocol verifier itself, and hash-to-group. Nothing in this package
// claims to implement those primitives; it only defines the shape a real
// implementation would fill and performs the structural checks that are
// in scope (shape of a proof, not the arithmetic behind it) so that
// Integrity-category verifications have something concrete to call while
// the actual math lives in the collaborator named by spec.md.
package primitives

import "github.com/vocdoni/evote-verifier/types"

// SigmaProof is the commitment/response pair shape shared by Schnorr,
// plaintext-equality, and shuffle proofs (spec.md §4.4 Integrity shape).
type SigmaProof struct {
	Commitments []types.HexBytes
	Responses   []types.HexBytes
}

// VerifyShape reports whether proof has the structural shape a valid
// Σ-proof must have (equal, non-zero commitment/response counts, every
// element non-empty). It is not a cryptographic verification: the actual
// check that the responses satisfy the Σ-protocol relation against the
// commitments is the out-of-scope primitives collaborator's job. This
// function exists so Integrity verifications can report a locatable
// Failure for the class of corruption they can detect without that
// collaborator (missing or truncated proof arrays, mismatched
// commitment/response counts, empty elements) without silently
// treating every proof as valid.
func VerifyShape(proof SigmaProof) bool {
	if len(proof.Commitments) == 0 || len(proof.Commitments) != len(proof.Responses) {
		return false
	}
	for i := range proof.Commitments {
		if len(proof.Commitments[i]) == 0 || len(proof.Responses[i]) == 0 {
			return false
		}
	}
	return true
}
