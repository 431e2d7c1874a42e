package trust

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
)

// verifyECDSA checks an ASN.1 DER-encoded ECDSA signature over the SHA-256
// digest of canonical, the encoding the signed-payload convention uses.
func verifyECDSA(pub *ecdsa.PublicKey, canonical, signature []byte) Result {
	digest := sha256.Sum256(canonical)
	if ecdsa.VerifyASN1(pub, digest[:], signature) {
		return Valid
	}
	return Invalid
}

// verifyRSA checks an RSA signature over the SHA-256 digest of canonical,
// trying PKCS#1 v1.5 first (the common case for the authorities this
// verifier deals with) and falling back to PSS.
func verifyRSA(pub *rsa.PublicKey, canonical, signature []byte) Result {
	digest := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], signature); err == nil {
		return Valid
	}
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, nil); err == nil {
		return Valid
	}
	return Invalid
}
