// Package trust is the boundary adapter to the authenticated-payload trust
// store. It is deliberately thin: the X.509/PKI verification it wraps is an
// out-of-scope collaborator (spec §1) — this package only defines the
// interface verifications call through (Verifier) and a file-backed
// implementation that resolves an authority name to its certificate and
// checks a signature against it. No Σ-protocol or modular-arithmetic
// primitive lives here.
package trust

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/evote-verifier/log"
)

// Result is the three-way outcome of a trust check: the dataset may name an
// authority the trust store has never heard of, which is itself a
// reportable condition distinct from an invalid signature.
type Result int

const (
	// Invalid means the signature does not verify against the authority's
	// certificate.
	Invalid Result = iota
	// Valid means the signature verifies.
	Valid
	// UnknownAuthority means no certificate is registered for the named
	// authority.
	UnknownAuthority
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case UnknownAuthority:
		return "unknown-authority"
	default:
		return "invalid"
	}
}

// Verifier is the interface verifications depend on; it never takes an
// unsigned read, matching the dataset's signed-payload invariant.
type Verifier interface {
	// Verify checks signature over canonical (the canonical signed bytes of
	// a payload, not necessarily the raw file bytes) using the certificate
	// registered for authority.
	Verify(canonical, signature []byte, authority string) (Result, error)
}

// FileStore loads PEM-encoded X.509 certificates from a direct-trust
// directory, keyed by authority name (the file's base name, extension
// stripped), and verifies signatures against their public keys.
type FileStore struct {
	mu           sync.Mutex
	certs        map[string]*x509.Certificate
	fingerprints map[string]string
	err          error
	dir          string
}

// Fingerprint returns the Keccak-256 fingerprint of the certificate
// registered for authority, in the same digest family the teacher module
// uses to identify on-chain addresses, repurposed here as a stable,
// loggable identity for a trust-store certificate. It is not part of
// signature verification; it exists so report sinks and operators can
// cross-reference "which certificate did we actually check against"
// without printing the whole DER blob.
func (f *FileStore) Fingerprint(authority string) (string, bool) {
	if err := f.load(); err != nil {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, ok := f.fingerprints[authority]
	return fp, ok
}

// NewFileStore returns a FileStore rooted at dir. Loading is lazy and
// memoized: the directory is only read on the first Verify or Fingerprint
// call.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// NullVerifier reports every authority as unknown, never an error. It
// exists for drivers run without a configured trust store: every
// Authentication verification then surfaces a reportable Failure instead of
// tripping an Error on a first call to a FileStore with no backing
// directory.
type NullVerifier struct{}

// Verify implements Verifier.
func (NullVerifier) Verify(_, _ []byte, _ string) (Result, error) {
	return UnknownAuthority, nil
}

var _ Verifier = NullVerifier{}

func (f *FileStore) load() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.certs != nil || f.err != nil {
		return f.err
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		f.err = fmt.Errorf("reading trust store %q: %w", f.dir, err)
		return f.err
	}

	certs := make(map[string]*x509.Certificate, len(entries))
	fingerprints := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pem") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			f.err = fmt.Errorf("reading certificate %q: %w", e.Name(), err)
			return f.err
		}
		block, _ := pem.Decode(raw)
		if block == nil {
			f.err = fmt.Errorf("certificate %q is not valid PEM", e.Name())
			return f.err
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			f.err = fmt.Errorf("parsing certificate %q: %w", e.Name(), err)
			return f.err
		}
		authority := strings.TrimSuffix(e.Name(), ".pem")
		certs[authority] = cert
		fingerprints[authority] = ethcrypto.Keccak256Hash(cert.Raw).Hex()
		log.Debugw("loaded trust store certificate", "authority", authority, "fingerprint", fingerprints[authority])
	}
	f.certs = certs
	f.fingerprints = fingerprints
	return nil
}

// Verify implements Verifier.
func (f *FileStore) Verify(canonical, signature []byte, authority string) (Result, error) {
	if err := f.load(); err != nil {
		return Invalid, err
	}

	cert, ok := f.certs[authority]
	if !ok {
		return UnknownAuthority, nil
	}

	switch pub := cert.PublicKey.(type) {
	case *ecdsa.PublicKey:
		return verifyECDSA(pub, canonical, signature), nil
	case *rsa.PublicKey:
		return verifyRSA(pub, canonical, signature), nil
	default:
		return Invalid, fmt.Errorf("authority %q: unsupported public key type %T", authority, cert.PublicKey)
	}
}
