// Package dataset is the typed, lazily-loaded, memoized view over an
// extracted dataset directory tree (C1). It owns the directory schema and
// per-file lifetime only: binary encodings, XML parsing beyond raw bytes,
// and the cryptographic primitives that validate signatures are left to
// the trust and ech0222 packages.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vocdoni/evote-verifier/types"
)

// slot is a single double-checked-memoization cell: the first caller to
// request its value runs load and every caller, concurrent or later, sees
// the same result — including a sticky error, which is never retried.
// This is the mechanism behind every C1 invariant: concurrent-safe,
// parse-once, sticky-on-error.
type slot[T any] struct {
	mu    sync.Mutex
	ready bool
	value T
	err   error
}

func (s *slot[T]) get(load func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		s.value, s.err = load()
		s.ready = true
	}
	return s.value, s.err
}

// Dataset is an immutable, read-only view over one extracted dataset root.
// A Dataset is safe for concurrent use by multiple verifications; every
// accessor below synchronizes its own lazy-init and cache internally.
type Dataset struct {
	root     string
	hasSetup bool
	hasTally bool

	context *slot[*ContextDocument]
	setup   *slot[*SetupTree]
	tally   *slot[*TallyTree]
}

// Open validates the fixed dataset schema (spec §6: context/ plus exactly
// one of setup/ or tally/) and returns a Dataset over it. It does not parse
// any payload eagerly.
func Open(root string) (*Dataset, error) {
	info, err := os.Stat(filepath.Join(root, "context"))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("dataset %q: missing context/ directory", root)
	}

	setupInfo, setupErr := os.Stat(filepath.Join(root, "setup"))
	hasSetup := setupErr == nil && setupInfo.IsDir()

	tallyInfo, tallyErr := os.Stat(filepath.Join(root, "tally"))
	hasTally := tallyErr == nil && tallyInfo.IsDir()

	if hasSetup == hasTally {
		return nil, fmt.Errorf("dataset %q: expected exactly one of setup/ or tally/, found setup=%v tally=%v", root, hasSetup, hasTally)
	}

	return &Dataset{
		root:     root,
		hasSetup: hasSetup,
		hasTally: hasTally,
		context:  &slot[*ContextDocument]{},
		setup:    &slot[*SetupTree]{},
		tally:    &slot[*TallyTree]{},
	}, nil
}

// Root returns the dataset's root directory.
func (d *Dataset) Root() string {
	return d.root
}

// Phase reports which phase this dataset is valid for, derived from which
// sub-tree is present.
func (d *Dataset) Phase() types.Phase {
	if d.hasSetup {
		return types.PhaseSetup
	}
	return types.PhaseTally
}

// HasSetup reports whether this dataset carries a setup/ sub-tree.
func (d *Dataset) HasSetup() bool { return d.hasSetup }

// HasTally reports whether this dataset carries a tally/ sub-tree.
func (d *Dataset) HasTally() bool { return d.hasTally }

// Context returns the parsed election event context, memoized and sticky
// on error.
func (d *Dataset) Context() (*ContextDocument, error) {
	return d.context.get(func() (*ContextDocument, error) {
		payload, err := readSigned[ContextDocument](filepath.Join(d.root, "context", "electionEventContextPayload.json"))
		if err != nil {
			return nil, err
		}
		return &payload.Content, nil
	})
}

// Setup returns the Setup sub-tree. It errors if this dataset has no
// setup/ directory.
func (d *Dataset) Setup() (*SetupTree, error) {
	if !d.hasSetup {
		return nil, fmt.Errorf("dataset %q has no setup/ sub-tree", d.root)
	}
	return d.setup.get(func() (*SetupTree, error) { return loadSetup(d.root) })
}

// Tally returns the Tally sub-tree. It errors if this dataset has no
// tally/ directory.
func (d *Dataset) Tally() (*TallyTree, error) {
	if !d.hasTally {
		return nil, fmt.Errorf("dataset %q has no tally/ sub-tree", d.root)
	}
	return d.tally.get(func() (*TallyTree, error) { return loadTally(d.root) })
}

// readSigned reads and parses the signed JSON payload at path.
func readSigned[T any](path string) (*SignedPayload[T], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	payload, err := ParseSignedPayload[T](raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return payload, nil
}
