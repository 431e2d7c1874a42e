package dataset

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TallyTree is the Tally sub-tree: one subfolder per ballot box plus the
// single official eCH-0222 result document.
type TallyTree struct {
	root        string
	boxDirs     []string
	ech0222Path string

	ech0222 *slot[[]byte]
}

// BallotBoxes lazily iterates the ballot-box subfolders. It never
// materializes the full list of decoded ballots in memory: callers that
// only need the id can stop iterating early without having parsed any
// BallotBox's decoded ballots.
func (t *TallyTree) BallotBoxes() iter.Seq2[*BallotBox, error] {
	return func(yield func(*BallotBox, error) bool) {
		for _, dir := range t.boxDirs {
			if !yield(newBallotBox(dir), nil) {
				return
			}
		}
	}
}

// ECH0222Bytes returns the raw bytes of the official eCH-0222 result
// document, memoized and sticky on error. Parsing into the eCH-0222 schema
// is the ech0222 package's concern, not this one's, to avoid an import
// cycle between dataset and ech0222 (ech0222.Build takes a *TallyTree).
func (t *TallyTree) ECH0222Bytes() ([]byte, error) {
	return t.ech0222.get(func() ([]byte, error) {
		if t.ech0222Path == "" {
			return nil, fmt.Errorf("tally dataset %q: no eCH-0222_*.xml file found", t.root)
		}
		raw, err := os.ReadFile(t.ech0222Path)
		if err != nil {
			return nil, fmt.Errorf("reading eCH-0222 document: %w", err)
		}
		return raw, nil
	})
}

func loadTally(root string) (*TallyTree, error) {
	dir := filepath.Join(root, "tally")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading tally tree: %w", err)
	}

	var boxDirs []string
	var ech0222Path string
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			boxDirs = append(boxDirs, filepath.Join(dir, name))
		case strings.HasPrefix(name, "eCH-0222_") && strings.HasSuffix(name, ".xml"):
			ech0222Path = filepath.Join(dir, name)
		}
	}
	sort.Strings(boxDirs)

	return &TallyTree{
		root:        dir,
		boxDirs:     boxDirs,
		ech0222Path: ech0222Path,
		ech0222:     &slot[[]byte]{},
	}, nil
}
