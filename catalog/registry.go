package catalog

import "github.com/vocdoni/evote-verifier/types"

// rosterEntry describes one catalog entry: id, name, phase, category and
// dependencies. Verification bodies are wired in by the verification/setup
// and verification/tally packages' init() functions via Register; this file
// itself registers only the ids in notImplementedIDs, each with a nil Body
// and StatusNotImplemented. Any other id appears in listVerifications only
// once a phase package has registered it.
type rosterEntry struct {
	id       string
	name     string
	phase    types.Phase
	category Category
	deps     []string
}

// notImplementedIDs are registered with a nil body: spec.md §9 Open
// Question (b) requires these to appear in listVerifications with the
// "Not Implemented" status sentinel, but they need not execute.
var notImplementedIDs = map[string]bool{
	"08.02": true, "08.03": true, "08.04": true, "08.05": true,
	"08.06": true, "08.07": true, "08.08": true, "08.09": true,
	"10.01": true, "10.02": true,
}

// RegisterPlaceholder registers id as a roster entry with no body, for ids
// named by the source enumeration but not (yet, or ever) implemented. It
// is idempotent: calling it for an id a phase package has already
// registered with a real Body is a no-op, so init() ordering between this
// package and verification/{setup,tally} does not matter.
func RegisterPlaceholder(id, name string, phase types.Phase, category Category, deps ...string) {
	if _, exists := registry[id]; exists {
		return
	}
	Register(Descriptor{
		ID:           id,
		Name:         name,
		Phase:        phase,
		Category:     category,
		Dependencies: deps,
		Status:       StatusNotImplemented,
	})
}

func init() {
	for id := range notImplementedIDs {
		phase := types.PhaseTally
		RegisterPlaceholder(id, id+" (not implemented)", phase, Evidence)
	}
}
