package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/log"
	"github.com/vocdoni/evote-verifier/runinfo"
	"github.com/vocdoni/evote-verifier/scheduler"
	"github.com/vocdoni/evote-verifier/types"
	"github.com/vocdoni/evote-verifier/util"
)

// verificationView is the wire shape of one catalog.Descriptor: Body is
// never serialized, it is a function value.
type verificationView struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Phase        types.Phase      `json:"phase"`
	Category     catalog.Category `json:"category"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Status       catalog.Status   `json:"status"`
}

// listVerifications lists every descriptor registered for ?phase=.
// GET /verifications?phase=Setup|Tally
func (a *API) listVerifications(w http.ResponseWriter, r *http.Request) {
	phase, err := parsePhase(r.URL.Query().Get("phase"))
	if err != nil {
		ErrUnknownPhase.WithErr(err).Write(w)
		return
	}

	descriptors := catalog.ByPhase(phase)
	views := make([]verificationView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, verificationView{
			ID: d.ID, Name: d.Name, Phase: d.Phase, Category: d.Category,
			Dependencies: d.Dependencies, Status: d.Status,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	httpWriteJSON(w, views)
}

// runAllRequest is the body of POST /run.
type runAllRequest struct {
	Root    string   `json:"root"`
	Phase   string   `json:"phase"`
	Exclude []string `json:"exclude,omitempty"`
}

// runAllResponse acknowledges an accepted run.
type runAllResponse struct {
	RunID string `json:"runId"`
}

// runAll starts a run over a dataset, returning immediately with a run id
// the client polls via getRun, mirroring the teacher's newProcess/process
// split between a creating POST and a retrieving GET.
// POST /run
func (a *API) runAll(w http.ResponseWriter, r *http.Request) {
	var req runAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error{Err: fmt.Errorf("could not decode request body"), Code: 4000, HTTPstatus: http.StatusBadRequest}.WithErr(err).Write(w)
		return
	}

	phase, err := parsePhase(req.Phase)
	if err != nil {
		ErrUnknownPhase.WithErr(err).Write(w)
		return
	}

	ds, err := dataset.Open(req.Root)
	if err != nil {
		ErrDatasetNotFound.WithErr(err).Write(w)
		return
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		ErrRunAlreadyInProgress.Write(w)
		return
	}
	a.running = true
	runID := fmt.Sprintf("run-%d-%s", time.Now().UnixNano(), util.RandomHex(4))
	a.mu.Unlock()

	go a.execute(runID, ds, phase, req.Exclude)

	w.WriteHeader(http.StatusAccepted)
	httpWriteJSON(w, runAllResponse{RunID: runID})
}

func (a *API) execute(runID string, ds *dataset.Dataset, phase types.Phase, exclude []string) {
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	info, err := scheduler.Run(context.Background(), ds, a.trust, phase, runinfo.Parameters{
		MaxConcurrency: a.maxConcurrency,
		Excluded:       exclude,
	}, nil)
	if err != nil {
		log.Errorw("run failed", "runId", runID, "error", err)
		return
	}

	a.mu.Lock()
	a.runs[runID] = info
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Put(runID, info.Snapshot()); err != nil {
			log.Warnw("failed to persist run", "runId", runID, "error", err)
		}
	}
}

// getRun retrieves the snapshot of a run by id, first from the in-memory
// cache of this process's own runs, falling back to the persisted store if
// configured.
// GET /run/{runId}
func (a *API) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, RunURLParam)

	a.mu.Lock()
	info, ok := a.runs[runID]
	a.mu.Unlock()
	if ok {
		httpWriteJSON(w, info.Snapshot())
		return
	}

	if a.store != nil {
		snapshot, err := a.store.Get(runID)
		if err == nil {
			httpWriteJSON(w, snapshot)
			return
		}
	}

	ErrUnknownRunID.Write(w)
}

func parsePhase(s string) (types.Phase, error) {
	switch strings.ToLower(s) {
	case "setup":
		return types.PhaseSetup, nil
	case "tally":
		return types.PhaseTally, nil
	default:
		return "", fmt.Errorf("got %q, want Setup or Tally", s)
	}
}
