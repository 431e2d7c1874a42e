package statusapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/runinfo"
	"github.com/vocdoni/evote-verifier/trust"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	a := &API{
		trust:          trust.NullVerifier{},
		maxConcurrency: 2,
		runs:           make(map[string]*runinfo.RunInformation),
	}
	a.initRouter()
	return a
}

func writeMinimalTallyDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "context"), 0o755))
	contextJSON := `{
		"contestIdentification": "contest-1",
		"verificationCardSetContexts": {}, "authorizations": {}, "votations": {}, "electionGroups": {},
		"signature": "0xdead", "authenticatingAuthority": "EA"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "context", "electionEventContextPayload.json"), []byte(contextJSON), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tally"), 0o755))
	return root
}

func TestListVerificationsFiltersByPhaseAndSorts(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/verifications?phase=Tally", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var views []verificationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.NotEmpty(t, views)
	for _, v := range views {
		require.Equal(t, "Tally", string(v.Phase))
	}
	for i := 1; i < len(views); i++ {
		require.LessOrEqual(t, views[i-1].ID, views[i].ID)
	}
}

func TestListVerificationsRejectsUnknownPhase(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/verifications?phase=bogus", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunAllAcceptsAndGetRunEventuallyServesSnapshot(t *testing.T) {
	a := newTestAPI(t)
	root := writeMinimalTallyDataset(t)

	body, err := json.Marshal(runAllRequest{Root: root, Phase: "Tally"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp runAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/run/"+resp.RunID, nil)
		rec := httptest.NewRecorder()
		a.Router().ServeHTTP(rec, req)
		return rec.Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunAllRejectsUnknownDataset(t *testing.T) {
	a := newTestAPI(t)

	body, err := json.Marshal(runAllRequest{Root: "/does/not/exist", Phase: "Tally"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAllRejectsConcurrentRun(t *testing.T) {
	a := newTestAPI(t)
	a.running = true

	body, err := json.Marshal(runAllRequest{Root: writeMinimalTallyDataset(t), Phase: "Tally"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusAccepted, rec.Code)
}

func TestGetRunUnknownIDReturnsError(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/run/nonexistent", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.NotEqual(t, http.StatusOK, rec.Code)
}
