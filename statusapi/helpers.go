package statusapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vocdoni/evote-verifier/log"
)

func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	log.Debugw("status API response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}
