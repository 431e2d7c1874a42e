package statusapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/evote-verifier/log"
)

// Error mirrors the teacher's api.Error: a typed HTTP error carrying both a
// numeric code (stable for API clients) and the concrete net/http status to
// send.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON implements json.Marshaler.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{Err: e.Err.Error(), Code: e.Code})
}

// Error implements error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Write serializes e as JSON and sends it with its configured HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("status API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// WithErr returns a copy of e with err's message appended.
func (e Error) WithErr(err error) Error {
	return Error{Err: fmt.Errorf("%w: %v", e.Err, err.Error()), Code: e.Code, HTTPstatus: e.HTTPstatus}
}

var (
	ErrMarshalingServerJSONFailed = Error{Err: fmt.Errorf("marshaling server JSON failed"), Code: 5001, HTTPstatus: http.StatusInternalServerError}
	ErrDatasetNotFound            = Error{Err: fmt.Errorf("dataset not found"), Code: 4001, HTTPstatus: http.StatusNotFound}
	ErrUnknownPhase               = Error{Err: fmt.Errorf("unknown phase, expected Setup or Tally"), Code: 4002, HTTPstatus: http.StatusBadRequest}
	ErrUnknownVerificationID      = Error{Err: fmt.Errorf("unknown verification id"), Code: 4003, HTTPstatus: http.StatusNotFound}
	ErrUnknownRunID               = Error{Err: fmt.Errorf("unknown run id"), Code: 4004, HTTPstatus: http.StatusNotFound}
	ErrRunAlreadyInProgress       = Error{Err: fmt.Errorf("a run is already in progress"), Code: 4005, HTTPstatus: http.StatusConflict}
)
