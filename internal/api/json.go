package api

import (
	"encoding/json"
	"net/http"
)

// Problem is the RFC7807 problem-details body every non-2xx response of the
// solver API uses.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeInvalid reports a request that failed decoding or validation. The
// detail names the violated constraint.
func writeInvalid(w http.ResponseWriter, r *http.Request, title string, err error) {
	writeProblem(w, http.StatusBadRequest, title, err.Error(), r.URL.Path)
}

// writeNotFound reports a missing dataset, run or subscription.
func writeNotFound(w http.ResponseWriter, r *http.Request, title string) {
	writeProblem(w, http.StatusNotFound, title, "", r.URL.Path)
}
