// SPDX-License-Identifier: MIT
package httpapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the unified response shape every inspection endpoint
// replies with, mirroring the teacher's own API response convention.
type envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{OK: false, Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

const (
	codeNotFound   = "NOT_FOUND"
	codeBadRequest = "BAD_REQUEST"
	codeServer     = "SERVER_ERROR"
)
