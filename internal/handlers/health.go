package handlers

import "net/http"

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
