package handlers

import "net/http"

// Health reports liveness only; it does not touch the store or the provider.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
