package handler

import "net/http"

// Health handles GET and HEAD /healthz. Offline clients probe this endpoint
// to sample reachability, so it must stay dependency-free and fast.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
