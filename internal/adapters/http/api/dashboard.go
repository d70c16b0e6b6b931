package api

import (
	"net/http"
)

// handleDashboard serves the embedded page that renders the live stream.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}
