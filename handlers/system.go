package handlers

import (
	"log"
	"net/http"

	"github.com/knsh/nvrconsole/nvr"
)

type SystemHandler struct {
	Client *nvr.Client
}

func (sh *SystemHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := sh.Client.SystemStatus(r.Context())
	if err != nil {
		log.Printf("Error fetching system status: %v", err)
		upstreamError(w, err, "status_failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
