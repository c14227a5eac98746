package handlers

import (
	"net/http"

	"github.com/upb/tender-guardian/utils"
)

// RootResponse describes the service to API consumers
type RootResponse struct {
	Message    string   `json:"message"`
	Version    string   `json:"version"`
	Features   []string `json:"features"`
	Automation string   `json:"automation"`
}

// HandleRoot handles GET /api/v1/
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, RootResponse{
		Message:    "Tender Guardian - Autonomous Procurement System",
		Version:    "2.0",
		Features:   []string{"Auto-Notifications", "Auto-Compliance", "Smart Analytics"},
		Automation: "Built-in (No external tools required)",
	})
}
