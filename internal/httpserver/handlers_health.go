package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/pharmaplaza/server/internal/logger"
	"github.com/pharmaplaza/server/pkg/responders"
)

const livenessMessage = "PharmaPlaza is running..."

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	responders.Text(w, http.StatusOK, livenessMessage)
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// health pings the database with a short deadline. A failed ping reports
// degraded with 503 so load balancers drain the instance.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   time.Since(serverStartTime).Round(time.Second).String(),
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		log := logger.FromContext(r.Context())
		log.Warn().Err(err).Msg("health.database_unreachable")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}
	responders.JSON(w, status, resp)
}
