package handlers

import (
	"net/http"

	"github.com/bullwork-fleet/apiserver/internal/services"
	"github.com/bullwork-fleet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TelemetryHandler serves mock telemetry readings. Any authenticated
// caller may read any vehicle's telemetry.
type TelemetryHandler struct {
	telemetryService *services.TelemetryService
}

func NewTelemetryHandler(telemetryService *services.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{telemetryService: telemetryService}
}

// TelemetryRouter registers telemetry routes on the given router.
func TelemetryRouter(r chi.Router, telemetryService *services.TelemetryService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTelemetryHandler(telemetryService)

	r.With(authMiddleware).Get("/{vehicleID}", handler.GetTelemetry)
}

func (h *TelemetryHandler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.telemetryService.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, TelemetryResponse{
		VehicleID: id,
		Telemetry: snapshot,
	})
}

type TelemetryResponse struct {
	VehicleID int                     `json:"vehicleId"`
	Telemetry types.TelemetrySnapshot `json:"telemetry"`
}
