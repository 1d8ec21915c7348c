package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bullwork-fleet/apiserver/internal/services"
	"github.com/bullwork-fleet/apiserver/internal/store"
	"github.com/bullwork-fleet/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// VehicleHandler provides CRUD and assignment endpoints for vehicles.
type VehicleHandler struct {
	vehicleService  *services.VehicleService
	userService     *services.UserService
	documentService *services.DocumentService
}

// NewVehicleHandler constructs a handler. documentService may be nil
// when no storage backend is configured; document routes then 503.
func NewVehicleHandler(
	vehicleService *services.VehicleService,
	userService *services.UserService,
	documentService *services.DocumentService,
) *VehicleHandler {
	return &VehicleHandler{
		vehicleService:  vehicleService,
		userService:     userService,
		documentService: documentService,
	}
}

// VehicleRouter registers vehicle routes on the given router.
// Everything except /my is admin-only; /my is the user console listing.
func VehicleRouter(
	r chi.Router,
	vehicleService *services.VehicleService,
	userService *services.UserService,
	documentService *services.DocumentService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewVehicleHandler(vehicleService, userService, documentService)

	requireAdmin := RequireRole(types.RoleAdmin)

	r.Use(authMiddleware)
	r.With(requireAdmin).Post("/", handler.CreateVehicle)
	r.With(requireAdmin).Get("/", handler.ListVehicles)
	r.With(RequireRole(types.RoleUser)).Get("/my", handler.MyVehicles)
	r.Route("/{vehicleID}", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Put("/", handler.UpdateVehicle)
		r.Delete("/", handler.DeleteVehicle)
		r.Put("/assign", handler.AssignVehicle)
		r.Post("/documents", handler.UploadDocument)
		r.Get("/documents", handler.ListDocuments)
		r.Get("/documents/{documentID}", handler.DownloadDocument)
	})
}

func (h *VehicleHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req VehicleUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Number = strings.TrimSpace(req.Number)
	if req.Name == "" || req.Number == "" {
		writeError(w, http.StatusBadRequest, "Name and number are required")
		return
	}

	vehicle, err := h.vehicleService.Create(r.Context(), types.Vehicle{
		Name:   req.Name,
		Number: req.Number,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Vehicle already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.vehicleService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// MyVehicles lists the vehicles assigned to the caller.
func (h *VehicleHandler) MyVehicles(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	vehicles, err := h.vehicleService.ListAssignedTo(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *VehicleHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req VehicleUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	vehicle, err := h.vehicleService.Update(r.Context(), id, strings.TrimSpace(req.Name), strings.TrimSpace(req.Number))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Vehicle not found")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusBadRequest, "Vehicle number already exists")
		default:
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, VehicleResponse{
		Message: "Vehicle updated successfully",
		Vehicle: vehicle,
	})
}

func (h *VehicleHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.vehicleService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Vehicle deleted successfully"})
}

// AssignVehicle points a vehicle at a user. Both must exist; the check
// runs before the mutation so a failed assignment leaves the vehicle
// unchanged.
func (h *VehicleHandler) AssignVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := parseVehicleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if _, err := h.vehicleService.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if _, err := h.userService.GetByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	vehicle, err := h.vehicleService.Assign(r.Context(), id, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, VehicleResponse{
		Message: "Vehicle assigned successfully",
		Vehicle: vehicle,
	})
}

type VehicleUpsertRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

type AssignRequest struct {
	UserID int `json:"userId"`
}

type VehicleResponse struct {
	Message string        `json:"message"`
	Vehicle types.Vehicle `json:"vehicle"`
}

func parseVehicleID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "vehicleID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid vehicle id")
	}
	return id, nil
}
