package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/location"
)

type LocationHandler struct {
	store   *location.Store
	timeout time.Duration
}

func NewLocationHandler(store *location.Store, timeout time.Duration) *LocationHandler {
	return &LocationHandler{
		store:   store,
		timeout: timeout,
	}
}

type LocationResponseDTO struct {
	Location    *domain.Location `json:"location"`
	Label       string           `json:"label"`
	FullAddress string           `json:"fullAddress"`
}

// DetectRequestDTO carries what the device reported: either a position or
// the reason it could not produce one.
type DetectRequestDTO struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

type AutoPromptedResponseDTO struct {
	AutoPrompted bool `json:"autoPrompted"`
}

const (
	deviceErrPermissionDenied = "permission_denied"
	deviceErrUnsupported      = "unsupported"
	deviceErrTimeout          = "timeout"
)

func newLocationResponse(loc *domain.Location) LocationResponseDTO {
	return LocationResponseDTO{
		Location:    loc,
		Label:       location.Label(loc),
		FullAddress: location.FormatFullAddress(loc),
	}
}

// GET /api/v1/location
func (h *LocationHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, newLocationResponse(h.store.Load(ctx)))
}

// PUT /api/v1/location
func (h *LocationHandler) SaveLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var loc domain.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if (loc.Lat == nil) != (loc.Lng == nil) {
		respondError(w, http.StatusBadRequest, "invalid_coordinates", "lat and lng must be set together")
		return
	}

	h.store.Save(ctx, loc)
	respondJSON(w, http.StatusOK, newLocationResponse(h.store.Load(ctx)))
}

// DELETE /api/v1/location
func (h *LocationHandler) ClearLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.store.Clear(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/location/detect
func (h *LocationHandler) Detect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req DetectRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	loc, err := h.store.DetectAndSave(ctx, providerFor(req))
	if err != nil {
		handleLocationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newLocationResponse(loc))
}

// GET /api/v1/location/auto-prompted
func (h *LocationHandler) GetAutoPrompted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, AutoPromptedResponseDTO{AutoPrompted: h.store.WasAutoPrompted(ctx)})
}

// POST /api/v1/location/auto-prompted
func (h *LocationHandler) MarkAutoPrompted(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.store.MarkAutoPrompted(ctx)
	respondJSON(w, http.StatusOK, AutoPromptedResponseDTO{AutoPrompted: true})
}

func providerFor(req DetectRequestDTO) location.CoordinateProvider {
	switch req.Error {
	case deviceErrPermissionDenied:
		return location.Failing(location.ErrPermissionDenied)
	case deviceErrUnsupported:
		return location.Failing(location.ErrGeolocationUnsupported)
	case deviceErrTimeout:
		return location.Failing(location.ErrGeolocationTimeout)
	}
	if req.Lat == nil || req.Lng == nil {
		return location.Failing(location.ErrInvalidCoordinates)
	}
	return location.Fixed(domain.Coordinates{Lat: *req.Lat, Lng: *req.Lng})
}

func handleLocationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, "permission_denied", err.Error())
	case errors.Is(err, location.ErrGeolocationUnsupported):
		respondError(w, http.StatusUnprocessableEntity, "geolocation_unsupported", err.Error())
	case errors.Is(err, location.ErrGeolocationTimeout):
		respondError(w, http.StatusGatewayTimeout, "timeout", err.Error())
	case errors.Is(err, location.ErrInvalidCoordinates):
		respondError(w, http.StatusBadRequest, "invalid_coordinates", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
