package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"logileet/internal/shared/middleware"
	"logileet/internal/shared/util"
	"logileet/internal/vehicle/app"
	"logileet/internal/vehicle/domain"
)

type Handler struct {
	service *app.VehicleService
	logger  *util.Logger
}

func NewHandler(service *app.VehicleService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth *middleware.Auth) {
	admin := func(next http.HandlerFunc) http.Handler {
		return auth.Authenticate(middleware.RequireRole("admin")(next))
	}

	mux.Handle("POST /api/vehicles", admin(h.Create))
	mux.Handle("GET /api/vehicles", admin(h.List))
	mux.Handle("GET /api/vehicles/{id}", admin(h.Get))
	mux.Handle("PUT /api/vehicles/{id}", admin(h.Update))
	mux.Handle("DELETE /api/vehicles/{id}", admin(h.Delete))
	mux.Handle("PUT /api/vehicles/{id}/assign-driver", admin(h.AssignDriver))
	mux.Handle("PUT /api/vehicles/{id}/unassign-driver", admin(h.UnassignDriver))
}

type createVehicleRequest struct {
	VehicleNumber      string     `json:"vehicleNumber"`
	Type               string     `json:"type"`
	Brand              string     `json:"vehicleBrand,omitempty"`
	Model              string     `json:"vehicleModel,omitempty"`
	CapacityWeight     float64    `json:"capacityWeight,omitempty"`
	CapacityVolume     float64    `json:"capacityVolume,omitempty"`
	RegistrationExpiry *time.Time `json:"registrationExpiry,omitempty"`
	InsuranceExpiry    *time.Time `json:"insuranceExpiry,omitempty"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input createVehicleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	vehicle, err := h.service.Create(r.Context(), domain.CreateVehicleInput{
		VehicleNumber:      input.VehicleNumber,
		Type:               input.Type,
		Brand:              input.Brand,
		Model:              input.Model,
		CapacityWeight:     input.CapacityWeight,
		CapacityVolume:     input.CapacityVolume,
		RegistrationExpiry: input.RegistrationExpiry,
		InsuranceExpiry:    input.InsuranceExpiry,
	})
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusCreated, "Vehicle created successfully", map[string]interface{}{"vehicle": vehicle})
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Vehicle details fetched successfully", map[string]interface{}{"vehicle": vehicle})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.ListFilter{
		Type:   q.Get("type"),
		Search: q.Get("search"),
		Page:   atoiOr(q.Get("page"), 1),
		Limit:  atoiOr(q.Get("limit"), 20),
	}
	if v := q.Get("isActive"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}
	if v := q.Get("isAvailable"); v != "" {
		b := v == "true"
		filter.IsAvailable = &b
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Vehicles fetched successfully", page)
}

type updateVehicleRequest struct {
	VehicleNumber  *string  `json:"vehicleNumber,omitempty"`
	Type           *string  `json:"type,omitempty"`
	Brand          *string  `json:"vehicleBrand,omitempty"`
	Model          *string  `json:"vehicleModel,omitempty"`
	CapacityWeight *float64 `json:"capacityWeight,omitempty"`
	CapacityVolume *float64 `json:"capacityVolume,omitempty"`
	IsActive       *bool    `json:"isActive,omitempty"`
	IsAvailable    *bool    `json:"isAvailable,omitempty"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input updateVehicleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	vehicle, err := h.service.Update(r.Context(), r.PathValue("id"), domain.UpdateVehicleInput{
		VehicleNumber:  input.VehicleNumber,
		Type:           input.Type,
		Brand:          input.Brand,
		Model:          input.Model,
		CapacityWeight: input.CapacityWeight,
		CapacityVolume: input.CapacityVolume,
		IsActive:       input.IsActive,
		IsAvailable:    input.IsAvailable,
	})
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Vehicle updated successfully", map[string]interface{}{"vehicle": vehicle})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Vehicle deleted successfully", nil)
}

type assignDriverRequest struct {
	DriverID string `json:"driverId"`
}

func (h *Handler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input assignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.DriverID == "" {
		util.WriteJSONError(w, "driverId is required", http.StatusBadRequest)
		return
	}

	vehicle, err := h.service.AssignDriver(r.Context(), r.PathValue("id"), input.DriverID)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Driver assigned to vehicle successfully", map[string]interface{}{"vehicle": vehicle})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) UnassignDriver(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	vehicle, err := h.service.UnassignDriver(r.Context(), r.PathValue("id"))
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Driver unassigned from vehicle successfully", map[string]interface{}{"vehicle": vehicle})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
