package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"logileet/internal/delivery/app"
	"logileet/internal/delivery/domain"
	"logileet/internal/shared/middleware"
	"logileet/internal/shared/util"
)

type Handler struct {
	service *app.DeliveryService
	logger  *util.Logger
}

func NewHandler(service *app.DeliveryService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth *middleware.Auth) {
	authed := func(next http.HandlerFunc, roles ...string) http.Handler {
		handler := http.Handler(next)
		if len(roles) > 0 {
			handler = middleware.RequireRole(roles...)(handler)
		}
		return auth.Authenticate(handler)
	}

	mux.Handle("POST /api/deliveries", authed(h.Create, domain.RoleCustomer))
	mux.Handle("GET /api/deliveries", authed(h.List))
	mux.Handle("GET /api/deliveries/{id}", authed(h.Get))
	mux.Handle("PUT /api/deliveries/{id}/assign", authed(h.Assign, domain.RoleAdmin))
	mux.Handle("PUT /api/deliveries/{id}/status", authed(h.UpdateStatus, domain.RoleDriver, domain.RoleAdmin))
	mux.Handle("PUT /api/deliveries/{id}/cancel", authed(h.Cancel))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, _ := middleware.IdentityFrom(r.Context())

	var input createDeliveryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		h.logger.Warn("CreateDeliveryHandler", "invalid JSON body: "+err.Error())
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	delivery, err := h.service.Create(r.Context(), id.UserID, input.toInput())
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusCreated, "Delivery request created successfully", map[string]interface{}{"delivery": delivery})
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deliveryID := r.PathValue("id")

	var input assignDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.DriverID == "" || input.VehicleID == "" {
		util.WriteJSONError(w, "driverId and vehicleId are required", http.StatusBadRequest)
		return
	}

	delivery, err := h.service.Assign(r.Context(), deliveryID, input.DriverID, input.VehicleID)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Delivery assigned successfully", map[string]interface{}{"delivery": delivery})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deliveryID := r.PathValue("id")
	id, _ := middleware.IdentityFrom(r.Context())

	var input updateStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.Status == "" {
		util.WriteJSONError(w, "status is required", http.StatusBadRequest)
		return
	}

	delivery, err := h.service.ApplyTransition(r.Context(), deliveryID,
		domain.Status(input.Status), id.UserID, id.Role, input.DriverNotes)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Delivery status updated to "+input.Status, map[string]interface{}{"delivery": delivery})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deliveryID := r.PathValue("id")
	id, _ := middleware.IdentityFrom(r.Context())

	var input cancelDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && err != io.EOF {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if input.Reason == "" {
		input.Reason = "Cancelled by " + id.Role
	}

	delivery, err := h.service.ApplyTransition(r.Context(), deliveryID,
		domain.StatusCancelled, id.UserID, id.Role, input.Reason)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Delivery cancelled successfully", map[string]interface{}{"delivery": delivery})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	delivery, err := h.service.Get(r.Context(), r.PathValue("id"), id.UserID, id.Role)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Delivery details fetched successfully", map[string]interface{}{"delivery": delivery})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())
	q := r.URL.Query()

	filter := domain.ListFilter{
		Status:   domain.Status(q.Get("status")),
		Priority: domain.Priority(q.Get("priority")),
		Page:     atoiOr(q.Get("page"), 1),
		Limit:    atoiOr(q.Get("limit"), 10),
	}

	// Admin may narrow by any customer or driver; other roles are scoped in
	// the service regardless of what they pass.
	if id.Role == domain.RoleAdmin {
		filter.CustomerID = q.Get("customerId")
		filter.DriverID = q.Get("driverId")
	}

	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartDate = &t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndDate = &t
		}
	}

	page, err := h.service.List(r.Context(), id.UserID, id.Role, filter)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Deliveries fetched successfully", page)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
