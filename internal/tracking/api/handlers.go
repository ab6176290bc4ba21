package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	deliverydomain "logileet/internal/delivery/domain"
	"logileet/internal/shared/middleware"
	"logileet/internal/shared/util"
	"logileet/internal/tracking/app"
	"logileet/internal/tracking/domain"
)

type Handler struct {
	service *app.TrackingService
	logger  *util.Logger
}

func NewHandler(service *app.TrackingService, logger *util.Logger) *Handler {
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

	mux.Handle("POST /api/tracking/deliveries/{id}/location", authed(h.RecordLocation, deliverydomain.RoleDriver))
	mux.Handle("GET /api/tracking/deliveries/{id}", authed(h.GetHistory))
	mux.Handle("GET /api/tracking/deliveries/{id}/live", authed(h.GetLiveStatus))
	mux.Handle("GET /api/tracking/driver/active-deliveries", authed(h.GetActiveDeliveries, deliverydomain.RoleDriver))
}

type recordLocationRequest struct {
	Location     domain.Coordinate `json:"location"`
	Status       string            `json:"status,omitempty"`
	BatteryLevel *float64          `json:"batteryLevel,omitempty"`
	NetworkType  string            `json:"networkType,omitempty"`
}

func (h *Handler) RecordLocation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deliveryID := r.PathValue("id")
	id, _ := middleware.IdentityFrom(r.Context())

	var input recordLocationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	point, err := h.service.RecordLocation(r.Context(), deliveryID, id.UserID, domain.RecordLocationInput{
		Location: input.Location,
		Status:   domain.PointStatus(input.Status),
		Battery:  input.BatteryLevel,
		Network:  input.NetworkType,
	})
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusCreated, "Location updated successfully", map[string]interface{}{"tracking": point})
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	id, _ := middleware.IdentityFrom(r.Context())
	q := r.URL.Query()

	filter := domain.HistoryFilter{Limit: 100}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("startTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.StartTime = &t
		}
	}
	if v := q.Get("endTime"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.EndTime = &t
		}
	}

	history, err := h.service.GetHistory(r.Context(), deliveryID, id.UserID, id.Role, filter)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Tracking data fetched successfully", history)
}

func (h *Handler) GetLiveStatus(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.PathValue("id")
	id, _ := middleware.IdentityFrom(r.Context())

	live, err := h.service.GetLiveStatus(r.Context(), deliveryID, id.UserID, id.Role)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Live delivery status fetched successfully", live)
}

func (h *Handler) GetActiveDeliveries(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	active, err := h.service.GetDriverActiveDeliveries(r.Context(), id.UserID)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Active deliveries fetched successfully", map[string]interface{}{
		"activeDeliveries": active,
		"totalActive":      len(active),
	})
}
