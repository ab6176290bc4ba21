package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"logileet/internal/admin/app"
	"logileet/internal/admin/domain"
	"logileet/internal/shared/middleware"
	"logileet/internal/shared/util"
)

type Handler struct {
	service *app.AdminService
	logger  *util.Logger
}

func NewHandler(service *app.AdminService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth *middleware.Auth) {
	admin := func(next http.HandlerFunc) http.Handler {
		return auth.Authenticate(middleware.RequireRole("admin")(next))
	}

	mux.Handle("GET /api/admin/users", admin(h.ListUsers))
	mux.Handle("GET /api/admin/drivers/available", admin(h.AvailableDrivers))
	mux.Handle("PUT /api/admin/users/{id}/active", admin(h.SetUserActive))
	mux.Handle("GET /api/admin/dashboard", admin(h.Dashboard))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.UserFilter{
		Role:   q.Get("role"),
		Search: q.Get("search"),
		Page:   atoiOr(q.Get("page"), 1),
		Limit:  atoiOr(q.Get("limit"), 20),
	}
	if v := q.Get("isActive"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}

	page, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Users fetched successfully", page)
}

func (h *Handler) AvailableDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.service.AvailableDrivers(r.Context())
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Available drivers fetched successfully", map[string]interface{}{
		"drivers": drivers,
		"count":   len(drivers),
	})
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive"`
}

func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	var input setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.IsActive == nil {
		util.WriteJSONError(w, "isActive is required", http.StatusBadRequest)
		return
	}

	if err := h.service.SetUserActive(r.Context(), r.PathValue("id"), *input.IsActive); err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "User status updated successfully", nil)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Dashboard fetched successfully", dash)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
