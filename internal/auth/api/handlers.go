package api

import (
	"encoding/json"
	"net/http"
	"time"

	"logileet/internal/auth/app"
	"logileet/internal/auth/domain"
	"logileet/internal/shared/middleware"
	"logileet/internal/shared/util"
)

type Handler struct {
	service *app.AuthService
	logger  *util.Logger
}

func NewHandler(service *app.AuthService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth *middleware.Auth) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.Handle("POST /api/auth/logout", auth.Authenticate(http.HandlerFunc(h.Logout)))
	mux.Handle("GET /api/auth/me", auth.Authenticate(http.HandlerFunc(h.Me)))
	mux.Handle("PUT /api/auth/profile", auth.Authenticate(http.HandlerFunc(h.UpdateProfile)))
}

type registerRequest struct {
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Password      string     `json:"password"`
	Phone         string     `json:"phone"`
	Role          string     `json:"role,omitempty"`
	LicenseNumber string     `json:"licenseNumber,omitempty"`
	LicenseExpiry *time.Time `json:"licenseExpiry,omitempty"`
	Address       string     `json:"address,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input registerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Register(r.Context(), domain.RegisterInput{
		Name:          input.Name,
		Email:         input.Email,
		Password:      input.Password,
		Phone:         input.Phone,
		Role:          input.Role,
		LicenseNumber: input.LicenseNumber,
		LicenseExpiry: input.LicenseExpiry,
		Address:       input.Address,
	})
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"user":        user,
		"accessToken": token,
	})
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var input loginRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "User logged in successfully", map[string]interface{}{
		"user":        user,
		"accessToken": token,
	})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

// Logout is stateless on the server; the client discards its token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	util.WriteData(w, http.StatusOK, "User logged out successfully", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	user, err := h.service.GetProfile(r.Context(), id.UserID)
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "User profile retrieved successfully", user)
}

type profileUpdateRequest struct {
	Name          string     `json:"name,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Address       string     `json:"address,omitempty"`
	LicenseNumber string     `json:"licenseNumber,omitempty"`
	LicenseExpiry *time.Time `json:"licenseExpiry,omitempty"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFrom(r.Context())

	var input profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), id.UserID, domain.ProfileUpdate{
		Name:          input.Name,
		Phone:         input.Phone,
		Address:       input.Address,
		LicenseNumber: input.LicenseNumber,
		LicenseExpiry: input.LicenseExpiry,
	})
	if err != nil {
		util.WriteDomainError(w, err)
		return
	}

	util.WriteData(w, http.StatusOK, "Profile updated successfully", user)
}
