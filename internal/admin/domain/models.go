package domain

import (
	"context"
	"time"
)

// UserSummary is the admin-facing view of an account. It carries no
// credentials and no customer address.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`

	VehicleID      *string    `json:"vehicleAssigned,omitempty"`
	LicenseNumber  *string    `json:"licenseNumber,omitempty"`
	LastLatitude   *float64   `json:"lastLatitude,omitempty"`
	LastLongitude  *float64   `json:"lastLongitude,omitempty"`
	LastLocationAt *time.Time `json:"lastLocationAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

type AdminRepository interface {
	ListUsers(ctx context.Context, f UserFilter) ([]UserSummary, int, error)
	AvailableDrivers(ctx context.Context) ([]UserSummary, error)
	SetUserActive(ctx context.Context, userID string, active bool) error
	CountDeliveriesByStatus(ctx context.Context) (map[string]int, error)
}
