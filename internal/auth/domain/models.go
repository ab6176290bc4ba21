package domain

import (
	"context"
	"time"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`

	// Never serialized; only the repo layer touches it.
	PasswordHash string `json:"-"`

	// Driver-specific
	LicenseNumber string     `json:"licenseNumber,omitempty"`
	LicenseExpiry *time.Time `json:"licenseExpiry,omitempty"`
	VehicleID     *string    `json:"vehicleAssigned,omitempty"`

	// Driver last-known position, cached from tracking ingest.
	LastLatitude   *float64   `json:"lastLatitude,omitempty"`
	LastLongitude  *float64   `json:"lastLongitude,omitempty"`
	LastLocationAt *time.Time `json:"lastLocationAt,omitempty"`

	// Customer-specific
	Address string `json:"address,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Phone         string
	Role          string
	LicenseNumber string
	LicenseExpiry *time.Time
	Address       string
}

type ProfileUpdate struct {
	Name          string
	Phone         string
	Address       string
	LicenseNumber string
	LicenseExpiry *time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	Update(ctx context.Context, u *User) error
}
