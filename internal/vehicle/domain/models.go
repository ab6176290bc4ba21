package domain

import (
	"context"
	"time"
)

type Vehicle struct {
	ID             string  `json:"id"`
	VehicleNumber  string  `json:"vehicleNumber"`
	Type           string  `json:"type"`
	Brand          string  `json:"vehicleBrand,omitempty"`
	Model          string  `json:"vehicleModel,omitempty"`
	CapacityWeight float64 `json:"capacityWeight,omitempty"`
	CapacityVolume float64 `json:"capacityVolume,omitempty"`
	IsActive       bool    `json:"isActive"`
	IsAvailable    bool    `json:"isAvailable"`

	CurrentDriverID *string `json:"currentDriver,omitempty"`

	RegistrationExpiry *time.Time `json:"registrationExpiry,omitempty"`
	InsuranceExpiry    *time.Time `json:"insuranceExpiry,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

type CreateVehicleInput struct {
	VehicleNumber      string
	Type               string
	Brand              string
	Model              string
	CapacityWeight     float64
	CapacityVolume     float64
	RegistrationExpiry *time.Time
	InsuranceExpiry    *time.Time
}

type UpdateVehicleInput struct {
	VehicleNumber  *string
	Type           *string
	Brand          *string
	Model          *string
	CapacityWeight *float64
	CapacityVolume *float64
	IsActive       *bool
	IsAvailable    *bool
}

type ListFilter struct {
	Type        string
	IsActive    *bool
	IsAvailable *bool
	Search      string
	Page        int
	Limit       int
}

// DriverInfo is the slice of a user account the fleet flows need.
type DriverInfo struct {
	ID        string
	Role      string
	IsActive  bool
	VehicleID *string
}

type VehicleRepository interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id string) (*Vehicle, error)
	GetByNumber(ctx context.Context, number string) (*Vehicle, error)
	List(ctx context.Context, f ListFilter) ([]Vehicle, int, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, id string) error

	// BindDriver / UnbindDriver keep both sides of the driver↔vehicle
	// relation consistent in a single transaction.
	BindDriver(ctx context.Context, vehicleID, driverID string) error
	UnbindDriver(ctx context.Context, vehicleID, driverID string) error

	GetDriver(ctx context.Context, driverID string) (*DriverInfo, error)
}
