package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusOnRoute   Status = "on_route"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const (
	RoleAdmin    = "admin"
	RoleDriver   = "driver"
	RoleCustomer = "customer"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

type Waypoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Route struct {
	Waypoints []Waypoint `json:"waypoints"`
	// Distance is in meters, EstimatedDuration in minutes.
	Distance          float64 `json:"distance"`
	EstimatedDuration int     `json:"estimatedDuration"`
}

type PackageDetails struct {
	Description         string  `json:"description"`
	Weight              float64 `json:"weight,omitempty"`
	Volume              float64 `json:"volume,omitempty"`
	IsFragile           bool    `json:"isFragile,omitempty"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

type Delivery struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	DriverID   *string `json:"driverId,omitempty"`
	VehicleID  *string `json:"vehicleId,omitempty"`

	Pickup  Location `json:"pickup"`
	Dropoff Location `json:"dropoff"`
	Route   *Route   `json:"route,omitempty"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	Package PackageDetails `json:"packageDetails"`

	ScheduledPickupTime   *time.Time `json:"scheduledPickupTime,omitempty"`
	ScheduledDeliveryTime *time.Time `json:"scheduledDeliveryTime,omitempty"`
	ActualPickupTime      *time.Time `json:"actualPickupTime,omitempty"`
	ActualDeliveryTime    *time.Time `json:"actualDeliveryTime,omitempty"`

	CustomerNotes      string `json:"customerNotes,omitempty"`
	DriverNotes        string `json:"driverNotes,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`

	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	PickedUpAt  *time.Time `json:"pickedUpAt,omitempty"`
	OnRouteAt   *time.Time `json:"onRouteAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActiveStatuses are the states in which a driver or vehicle counts as
// committed: the conflict-free invariant is checked against this set, and
// location samples are accepted only inside it.
var ActiveStatuses = []Status{StatusAssigned, StatusPickedUp, StatusOnRoute}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type CreateDeliveryInput struct {
	Pickup                Location
	Dropoff               Location
	Package               PackageDetails
	Priority              Priority
	ScheduledPickupTime   *time.Time
	ScheduledDeliveryTime *time.Time
	CustomerNotes         string
}

type ListFilter struct {
	CustomerID string
	DriverID   string
	Status     Status
	Priority   Priority
	StartDate  *time.Time
	EndDate    *time.Time
	Page       int
	Limit      int
}

// StatusPatch carries everything a single transition writes. The repository
// applies it conditionally on the expected current status.
type StatusPatch struct {
	Status             Status
	DriverNotes        string
	CustomerNotes      string
	CancellationReason string
	Now                time.Time
}

// UserInfo is the slice of a user account the delivery flows need.
type UserInfo struct {
	ID       string
	Name     string
	Role     string
	IsActive bool
}

// VehicleInfo is the slice of a fleet vehicle the assignment flow needs.
type VehicleInfo struct {
	ID       string
	Number   string
	IsActive bool
}
