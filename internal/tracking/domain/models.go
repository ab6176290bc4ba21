package domain

import "time"

type PointStatus string

const (
	PointMoving    PointStatus = "moving"
	PointStopped   PointStatus = "stopped"
	PointAtPickup  PointStatus = "at_pickup"
	PointAtDropoff PointStatus = "at_dropoff"
	PointIdle      PointStatus = "idle"
)

func ValidPointStatus(s PointStatus) bool {
	switch s {
	case PointMoving, PointStopped, PointAtPickup, PointAtDropoff, PointIdle:
		return true
	}
	return false
}

type Coordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}

// TrackingPoint is one GPS sample from a driver for a delivery. Points are
// append-only and expire after the retention window.
type TrackingPoint struct {
	ID         string      `json:"id"`
	DeliveryID string      `json:"deliveryId"`
	DriverID   string      `json:"driverId"`
	VehicleID  *string     `json:"vehicleId,omitempty"`
	Location   Coordinate  `json:"location"`
	Status     PointStatus `json:"status"`
	Battery    *float64    `json:"batteryLevel,omitempty"`
	Network    string      `json:"networkType,omitempty"`
	RecordedAt time.Time   `json:"timestamp"`
}

type RecordLocationInput struct {
	Location Coordinate
	Status   PointStatus
	Battery  *float64
	Network  string
}

type HistoryFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}
