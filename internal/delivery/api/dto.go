package api

import (
	"time"

	"logileet/internal/delivery/domain"
)

type locationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

type packageDTO struct {
	Description         string  `json:"description"`
	Weight              float64 `json:"weight,omitempty"`
	Volume              float64 `json:"volume,omitempty"`
	IsFragile           bool    `json:"isFragile,omitempty"`
	SpecialInstructions string  `json:"specialInstructions,omitempty"`
}

type createDeliveryRequest struct {
	Pickup                locationDTO `json:"pickup"`
	Dropoff               locationDTO `json:"dropoff"`
	PackageDetails        packageDTO  `json:"packageDetails"`
	Priority              string      `json:"priority,omitempty"`
	ScheduledPickupTime   *time.Time  `json:"scheduledPickupTime,omitempty"`
	ScheduledDeliveryTime *time.Time  `json:"scheduledDeliveryTime,omitempty"`
	CustomerNotes         string      `json:"customerNotes,omitempty"`
}

func (r createDeliveryRequest) toInput() domain.CreateDeliveryInput {
	return domain.CreateDeliveryInput{
		Pickup:  domain.Location{Latitude: r.Pickup.Latitude, Longitude: r.Pickup.Longitude, Address: r.Pickup.Address},
		Dropoff: domain.Location{Latitude: r.Dropoff.Latitude, Longitude: r.Dropoff.Longitude, Address: r.Dropoff.Address},
		Package: domain.PackageDetails{
			Description:         r.PackageDetails.Description,
			Weight:              r.PackageDetails.Weight,
			Volume:              r.PackageDetails.Volume,
			IsFragile:           r.PackageDetails.IsFragile,
			SpecialInstructions: r.PackageDetails.SpecialInstructions,
		},
		Priority:              domain.Priority(r.Priority),
		ScheduledPickupTime:   r.ScheduledPickupTime,
		ScheduledDeliveryTime: r.ScheduledDeliveryTime,
		CustomerNotes:         r.CustomerNotes,
	}
}

type assignDeliveryRequest struct {
	DriverID  string `json:"driverId"`
	VehicleID string `json:"vehicleId"`
}

type updateStatusRequest struct {
	Status      string `json:"status"`
	DriverNotes string `json:"driverNotes,omitempty"`
}

type cancelDeliveryRequest struct {
	Reason string `json:"reason,omitempty"`
}
