package domain

import (
	"logileet/internal/shared/apperrors"
)

// transitions is the sole authority for what a delivery status may become.
var transitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusOnRoute, StatusCancelled},
	StatusOnRoute:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AuthorizeTransition decides whether the actor may request the given
// transition on this delivery. It is checked before transition legality, so
// an actor without permission always sees Forbidden regardless of the
// current status.
//
// Policy:
//   - picked_up / on_route / delivered: the assigned driver or an admin.
//   - cancelled: the owning customer only while pending; the assigned driver
//     only while picked_up or on_route; an admin from any state (terminal
//     states are then rejected as invalid transitions).
//   - assigned: never through here; assignment goes through the coordinator.
func AuthorizeTransition(d *Delivery, requested Status, actorID, actorRole string) error {
	switch requested {
	case StatusPickedUp, StatusOnRoute, StatusDelivered:
		if actorRole == RoleAdmin {
			return nil
		}
		if actorRole == RoleDriver && d.DriverID != nil && *d.DriverID == actorID {
			return nil
		}
		return apperrors.ErrForbidden

	case StatusCancelled:
		switch actorRole {
		case RoleAdmin:
			return nil
		case RoleCustomer:
			if d.CustomerID == actorID && d.Status == StatusPending {
				return nil
			}
		case RoleDriver:
			if d.DriverID != nil && *d.DriverID == actorID &&
				(d.Status == StatusPickedUp || d.Status == StatusOnRoute) {
				return nil
			}
		}
		return apperrors.ErrForbidden

	default:
		return apperrors.ErrForbidden
	}
}

// FallbackRoute is the degraded straight-line route used when the routing
// provider is unavailable: the two endpoints, zero distance, 30 minutes.
func FallbackRoute(pickup, dropoff Location) *Route {
	return &Route{
		Waypoints: []Waypoint{
			{Lat: pickup.Latitude, Lng: pickup.Longitude},
			{Lat: dropoff.Latitude, Lng: dropoff.Longitude},
		},
		Distance:          0,
		EstimatedDuration: 30,
	}
}
