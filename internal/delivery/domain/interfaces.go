package domain

import "context"

type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id string) (*Delivery, error)
	List(ctx context.Context, f ListFilter) ([]Delivery, int, error)

	// UpdateStatus applies a transition patch only if the delivery is still
	// in expectedFrom, returning the updated snapshot. Zero rows affected
	// means the delivery moved concurrently.
	UpdateStatus(ctx context.Context, id string, expectedFrom Status, patch StatusPatch) (*Delivery, error)

	// AssignIfFree binds driver and vehicle to a pending delivery as one
	// atomic unit: the conflict check against other active deliveries and
	// the write happen inside a single transaction.
	AssignIfFree(ctx context.Context, id, driverID, vehicleID string, route *Route) (*Delivery, error)

	// FindActiveConflict returns the active delivery (if any) holding the
	// driver or the vehicle, used to name the conflicting resource.
	FindActiveConflict(ctx context.Context, driverID, vehicleID, excludeID string) (*Delivery, error)

	GetUser(ctx context.Context, id string) (*UserInfo, error)
	GetVehicle(ctx context.Context, id string) (*VehicleInfo, error)
}

// Broadcaster fans events out to live subscribers. Implementations must be
// fire-and-forget: a failed or absent subscriber never fails the mutation.
type Broadcaster interface {
	ToDelivery(deliveryID, event string, payload interface{})
	ToUser(userID, event string, payload interface{})
	ToAdmins(event string, payload interface{})
}

// Publisher relays lifecycle events to the message broker, best-effort.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// RouteProvider computes a road route between two points. Callers must
// degrade to FallbackRoute when it fails.
type RouteProvider interface {
	ComputeRoute(ctx context.Context, pickup, dropoff Location) (*Route, error)
}
