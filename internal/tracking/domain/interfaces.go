package domain

import (
	"context"
	"time"

	deliverydomain "logileet/internal/delivery/domain"
)

type TrackingRepository interface {
	Append(ctx context.Context, p *TrackingPoint) error
	History(ctx context.Context, deliveryID string, f HistoryFilter) ([]TrackingPoint, error)
	Latest(ctx context.Context, deliveryID string) (*TrackingPoint, error)

	// UpdateDriverLocation caches the driver's last known position for
	// cheap "current location" reads.
	UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64, at time.Time) error

	// DeleteOlderThan trims expired points and returns the count removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveryReader is the slice of the delivery store the tracking flows need.
type DeliveryReader interface {
	GetByID(ctx context.Context, id string) (*deliverydomain.Delivery, error)
	ActiveByDriver(ctx context.Context, driverID string) ([]deliverydomain.Delivery, error)
}

type Broadcaster interface {
	ToDelivery(deliveryID, event string, payload interface{})
}
