package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	deliverydomain "logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/util"
	"logileet/internal/tracking/domain"
)

type TrackingService struct {
	repo       domain.TrackingRepository
	deliveries domain.DeliveryReader
	hub        domain.Broadcaster
	logger     *util.Logger

	retention time.Duration
}

func NewTrackingService(repo domain.TrackingRepository, deliveries domain.DeliveryReader, hub domain.Broadcaster, logger *util.Logger, retentionDays int) *TrackingService {
	return &TrackingService{
		repo:       repo,
		deliveries: deliveries,
		hub:        hub,
		logger:     logger,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// RecordLocation appends a GPS sample from the delivery's assigned driver.
// Samples are accepted only while the delivery is active; the broadcast to
// the delivery room happens after the point is persisted.
func (s *TrackingService) RecordLocation(ctx context.Context, deliveryID, driverID string, input domain.RecordLocationInput) (*domain.TrackingPoint, error) {
	instance := "TrackingService.RecordLocation"
	start := time.Now()

	delivery, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("delivery not found: %s", deliveryID))
		return nil, apperrors.ErrNotFound
	}

	if delivery.DriverID == nil || *delivery.DriverID != driverID {
		s.logger.Warn(instance, fmt.Sprintf("driver %s is not assigned to delivery %s", driverID, deliveryID))
		return nil, apperrors.ErrForbidden
	}

	if !delivery.Status.Active() {
		s.logger.Warn(instance, fmt.Sprintf("delivery %s not trackable in status %s", deliveryID, delivery.Status))
		return nil, fmt.Errorf("%w: cannot record location while delivery is %s", apperrors.ErrInvalidState, delivery.Status)
	}

	if !util.ValidCoordinate(input.Location.Latitude, input.Location.Longitude) {
		return nil, fmt.Errorf("%w: coordinates out of range", apperrors.ErrValidation)
	}
	if input.Status == "" {
		input.Status = domain.PointMoving
	}
	if !domain.ValidPointStatus(input.Status) {
		return nil, fmt.Errorf("%w: invalid tracking status", apperrors.ErrValidation)
	}

	point := &domain.TrackingPoint{
		ID:         uuid.NewString(),
		DeliveryID: deliveryID,
		DriverID:   driverID,
		VehicleID:  delivery.VehicleID,
		Location:   input.Location,
		Status:     input.Status,
		Battery:    input.Battery,
		Network:    input.Network,
		RecordedAt: time.Now(),
	}

	if err := s.repo.Append(ctx, point); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to append tracking point: %w", err))
		return nil, err
	}

	if err := s.repo.UpdateDriverLocation(ctx, driverID, input.Location.Latitude, input.Location.Longitude, point.RecordedAt); err != nil {
		// The point is already persisted; a stale cache is acceptable.
		s.logger.Warn(instance, fmt.Sprintf("failed to cache driver location: %v", err))
	}

	s.hub.ToDelivery(deliveryID, "location-update", map[string]interface{}{
		"deliveryId": deliveryID,
		"location":   point.Location,
		"status":     point.Status,
		"timestamp":  point.RecordedAt,
	})

	s.logger.OK(instance, fmt.Sprintf("location recorded [delivery=%s, driver=%s, lat=%.6f, lng=%.6f, duration_ms=%d]",
		deliveryID, driverID, input.Location.Latitude, input.Location.Longitude, time.Since(start).Milliseconds()))

	return point, nil
}

func (s *TrackingService) authorize(delivery *deliverydomain.Delivery, actorID, actorRole string) error {
	switch actorRole {
	case deliverydomain.RoleAdmin:
		return nil
	case deliverydomain.RoleCustomer:
		if delivery.CustomerID == actorID {
			return nil
		}
	case deliverydomain.RoleDriver:
		if delivery.DriverID != nil && *delivery.DriverID == actorID {
			return nil
		}
	}
	return apperrors.ErrForbidden
}

type History struct {
	Delivery       *deliverydomain.Delivery `json:"delivery"`
	Tracking       []domain.TrackingPoint   `json:"tracking"`
	LatestLocation *domain.TrackingPoint    `json:"latestLocation,omitempty"`
	TotalPoints    int                      `json:"totalPoints"`
}

func (s *TrackingService) GetHistory(ctx context.Context, deliveryID, actorID, actorRole string, f domain.HistoryFilter) (*History, error) {
	delivery, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	if err := s.authorize(delivery, actorID, actorRole); err != nil {
		return nil, err
	}

	if f.Limit < 1 || f.Limit > 1000 {
		f.Limit = 100
	}

	points, err := s.repo.History(ctx, deliveryID, f)
	if err != nil {
		s.logger.Error("TrackingService.GetHistory", err)
		return nil, err
	}

	h := &History{Delivery: delivery, Tracking: points, TotalPoints: len(points)}
	if len(points) > 0 {
		h.LatestLocation = &points[0]
	}
	return h, nil
}

type LiveStatus struct {
	Delivery        *deliverydomain.Delivery `json:"delivery"`
	CurrentLocation *domain.Coordinate       `json:"currentLocation,omitempty"`
	LastUpdate      *time.Time               `json:"lastUpdate,omitempty"`
	DriverStatus    domain.PointStatus       `json:"driverStatus,omitempty"`

	// DistanceToDestination is the straight-line distance in km from the
	// newest sample to the dropoff.
	DistanceToDestination  *float64 `json:"distanceToDestination,omitempty"`
	EstimatedTimeRemaining *int     `json:"estimatedTimeRemaining,omitempty"`
}

// GetLiveStatus returns the delivery snapshot, the newest tracking point and,
// while on_route, the remaining minutes computed as
// max(0, route.estimatedDuration - minutes elapsed since pickup/assignment).
func (s *TrackingService) GetLiveStatus(ctx context.Context, deliveryID, actorID, actorRole string) (*LiveStatus, error) {
	delivery, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	if err := s.authorize(delivery, actorID, actorRole); err != nil {
		return nil, err
	}

	live := &LiveStatus{Delivery: delivery}

	latest, err := s.repo.Latest(ctx, deliveryID)
	if err == nil && latest != nil {
		live.CurrentLocation = &latest.Location
		live.LastUpdate = &latest.RecordedAt
		live.DriverStatus = latest.Status

		dist := util.Haversine(latest.Location.Latitude, latest.Location.Longitude,
			delivery.Dropoff.Latitude, delivery.Dropoff.Longitude)
		live.DistanceToDestination = &dist
	}

	if delivery.Status == deliverydomain.StatusOnRoute && delivery.Route != nil {
		startTime := delivery.ActualPickupTime
		if startTime == nil {
			startTime = delivery.AssignedAt
		}
		if startTime != nil {
			elapsed := int(time.Since(*startTime).Minutes())
			remaining := delivery.Route.EstimatedDuration - elapsed
			if remaining < 0 {
				remaining = 0
			}
			live.EstimatedTimeRemaining = &remaining
		}
	}

	return live, nil
}

type ActiveDelivery struct {
	deliverydomain.Delivery
	CurrentLocation    *domain.Coordinate `json:"currentLocation,omitempty"`
	LastLocationUpdate *time.Time         `json:"lastLocationUpdate,omitempty"`
}

func (s *TrackingService) GetDriverActiveDeliveries(ctx context.Context, driverID string) ([]ActiveDelivery, error) {
	deliveries, err := s.deliveries.ActiveByDriver(ctx, driverID)
	if err != nil {
		s.logger.Error("TrackingService.GetDriverActiveDeliveries", err)
		return nil, err
	}

	result := make([]ActiveDelivery, 0, len(deliveries))
	for _, d := range deliveries {
		entry := ActiveDelivery{Delivery: d}
		if latest, err := s.repo.Latest(ctx, d.ID); err == nil && latest != nil {
			entry.CurrentLocation = &latest.Location
			entry.LastLocationUpdate = &latest.RecordedAt
		}
		result = append(result, entry)
	}
	return result, nil
}

// StartRetentionSweep deletes expired tracking points on an interval until
// the context is cancelled. Postgres has no TTL index, so the append-only
// log is trimmed here.
func (s *TrackingService) StartRetentionSweep(ctx context.Context, interval time.Duration) {
	instance := "TrackingService.RetentionSweep"

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-s.retention)
				deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					s.logger.Error(instance, fmt.Errorf("sweep failed: %w", err))
					continue
				}
				if deleted > 0 {
					s.logger.Info(instance, fmt.Sprintf("deleted %d expired tracking points", deleted))
				}
			}
		}
	}()
}
