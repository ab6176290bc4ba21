package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/mq"
	"logileet/internal/shared/util"
)

type DeliveryService struct {
	repo   domain.DeliveryRepository
	routes domain.RouteProvider
	hub    domain.Broadcaster
	pub    domain.Publisher
	logger *util.Logger
}

func NewDeliveryService(repo domain.DeliveryRepository, routes domain.RouteProvider, hub domain.Broadcaster, pub domain.Publisher, logger *util.Logger) *DeliveryService {
	return &DeliveryService{repo: repo, routes: routes, hub: hub, pub: pub, logger: logger}
}

func (s *DeliveryService) Create(ctx context.Context, customerID string, input domain.CreateDeliveryInput) (*domain.Delivery, error) {
	instance := "DeliveryService.Create"
	start := time.Now()

	if !util.ValidCoordinate(input.Pickup.Latitude, input.Pickup.Longitude) ||
		!util.ValidCoordinate(input.Dropoff.Latitude, input.Dropoff.Longitude) {
		s.logger.Warn(instance, "invalid pickup or dropoff coordinates")
		return nil, fmt.Errorf("%w: coordinates out of range", apperrors.ErrValidation)
	}
	if input.Pickup.Address == "" || input.Dropoff.Address == "" {
		return nil, fmt.Errorf("%w: pickup and dropoff addresses are required", apperrors.ErrValidation)
	}
	if input.Package.Description == "" {
		return nil, fmt.Errorf("%w: package description is required", apperrors.ErrValidation)
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(input.Priority) {
		return nil, fmt.Errorf("%w: priority must be low, medium, high or urgent", apperrors.ErrValidation)
	}

	now := time.Now()
	d := &domain.Delivery{
		ID:                    uuid.NewString(),
		CustomerID:            customerID,
		Pickup:                input.Pickup,
		Dropoff:               input.Dropoff,
		Status:                domain.StatusPending,
		Priority:              input.Priority,
		Package:               input.Package,
		ScheduledPickupTime:   input.ScheduledPickupTime,
		ScheduledDeliveryTime: input.ScheduledDeliveryTime,
		CustomerNotes:         input.CustomerNotes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Create(ctx, d); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to create delivery: %w", err))
		return nil, err
	}

	s.logger.OK(instance, fmt.Sprintf("delivery created [id=%s, customer=%s, priority=%s, duration_ms=%d]",
		d.ID, customerID, d.Priority, time.Since(start).Milliseconds()))

	return d, nil
}

// ApplyTransition validates and applies one status transition. Checks run in
// a fixed order: existence, then authorization, then transition legality.
// Persistence commits before any event leaves the process, and broadcast
// failures never surface to the caller.
func (s *DeliveryService) ApplyTransition(ctx context.Context, deliveryID string, requested domain.Status, actorID, actorRole, notes string) (*domain.Delivery, error) {
	instance := "DeliveryService.ApplyTransition"
	start := time.Now()

	d, err := s.repo.GetByID(ctx, deliveryID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("delivery not found: %s", deliveryID))
		return nil, apperrors.ErrNotFound
	}

	if err := domain.AuthorizeTransition(d, requested, actorID, actorRole); err != nil {
		s.logger.Warn(instance, fmt.Sprintf("actor %s (%s) not allowed to set %s on delivery %s",
			actorID, actorRole, requested, deliveryID))
		return nil, err
	}

	if !d.Status.CanTransitionTo(requested) {
		s.logger.Warn(instance, fmt.Sprintf("illegal transition %s -> %s on delivery %s", d.Status, requested, deliveryID))
		return nil, &apperrors.TransitionError{From: string(d.Status), To: string(requested)}
	}

	patch := domain.StatusPatch{Status: requested, Now: time.Now()}
	switch actorRole {
	case domain.RoleCustomer:
		patch.CustomerNotes = notes
	default:
		patch.DriverNotes = notes
	}
	if requested == domain.StatusCancelled {
		patch.CancellationReason = notes
	}

	updated, err := s.repo.UpdateStatus(ctx, deliveryID, d.Status, patch)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost a race with a concurrent transition; report against the
			// status that actually won.
			if fresh, ferr := s.repo.GetByID(ctx, deliveryID); ferr == nil {
				return nil, &apperrors.TransitionError{From: string(fresh.Status), To: string(requested)}
			}
		}
		s.logger.Error(instance, fmt.Errorf("failed to update delivery status: %w", err))
		return nil, err
	}

	s.emitStatusChanged(ctx, updated, d.Status)

	s.logger.OK(instance, fmt.Sprintf("delivery %s: %s -> %s by %s (%s), duration_ms=%d",
		deliveryID, d.Status, requested, actorID, actorRole, time.Since(start).Milliseconds()))

	return updated, nil
}

// Assign binds a pending delivery to one driver and one vehicle. The
// conflict check and the write are one atomic unit in the repository; the
// pre-check here exists only to name the conflicting resource.
func (s *DeliveryService) Assign(ctx context.Context, deliveryID, driverID, vehicleID string) (*domain.Delivery, error) {
	instance := "DeliveryService.Assign"
	start := time.Now()

	d, err := s.repo.GetByID(ctx, deliveryID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("delivery not found: %s", deliveryID))
		return nil, apperrors.ErrNotFound
	}
	if d.Status != domain.StatusPending {
		s.logger.Warn(instance, fmt.Sprintf("delivery %s is not pending (status=%s)", deliveryID, d.Status))
		return nil, fmt.Errorf("%w: delivery is not in pending status", apperrors.ErrInvalidState)
	}

	driver, err := s.repo.GetUser(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("%w: driver", apperrors.ErrNotFound)
	}
	if driver.Role != domain.RoleDriver || !driver.IsActive {
		s.logger.Warn(instance, fmt.Sprintf("invalid or inactive driver: %s", driverID))
		return nil, fmt.Errorf("%w: invalid or inactive driver", apperrors.ErrInvalidState)
	}

	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("%w: vehicle", apperrors.ErrNotFound)
	}
	if !vehicle.IsActive {
		s.logger.Warn(instance, fmt.Sprintf("inactive vehicle: %s", vehicleID))
		return nil, fmt.Errorf("%w: invalid or inactive vehicle", apperrors.ErrInvalidState)
	}

	if conflict, err := s.repo.FindActiveConflict(ctx, driverID, vehicleID, deliveryID); err == nil && conflict != nil {
		resource := "vehicle"
		if conflict.DriverID != nil && *conflict.DriverID == driverID {
			resource = "driver"
		}
		s.logger.Warn(instance, fmt.Sprintf("%s already committed to delivery %s", resource, conflict.ID))
		return nil, &apperrors.ConflictError{Resource: resource, Detail: "delivery " + conflict.ID}
	}

	route := s.computeRoute(ctx, d.Pickup, d.Dropoff)

	updated, err := s.repo.AssignIfFree(ctx, deliveryID, driverID, vehicleID, route)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.logger.Warn(instance, fmt.Sprintf("assignment race lost for delivery %s", deliveryID))
			return nil, &apperrors.ConflictError{Resource: "driver or vehicle"}
		}
		s.logger.Error(instance, fmt.Errorf("failed to assign delivery: %w", err))
		return nil, err
	}

	s.emitAssigned(ctx, updated, driver.Name)

	s.logger.OK(instance, fmt.Sprintf("delivery %s assigned [driver=%s, vehicle=%s, duration_ms=%d]",
		deliveryID, driverID, vehicleID, time.Since(start).Milliseconds()))

	return updated, nil
}

// computeRoute asks the external provider and silently degrades to the
// straight-line fallback: a routing outage must never fail an assignment.
func (s *DeliveryService) computeRoute(ctx context.Context, pickup, dropoff domain.Location) *domain.Route {
	instance := "DeliveryService.computeRoute"

	route, err := s.routes.ComputeRoute(ctx, pickup, dropoff)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("routing provider degraded, using fallback: %v", err))
		return domain.FallbackRoute(pickup, dropoff)
	}
	if route == nil || len(route.Waypoints) == 0 {
		s.logger.Warn(instance, "routing provider returned no route, using fallback")
		return domain.FallbackRoute(pickup, dropoff)
	}
	return route
}

func (s *DeliveryService) Get(ctx context.Context, deliveryID, actorID, actorRole string) (*domain.Delivery, error) {
	d, err := s.repo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	switch actorRole {
	case domain.RoleAdmin:
	case domain.RoleCustomer:
		if d.CustomerID != actorID {
			return nil, apperrors.ErrForbidden
		}
	case domain.RoleDriver:
		if d.DriverID == nil || *d.DriverID != actorID {
			return nil, apperrors.ErrForbidden
		}
	default:
		return nil, apperrors.ErrForbidden
	}

	return d, nil
}

type DeliveryPage struct {
	Deliveries []domain.Delivery `json:"deliveries"`
	Page       int               `json:"currentPage"`
	TotalPages int               `json:"totalPages"`
	Total      int               `json:"totalDeliveries"`
}

// List scopes results by the actor's role: customers see their own
// deliveries, drivers the ones assigned to them, admins everything.
func (s *DeliveryService) List(ctx context.Context, actorID, actorRole string, f domain.ListFilter) (*DeliveryPage, error) {
	switch actorRole {
	case domain.RoleCustomer:
		f.CustomerID = actorID
	case domain.RoleDriver:
		f.DriverID = actorID
	case domain.RoleAdmin:
	default:
		return nil, apperrors.ErrForbidden
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	deliveries, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("DeliveryService.List", err)
		return nil, err
	}

	totalPages := (total + f.Limit - 1) / f.Limit
	return &DeliveryPage{Deliveries: deliveries, Page: f.Page, TotalPages: totalPages, Total: total}, nil
}

// --- event fan-out, strictly after persistence ---

func (s *DeliveryService) emitStatusChanged(ctx context.Context, d *domain.Delivery, from domain.Status) {
	message := fmt.Sprintf("Delivery status updated to %s", d.Status)
	payload := map[string]interface{}{
		"deliveryId": d.ID,
		"status":     d.Status,
		"message":    message,
		"delivery":   d,
		"timestamp":  time.Now().UTC(),
	}

	s.hub.ToDelivery(d.ID, "status-update", payload)
	s.hub.ToDelivery(d.ID, "delivery-status-updated", payload)
	s.hub.ToAdmins("delivery-status-updated", payload)

	if d.Status == domain.StatusCancelled {
		cancelled := map[string]interface{}{
			"deliveryId": d.ID,
			"message":    "Delivery has been cancelled",
			"reason":     d.CancellationReason,
			"delivery":   d,
			"timestamp":  time.Now().UTC(),
		}
		s.hub.ToUser(d.CustomerID, "delivery-cancelled", cancelled)
		s.hub.ToAdmins("delivery-cancelled", cancelled)
	}

	s.relay(ctx, fmt.Sprintf("delivery.status.%s", d.Status), map[string]interface{}{
		"delivery_id": d.ID,
		"from":        from,
		"status":      d.Status,
		"timestamp":   time.Now().UTC(),
	})
}

func (s *DeliveryService) emitAssigned(ctx context.Context, d *domain.Delivery, driverName string) {
	payload := map[string]interface{}{
		"deliveryId": d.ID,
		"message":    "A delivery has been assigned to you",
		"delivery":   d,
	}
	if d.DriverID != nil {
		s.hub.ToUser(*d.DriverID, "delivery-assigned", payload)
	}
	s.hub.ToUser(d.CustomerID, "delivery-assigned", map[string]interface{}{
		"deliveryId": d.ID,
		"message":    fmt.Sprintf("Driver %s has been assigned to your delivery", driverName),
		"delivery":   d,
	})

	s.relay(ctx, "delivery.assigned", map[string]interface{}{
		"delivery_id": d.ID,
		"driver_id":   d.DriverID,
		"vehicle_id":  d.VehicleID,
		"timestamp":   time.Now().UTC(),
	})
}

// relay publishes to the broker; failures are logged and swallowed.
func (s *DeliveryService) relay(ctx context.Context, routingKey string, event interface{}) {
	if s.pub == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.pub.Publish(ctx, mq.StatusExchange, routingKey, body); err != nil {
		s.logger.Warn("DeliveryService.relay", fmt.Sprintf("failed to publish %s: %v", routingKey, err))
	}
}
