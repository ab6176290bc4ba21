package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/util"
)

// --- fakes ---

type fakeRepo struct {
	deliveries map[string]*domain.Delivery
	users      map[string]*domain.UserInfo
	vehicles   map[string]*domain.VehicleInfo
	conflict   *domain.Delivery

	failUpdateWith error
	assignErr      error
	updateCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		deliveries: map[string]*domain.Delivery{},
		users:      map[string]*domain.UserInfo{},
		vehicles:   map[string]*domain.VehicleInfo{},
	}
}

func (r *fakeRepo) Create(ctx context.Context, d *domain.Delivery) error {
	r.deliveries[d.ID] = d
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Delivery, int, error) {
	var out []domain.Delivery
	for _, d := range r.deliveries {
		if f.CustomerID != "" && d.CustomerID != f.CustomerID {
			continue
		}
		if f.DriverID != "" && (d.DriverID == nil || *d.DriverID != f.DriverID) {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id string, expectedFrom domain.Status, patch domain.StatusPatch) (*domain.Delivery, error) {
	r.updateCalls++
	if r.failUpdateWith != nil {
		return nil, r.failUpdateWith
	}
	d, ok := r.deliveries[id]
	if !ok || d.Status != expectedFrom {
		return nil, apperrors.ErrConflict
	}

	d.Status = patch.Status
	d.UpdatedAt = patch.Now
	switch patch.Status {
	case domain.StatusPickedUp:
		d.PickedUpAt = &patch.Now
		d.ActualPickupTime = &patch.Now
	case domain.StatusOnRoute:
		d.OnRouteAt = &patch.Now
	case domain.StatusDelivered:
		d.DeliveredAt = &patch.Now
		d.ActualDeliveryTime = &patch.Now
	case domain.StatusCancelled:
		d.CancelledAt = &patch.Now
		d.CancellationReason = patch.CancellationReason
	}
	if patch.DriverNotes != "" {
		d.DriverNotes = patch.DriverNotes
	}
	if patch.CustomerNotes != "" {
		d.CustomerNotes = patch.CustomerNotes
	}

	copied := *d
	return &copied, nil
}

func (r *fakeRepo) AssignIfFree(ctx context.Context, id, driverID, vehicleID string, route *domain.Route) (*domain.Delivery, error) {
	if r.assignErr != nil {
		return nil, r.assignErr
	}
	d, ok := r.deliveries[id]
	if !ok || d.Status != domain.StatusPending {
		return nil, apperrors.ErrConflict
	}
	now := time.Now()
	d.Status = domain.StatusAssigned
	d.DriverID = &driverID
	d.VehicleID = &vehicleID
	d.Route = route
	d.AssignedAt = &now
	copied := *d
	return &copied, nil
}

func (r *fakeRepo) FindActiveConflict(ctx context.Context, driverID, vehicleID, excludeID string) (*domain.Delivery, error) {
	if r.conflict != nil {
		return r.conflict, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeRepo) GetUser(ctx context.Context, id string) (*domain.UserInfo, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) GetVehicle(ctx context.Context, id string) (*domain.VehicleInfo, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}

type emitted struct {
	room  string
	event string
}

type fakeHub struct {
	events []emitted
}

func (h *fakeHub) ToDelivery(deliveryID, event string, payload interface{}) {
	h.events = append(h.events, emitted{room: "delivery-" + deliveryID, event: event})
}

func (h *fakeHub) ToUser(userID, event string, payload interface{}) {
	h.events = append(h.events, emitted{room: "user-" + userID, event: event})
}

func (h *fakeHub) ToAdmins(event string, payload interface{}) {
	h.events = append(h.events, emitted{room: "admins", event: event})
}

func (h *fakeHub) has(room, event string) bool {
	for _, e := range h.events {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

type fakeRoutes struct {
	route *domain.Route
	err   error
	calls int
}

func (f *fakeRoutes) ComputeRoute(ctx context.Context, pickup, dropoff domain.Location) (*domain.Route, error) {
	f.calls++
	return f.route, f.err
}

// --- helpers ---

func newTestService(repo *fakeRepo, routes *fakeRoutes, hub *fakeHub) *DeliveryService {
	return NewDeliveryService(repo, routes, hub, nil, util.NewLogger())
}

func seedDelivery(repo *fakeRepo, status domain.Status, driverID string) *domain.Delivery {
	d := &domain.Delivery{
		ID:         "d-1",
		CustomerID: "customer-1",
		Pickup:     domain.Location{Latitude: 40.71, Longitude: -74.0, Address: "A"},
		Dropoff:    domain.Location{Latitude: 40.73, Longitude: -73.99, Address: "B"},
		Status:     status,
		Priority:   domain.PriorityMedium,
		Package:    domain.PackageDetails{Description: "box"},
		CreatedAt:  time.Now(),
	}
	if driverID != "" {
		d.DriverID = &driverID
	}
	repo.deliveries[d.ID] = d
	return d
}

// --- tests ---

func TestCreateValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

	valid := domain.CreateDeliveryInput{
		Pickup:  domain.Location{Latitude: 40.71, Longitude: -74.0, Address: "A"},
		Dropoff: domain.Location{Latitude: 40.73, Longitude: -73.99, Address: "B"},
		Package: domain.PackageDetails{Description: "box"},
	}

	tests := []struct {
		name   string
		mutate func(*domain.CreateDeliveryInput)
	}{
		{"latitude out of range", func(in *domain.CreateDeliveryInput) { in.Pickup.Latitude = 91 }},
		{"longitude out of range", func(in *domain.CreateDeliveryInput) { in.Dropoff.Longitude = -181 }},
		{"missing pickup address", func(in *domain.CreateDeliveryInput) { in.Pickup.Address = "" }},
		{"missing package description", func(in *domain.CreateDeliveryInput) { in.Package.Description = "" }},
		{"unknown priority", func(in *domain.CreateDeliveryInput) { in.Priority = "asap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)
			if _, err := svc.Create(context.Background(), "customer-1", input); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	d, err := svc.Create(context.Background(), "customer-1", valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != domain.StatusPending {
		t.Errorf("new delivery status = %s, want pending", d.Status)
	}
	if d.Priority != domain.PriorityMedium {
		t.Errorf("default priority = %s, want medium", d.Priority)
	}
}

func TestApplyTransitionNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeRoutes{}, &fakeHub{})

	_, err := svc.ApplyTransition(context.Background(), "missing", domain.StatusPickedUp, "driver-1", domain.RoleDriver, "")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCustomerRequestingPickupIsAlwaysForbidden(t *testing.T) {
	// Authorization is checked before transition legality, so the customer
	// sees forbidden whether or not picked_up would be legal from here.
	for _, status := range []domain.Status{domain.StatusPending, domain.StatusAssigned, domain.StatusDelivered} {
		repo := newFakeRepo()
		seedDelivery(repo, status, "driver-1")
		svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

		_, err := svc.ApplyTransition(context.Background(), "d-1", domain.StatusPickedUp, "customer-1", domain.RoleCustomer, "")
		if !errors.Is(err, apperrors.ErrForbidden) {
			t.Errorf("from %s: expected forbidden, got %v", status, err)
		}
	}
}

func TestApplyTransitionIllegalPairs(t *testing.T) {
	tests := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusPending, domain.StatusPickedUp},
		{domain.StatusPending, domain.StatusOnRoute},
		{domain.StatusPending, domain.StatusDelivered},
		{domain.StatusAssigned, domain.StatusOnRoute},
		{domain.StatusAssigned, domain.StatusDelivered},
		{domain.StatusPickedUp, domain.StatusDelivered},
		{domain.StatusDelivered, domain.StatusCancelled},
		{domain.StatusCancelled, domain.StatusDelivered},
		{domain.StatusCancelled, domain.StatusCancelled},
	}

	for _, tt := range tests {
		repo := newFakeRepo()
		seedDelivery(repo, tt.from, "driver-1")
		svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

		// Admin passes authorization for everything, isolating legality.
		_, err := svc.ApplyTransition(context.Background(), "d-1", tt.to, "admin-1", domain.RoleAdmin, "")
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			t.Errorf("%s -> %s: expected invalid transition, got %v", tt.from, tt.to, err)
		}

		var te *apperrors.TransitionError
		if errors.As(err, &te) {
			if te.From != string(tt.from) || te.To != string(tt.to) {
				t.Errorf("transition error reports %s -> %s, want %s -> %s", te.From, te.To, tt.from, tt.to)
			}
		}
	}
}

func TestApplyTransitionHappyPathStampsTimestamps(t *testing.T) {
	repo := newFakeRepo()
	seedDelivery(repo, domain.StatusAssigned, "driver-1")
	hub := &fakeHub{}
	svc := newTestService(repo, &fakeRoutes{}, hub)

	updated, err := svc.ApplyTransition(context.Background(), "d-1", domain.StatusPickedUp, "driver-1", domain.RoleDriver, "got it")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusPickedUp {
		t.Errorf("status = %s, want picked_up", updated.Status)
	}
	if updated.PickedUpAt == nil || updated.ActualPickupTime == nil {
		t.Error("picked_up must stamp PickedUpAt and ActualPickupTime")
	}
	if updated.DriverNotes != "got it" {
		t.Errorf("driver notes = %q, want %q", updated.DriverNotes, "got it")
	}

	if !hub.has("delivery-d-1", "status-update") {
		t.Error("missing status-update in delivery room")
	}
	if !hub.has("delivery-d-1", "delivery-status-updated") {
		t.Error("missing delivery-status-updated in delivery room")
	}
	if !hub.has("admins", "delivery-status-updated") {
		t.Error("missing delivery-status-updated in admins room")
	}
}

func TestCancellationRecordsReasonAndNotifiesCustomer(t *testing.T) {
	repo := newFakeRepo()
	seedDelivery(repo, domain.StatusPending, "")
	hub := &fakeHub{}
	svc := newTestService(repo, &fakeRoutes{}, hub)

	updated, err := svc.ApplyTransition(context.Background(), "d-1", domain.StatusCancelled, "customer-1", domain.RoleCustomer, "changed my mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CancellationReason != "changed my mind" {
		t.Errorf("cancellation reason = %q", updated.CancellationReason)
	}
	if updated.CancelledAt == nil {
		t.Error("cancelled must stamp CancelledAt")
	}
	if !hub.has("user-customer-1", "delivery-cancelled") {
		t.Error("missing delivery-cancelled in customer user room")
	}
	if !hub.has("admins", "delivery-cancelled") {
		t.Error("missing delivery-cancelled in admins room")
	}
}

func TestNoEventsWhenPersistenceFails(t *testing.T) {
	repo := newFakeRepo()
	seedDelivery(repo, domain.StatusAssigned, "driver-1")
	repo.failUpdateWith = errors.New("connection reset")
	hub := &fakeHub{}
	svc := newTestService(repo, &fakeRoutes{}, hub)

	_, err := svc.ApplyTransition(context.Background(), "d-1", domain.StatusPickedUp, "driver-1", domain.RoleDriver, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(hub.events) != 0 {
		t.Errorf("events were emitted despite persistence failure: %v", hub.events)
	}
}

func TestConcurrentTransitionReportsWinningStatus(t *testing.T) {
	repo := newFakeRepo()
	d := seedDelivery(repo, domain.StatusAssigned, "driver-1")
	svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

	// Simulate losing the race: the conditional update fails and a refetch
	// sees the status another request already wrote.
	repo.failUpdateWith = apperrors.ErrConflict
	d.Status = domain.StatusCancelled

	_, err := svc.ApplyTransition(context.Background(), "d-1", domain.StatusPickedUp, "driver-1", domain.RoleDriver, "")

	var te *apperrors.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected transition error, got %v", err)
	}
	if te.From != string(domain.StatusCancelled) || te.To != string(domain.StatusPickedUp) {
		t.Errorf("transition error reports %s -> %s, want cancelled -> picked_up", te.From, te.To)
	}
}

func TestGetScopesByRole(t *testing.T) {
	repo := newFakeRepo()
	seedDelivery(repo, domain.StatusAssigned, "driver-1")
	svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})
	ctx := context.Background()

	if _, err := svc.Get(ctx, "d-1", "admin-1", domain.RoleAdmin); err != nil {
		t.Errorf("admin access failed: %v", err)
	}
	if _, err := svc.Get(ctx, "d-1", "customer-1", domain.RoleCustomer); err != nil {
		t.Errorf("owner access failed: %v", err)
	}
	if _, err := svc.Get(ctx, "d-1", "customer-2", domain.RoleCustomer); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("other customer: expected forbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, "d-1", "driver-1", domain.RoleDriver); err != nil {
		t.Errorf("assigned driver access failed: %v", err)
	}
	if _, err := svc.Get(ctx, "d-1", "driver-2", domain.RoleDriver); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("other driver: expected forbidden, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	repo := newFakeRepo()
	seedDelivery(repo, domain.StatusAssigned, "driver-1")
	other := &domain.Delivery{ID: "d-2", CustomerID: "customer-2", Status: domain.StatusPending}
	repo.deliveries[other.ID] = other
	svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})
	ctx := context.Background()

	page, err := svc.List(ctx, "customer-1", domain.RoleCustomer, domain.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 1 || page.Deliveries[0].CustomerID != "customer-1" {
		t.Errorf("customer sees %d deliveries, want only their own", page.Total)
	}

	page, err = svc.List(ctx, "admin-1", domain.RoleAdmin, domain.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("admin sees %d deliveries, want 2", page.Total)
	}
}
