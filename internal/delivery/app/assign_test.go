package app

import (
	"context"
	"errors"
	"testing"

	"logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
)

func seedAssignable(repo *fakeRepo) {
	seedDelivery(repo, domain.StatusPending, "")
	repo.users["driver-1"] = &domain.UserInfo{ID: "driver-1", Name: "Aidos", Role: domain.RoleDriver, IsActive: true}
	repo.vehicles["vehicle-1"] = &domain.VehicleInfo{ID: "vehicle-1", Number: "KZ123ABC", IsActive: true}
}

func TestAssignHappyPath(t *testing.T) {
	repo := newFakeRepo()
	seedAssignable(repo)
	hub := &fakeHub{}
	routes := &fakeRoutes{route: &domain.Route{
		Waypoints:         []domain.Waypoint{{Lat: 40.71, Lng: -74.0}, {Lat: 40.72, Lng: -73.995}, {Lat: 40.73, Lng: -73.99}},
		Distance:          3200,
		EstimatedDuration: 12,
	}}
	svc := newTestService(repo, routes, hub)

	updated, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned", updated.Status)
	}
	if updated.DriverID == nil || *updated.DriverID != "driver-1" {
		t.Error("driver not bound")
	}
	if updated.VehicleID == nil || *updated.VehicleID != "vehicle-1" {
		t.Error("vehicle not bound")
	}
	if updated.AssignedAt == nil {
		t.Error("assigned must stamp AssignedAt")
	}
	if updated.Route == nil || updated.Route.Distance != 3200 {
		t.Error("provider route not stored")
	}

	if !hub.has("user-driver-1", "delivery-assigned") {
		t.Error("missing delivery-assigned in driver user room")
	}
	if !hub.has("user-customer-1", "delivery-assigned") {
		t.Error("missing delivery-assigned in customer user room")
	}
}

func TestAssignRequiresPending(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusAssigned, domain.StatusPickedUp, domain.StatusDelivered, domain.StatusCancelled} {
		repo := newFakeRepo()
		seedAssignable(repo)
		repo.deliveries["d-1"].Status = status
		svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

		_, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
		if !errors.Is(err, apperrors.ErrInvalidState) {
			t.Errorf("status %s: expected invalid state, got %v", status, err)
		}
	}
}

func TestAssignRejectsInvalidActors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeRepo)
		want   error
	}{
		{"missing delivery", func(r *fakeRepo) { delete(r.deliveries, "d-1") }, apperrors.ErrNotFound},
		{"missing driver", func(r *fakeRepo) { delete(r.users, "driver-1") }, apperrors.ErrNotFound},
		{"missing vehicle", func(r *fakeRepo) { delete(r.vehicles, "vehicle-1") }, apperrors.ErrNotFound},
		{"non-driver user", func(r *fakeRepo) { r.users["driver-1"].Role = domain.RoleCustomer }, apperrors.ErrInvalidState},
		{"inactive driver", func(r *fakeRepo) { r.users["driver-1"].IsActive = false }, apperrors.ErrInvalidState},
		{"inactive vehicle", func(r *fakeRepo) { r.vehicles["vehicle-1"].IsActive = false }, apperrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			seedAssignable(repo)
			tt.mutate(repo)
			svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

			_, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAssignNamesConflictingResource(t *testing.T) {
	driverID := "driver-1"
	otherDriver := "driver-9"
	vehicleID := "vehicle-1"

	tests := []struct {
		name     string
		conflict *domain.Delivery
		resource string
	}{
		{
			"driver already committed",
			&domain.Delivery{ID: "d-9", DriverID: &driverID, VehicleID: nil, Status: domain.StatusPickedUp},
			"driver",
		},
		{
			"vehicle already committed",
			&domain.Delivery{ID: "d-9", DriverID: &otherDriver, VehicleID: &vehicleID, Status: domain.StatusOnRoute},
			"vehicle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			seedAssignable(repo)
			repo.conflict = tt.conflict
			svc := newTestService(repo, &fakeRoutes{}, &fakeHub{})

			_, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
			if !errors.Is(err, apperrors.ErrConflict) {
				t.Fatalf("expected conflict, got %v", err)
			}

			var ce *apperrors.ConflictError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConflictError, got %T", err)
			}
			if ce.Resource != tt.resource {
				t.Errorf("conflict resource = %q, want %q", ce.Resource, tt.resource)
			}
		})
	}
}

func TestAssignLostRaceIsConflict(t *testing.T) {
	repo := newFakeRepo()
	seedAssignable(repo)
	repo.assignErr = apperrors.ErrConflict
	hub := &fakeHub{}
	svc := newTestService(repo, &fakeRoutes{}, hub)

	_, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(hub.events) != 0 {
		t.Error("no events may be emitted for a failed assignment")
	}
}

func TestAssignFallsBackWhenRoutingDegraded(t *testing.T) {
	tests := []struct {
		name   string
		routes *fakeRoutes
	}{
		{"provider error", &fakeRoutes{err: apperrors.ErrExternalServiceDegraded}},
		{"empty route", &fakeRoutes{route: &domain.Route{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			seedAssignable(repo)
			svc := newTestService(repo, tt.routes, &fakeHub{})

			updated, err := svc.Assign(context.Background(), "d-1", "driver-1", "vehicle-1")
			if err != nil {
				t.Fatalf("routing degradation must not fail assignment: %v", err)
			}

			want := domain.Route{
				Waypoints: []domain.Waypoint{
					{Lat: 40.71, Lng: -74.0},
					{Lat: 40.73, Lng: -73.99},
				},
				Distance:          0,
				EstimatedDuration: 30,
			}
			if updated.Route == nil {
				t.Fatal("fallback route not stored")
			}
			if len(updated.Route.Waypoints) != 2 ||
				updated.Route.Waypoints[0] != want.Waypoints[0] ||
				updated.Route.Waypoints[1] != want.Waypoints[1] ||
				updated.Route.Distance != want.Distance ||
				updated.Route.EstimatedDuration != want.EstimatedDuration {
				t.Errorf("fallback route = %+v, want %+v", *updated.Route, want)
			}
		})
	}
}
