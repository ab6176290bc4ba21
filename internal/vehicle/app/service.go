package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/util"
	"logileet/internal/vehicle/domain"
)

var vehicleTypes = map[string]struct{}{
	"bike":  {},
	"car":   {},
	"van":   {},
	"truck": {},
}

type VehicleService struct {
	repo   domain.VehicleRepository
	logger *util.Logger
}

func NewVehicleService(repo domain.VehicleRepository, logger *util.Logger) *VehicleService {
	return &VehicleService{repo: repo, logger: logger}
}

func (s *VehicleService) Create(ctx context.Context, input domain.CreateVehicleInput) (*domain.Vehicle, error) {
	instance := "VehicleService.Create"

	number := strings.ToUpper(strings.TrimSpace(input.VehicleNumber))
	if number == "" || input.Type == "" {
		return nil, fmt.Errorf("%w: vehicle number and type are required", apperrors.ErrValidation)
	}
	if _, ok := vehicleTypes[input.Type]; !ok {
		return nil, fmt.Errorf("%w: invalid vehicle type %q", apperrors.ErrValidation, input.Type)
	}
	if input.CapacityWeight < 0 || input.CapacityVolume < 0 {
		return nil, fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidation)
	}

	if existing, err := s.repo.GetByNumber(ctx, number); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: vehicle with number %s already exists", apperrors.ErrConflict, number)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Error(instance, fmt.Errorf("failed to check vehicle number: %w", err))
		return nil, err
	}

	v := &domain.Vehicle{
		ID:                 uuid.NewString(),
		VehicleNumber:      number,
		Type:               input.Type,
		Brand:              input.Brand,
		Model:              input.Model,
		CapacityWeight:     input.CapacityWeight,
		CapacityVolume:     input.CapacityVolume,
		IsActive:           true,
		IsAvailable:        true,
		RegistrationExpiry: input.RegistrationExpiry,
		InsuranceExpiry:    input.InsuranceExpiry,
		CreatedAt:          time.Now(),
	}

	if err := s.repo.Create(ctx, v); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to create vehicle: %w", err))
		return nil, err
	}

	s.logger.OK(instance, fmt.Sprintf("vehicle created [id=%s, number=%s, type=%s]", v.ID, v.VehicleNumber, v.Type))
	return v, nil
}

func (s *VehicleService) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	return s.repo.GetByID(ctx, id)
}

type VehiclePage struct {
	Vehicles []domain.Vehicle `json:"vehicles"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
}

func (s *VehicleService) List(ctx context.Context, f domain.ListFilter) (*VehiclePage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	vehicles, total, err := s.repo.List(ctx, f)
	if err != nil {
		s.logger.Error("VehicleService.List", fmt.Errorf("failed to list vehicles: %w", err))
		return nil, err
	}

	pages := (total + f.Limit - 1) / f.Limit
	if pages == 0 {
		pages = 1
	}
	return &VehiclePage{Vehicles: vehicles, Total: total, Page: f.Page, Pages: pages}, nil
}

func (s *VehicleService) Update(ctx context.Context, id string, input domain.UpdateVehicleInput) (*domain.Vehicle, error) {
	instance := "VehicleService.Update"

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.VehicleNumber != nil {
		number := strings.ToUpper(strings.TrimSpace(*input.VehicleNumber))
		if number == "" {
			return nil, fmt.Errorf("%w: vehicle number cannot be empty", apperrors.ErrValidation)
		}
		if number != v.VehicleNumber {
			if existing, err := s.repo.GetByNumber(ctx, number); err == nil && existing != nil {
				return nil, fmt.Errorf("%w: vehicle with number %s already exists", apperrors.ErrConflict, number)
			} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return nil, err
			}
			v.VehicleNumber = number
		}
	}
	if input.Type != nil {
		if _, ok := vehicleTypes[*input.Type]; !ok {
			return nil, fmt.Errorf("%w: invalid vehicle type %q", apperrors.ErrValidation, *input.Type)
		}
		v.Type = *input.Type
	}
	if input.Brand != nil {
		v.Brand = *input.Brand
	}
	if input.Model != nil {
		v.Model = *input.Model
	}
	if input.CapacityWeight != nil {
		if *input.CapacityWeight < 0 {
			return nil, fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidation)
		}
		v.CapacityWeight = *input.CapacityWeight
	}
	if input.CapacityVolume != nil {
		if *input.CapacityVolume < 0 {
			return nil, fmt.Errorf("%w: capacity cannot be negative", apperrors.ErrValidation)
		}
		v.CapacityVolume = *input.CapacityVolume
	}
	if input.IsActive != nil {
		v.IsActive = *input.IsActive
	}
	if input.IsAvailable != nil {
		v.IsAvailable = *input.IsAvailable
	}

	if err := s.repo.Update(ctx, v); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to update vehicle %s: %w", id, err))
		return nil, err
	}

	s.logger.OK(instance, "vehicle updated "+id)
	return v, nil
}

// Delete removes a vehicle, unbinding its current driver first so no
// user account is left pointing at a missing vehicle.
func (s *VehicleService) Delete(ctx context.Context, id string) error {
	instance := "VehicleService.Delete"

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if v.CurrentDriverID != nil {
		if err := s.repo.UnbindDriver(ctx, v.ID, *v.CurrentDriverID); err != nil {
			s.logger.Error(instance, fmt.Errorf("failed to unbind driver before delete: %w", err))
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to delete vehicle %s: %w", id, err))
		return err
	}

	s.logger.OK(instance, "vehicle deleted "+id)
	return nil
}

// AssignDriver binds a driver to a vehicle. Both the vehicle row and the
// user row are written in one transaction so they cannot disagree.
func (s *VehicleService) AssignDriver(ctx context.Context, vehicleID, driverID string) (*domain.Vehicle, error) {
	instance := "VehicleService.AssignDriver"

	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !v.IsActive {
		return nil, fmt.Errorf("%w: vehicle is not active", apperrors.ErrInvalidState)
	}
	if v.CurrentDriverID != nil {
		if *v.CurrentDriverID == driverID {
			return nil, fmt.Errorf("%w: driver is already assigned to this vehicle", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("%w: vehicle already has a driver assigned", apperrors.ErrConflict)
	}

	driver, err := s.repo.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver.Role != "driver" {
		return nil, fmt.Errorf("%w: user %s is not a driver", apperrors.ErrValidation, driverID)
	}
	if !driver.IsActive {
		return nil, fmt.Errorf("%w: driver account is deactivated", apperrors.ErrInvalidState)
	}
	if driver.VehicleID != nil {
		return nil, fmt.Errorf("%w: driver is already assigned to another vehicle", apperrors.ErrConflict)
	}

	if err := s.repo.BindDriver(ctx, vehicleID, driverID); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to bind driver %s to vehicle %s: %w", driverID, vehicleID, err))
		return nil, err
	}

	v.CurrentDriverID = &driverID
	s.logger.OK(instance, fmt.Sprintf("driver %s assigned to vehicle %s", driverID, vehicleID))
	return v, nil
}

func (s *VehicleService) UnassignDriver(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	instance := "VehicleService.UnassignDriver"

	v, err := s.repo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v.CurrentDriverID == nil {
		return nil, fmt.Errorf("%w: vehicle has no driver assigned", apperrors.ErrInvalidState)
	}

	driverID := *v.CurrentDriverID
	if err := s.repo.UnbindDriver(ctx, vehicleID, driverID); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to unbind driver %s from vehicle %s: %w", driverID, vehicleID, err))
		return nil, err
	}

	v.CurrentDriverID = nil
	s.logger.OK(instance, fmt.Sprintf("driver %s unassigned from vehicle %s", driverID, vehicleID))
	return v, nil
}
