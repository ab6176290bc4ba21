package app

import (
	"context"
	"fmt"

	"logileet/internal/admin/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/util"
)

type AdminService struct {
	repo   domain.AdminRepository
	logger *util.Logger
}

func NewAdminService(repo domain.AdminRepository, logger *util.Logger) *AdminService {
	return &AdminService{repo: repo, logger: logger}
}

type UserPage struct {
	Users []domain.UserSummary `json:"users"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Pages int                  `json:"pages"`
}

func (s *AdminService) ListUsers(ctx context.Context, f domain.UserFilter) (*UserPage, error) {
	if f.Role != "" && f.Role != "admin" && f.Role != "driver" && f.Role != "customer" {
		return nil, fmt.Errorf("%w: invalid role filter %q", apperrors.ErrValidation, f.Role)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	users, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		s.logger.Error("AdminService.ListUsers", fmt.Errorf("failed to list users: %w", err))
		return nil, err
	}

	pages := (total + f.Limit - 1) / f.Limit
	if pages == 0 {
		pages = 1
	}
	return &UserPage{Users: users, Total: total, Page: f.Page, Pages: pages}, nil
}

// AvailableDrivers lists active drivers with no vehicle bound, the pool
// an admin picks from when assigning a vehicle.
func (s *AdminService) AvailableDrivers(ctx context.Context) ([]domain.UserSummary, error) {
	drivers, err := s.repo.AvailableDrivers(ctx)
	if err != nil {
		s.logger.Error("AdminService.AvailableDrivers", fmt.Errorf("failed to list available drivers: %w", err))
		return nil, err
	}
	return drivers, nil
}

func (s *AdminService) SetUserActive(ctx context.Context, userID string, active bool) error {
	instance := "AdminService.SetUserActive"

	if err := s.repo.SetUserActive(ctx, userID, active); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to update user %s: %w", userID, err))
		return err
	}

	s.logger.OK(instance, fmt.Sprintf("user %s active=%t", userID, active))
	return nil
}

type Dashboard struct {
	DeliveriesByStatus map[string]int `json:"deliveriesByStatus"`
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	counts, err := s.repo.CountDeliveriesByStatus(ctx)
	if err != nil {
		s.logger.Error("AdminService.Dashboard", fmt.Errorf("failed to count deliveries: %w", err))
		return nil, err
	}
	return &Dashboard{DeliveriesByStatus: counts}, nil
}
