package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"logileet/internal/auth/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/jwt"
	"logileet/internal/shared/util"
)

const (
	RoleAdmin    = "admin"
	RoleDriver   = "driver"
	RoleCustomer = "customer"
)

type AuthService struct {
	repo   domain.UserRepository
	tokens *jwt.Manager
	logger *util.Logger
}

func NewAuthService(repo domain.UserRepository, tokens *jwt.Manager, logger *util.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, logger: logger}
}

func validRole(role string) bool {
	return role == RoleAdmin || role == RoleDriver || role == RoleCustomer
}

func (s *AuthService) Register(ctx context.Context, input domain.RegisterInput) (*domain.User, string, error) {
	instance := "AuthService.Register"
	start := time.Now()

	if input.Name == "" || input.Email == "" || input.Password == "" || input.Phone == "" {
		return nil, "", fmt.Errorf("%w: name, email, password and phone are required", apperrors.ErrValidation)
	}
	if len(input.Password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", apperrors.ErrValidation)
	}
	if input.Role == "" {
		input.Role = RoleCustomer
	}
	if !validRole(input.Role) {
		return nil, "", fmt.Errorf("%w: invalid role", apperrors.ErrValidation)
	}
	if input.Role == RoleDriver && (input.LicenseNumber == "" || input.LicenseExpiry == nil) {
		return nil, "", fmt.Errorf("%w: license number and expiry are required for drivers", apperrors.ErrValidation)
	}

	exists, err := s.repo.ExistsByEmailOrPhone(ctx, input.Email, input.Phone)
	if err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to check existing user: %w", err))
		return nil, "", err
	}
	if exists {
		s.logger.Warn(instance, fmt.Sprintf("user with email %s or phone already exists", input.Email))
		return nil, "", fmt.Errorf("%w: user with this email or phone already exists", apperrors.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Role:         input.Role,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if input.Role == RoleDriver {
		user.LicenseNumber = input.LicenseNumber
		user.LicenseExpiry = input.LicenseExpiry
	}
	if input.Role == RoleCustomer {
		user.Address = input.Address
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to create user: %w", err))
		return nil, "", err
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to generate token: %w", err))
		return nil, "", err
	}

	s.logger.OK(instance, fmt.Sprintf("user registered [id=%s, email=%s, role=%s, duration_ms=%d]",
		user.ID, user.Email, user.Role, time.Since(start).Milliseconds()))

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	instance := "AuthService.Login"
	start := time.Now()

	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("login failed for %s: user not found", email))
		return nil, "", fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn(instance, fmt.Sprintf("invalid password for %s", email))
		return nil, "", fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	}

	if !user.IsActive {
		s.logger.Warn(instance, fmt.Sprintf("deactivated account attempted login: %s", email))
		return nil, "", fmt.Errorf("%w: account is deactivated, contact admin", apperrors.ErrForbidden)
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to generate token: %w", err))
		return nil, "", err
	}

	s.logger.OK(instance, fmt.Sprintf("login successful [id=%s, role=%s, duration_ms=%d]",
		user.ID, user.Role, time.Since(start).Milliseconds()))

	return user, token, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	instance := "AuthService.UpdateProfile"

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrNotFound
	}

	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Phone != "" {
		user.Phone = update.Phone
	}
	if update.Address != "" && user.Role == RoleCustomer {
		user.Address = update.Address
	}
	if user.Role == RoleDriver {
		if update.LicenseNumber != "" {
			user.LicenseNumber = update.LicenseNumber
		}
		if update.LicenseExpiry != nil {
			user.LicenseExpiry = update.LicenseExpiry
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		s.logger.Error(instance, fmt.Errorf("failed to update profile: %w", err))
		return nil, err
	}

	s.logger.OK(instance, "profile updated for user "+userID)
	return user, nil
}
