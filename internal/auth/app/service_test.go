package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"logileet/internal/auth/domain"
	"logileet/internal/shared/apperrors"
	"logileet/internal/shared/jwt"
	"logileet/internal/shared/util"
)

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email || u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	r.users[u.ID] = u
	return nil
}

func newAuthService(repo *fakeUserRepo) *AuthService {
	return NewAuthService(repo, jwt.NewManager("test-secret", 1), util.NewLogger())
}

func registerInput() domain.RegisterInput {
	return domain.RegisterInput{
		Name:     "Aigerim",
		Email:    "aigerim@example.com",
		Password: "secret123",
		Phone:    "+77010000001",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if token == "" {
		t.Error("register must return a token")
	}
	if user.Role != RoleCustomer {
		t.Errorf("default role = %q, want customer", user.Role)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password must be hashed")
	}

	logged, token, err := svc.Login(ctx, "aigerim@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Error("login returned wrong user or empty token")
	}

	if _, _, err := svc.Login(ctx, "aigerim@example.com", "wrong-pass"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "secret123"); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("unknown email: expected unauthorized, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.RegisterInput)
	}{
		{"missing name", func(in *domain.RegisterInput) { in.Name = "" }},
		{"missing email", func(in *domain.RegisterInput) { in.Email = "" }},
		{"short password", func(in *domain.RegisterInput) { in.Password = "12345" }},
		{"missing phone", func(in *domain.RegisterInput) { in.Phone = "" }},
		{"bogus role", func(in *domain.RegisterInput) { in.Role = "superuser" }},
		{"driver without license", func(in *domain.RegisterInput) { in.Role = RoleDriver }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := registerInput()
			tt.mutate(&input)
			if _, _, err := svc.Register(ctx, input); !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterDriverRequiresLicense(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	input := registerInput()
	input.Role = RoleDriver
	input.LicenseNumber = "DL-42"
	expiry := time.Now().AddDate(2, 0, 0)
	input.LicenseExpiry = &expiry

	user, _, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.LicenseNumber != "DL-42" {
		t.Error("license number not stored")
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, registerInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	if _, _, err := svc.Register(ctx, registerInput()); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	// Different email but same phone still collides.
	input := registerInput()
	input.Email = "other@example.com"
	if _, _, err := svc.Register(ctx, input); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("same phone: expected conflict, got %v", err)
	}
}

func TestDeactivatedAccountCannotLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	repo.users[user.ID].IsActive = false

	if _, _, err := svc.Login(ctx, "aigerim@example.com", "secret123"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateProfileRoleGating(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, registerInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, domain.ProfileUpdate{
		Name:          "Aigerim K.",
		Address:       "12 Abay Ave",
		LicenseNumber: "DL-99",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Aigerim K." {
		t.Error("name not updated")
	}
	if updated.Address != "12 Abay Ave" {
		t.Error("customer address not updated")
	}
	if updated.LicenseNumber != "" {
		t.Error("customers must not gain driver fields")
	}
}
