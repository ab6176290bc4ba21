package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logileet/internal/auth/domain"
	"logileet/internal/shared/apperrors"
)

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `
	id, name, email, phone, password_hash, role, is_active,
	license_number, license_expiry, vehicle_id, address,
	last_latitude, last_longitude, last_location_at, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (
			id, name, email, phone, password_hash, role, is_active,
			license_number, license_expiry, address, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.IsActive,
		nullIfEmpty(u.LicenseNumber), u.LicenseExpiry, nullIfEmpty(u.Address), u.CreatedAt,
	)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepo) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 OR phone = $2)`,
		email, phone,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET name = $2, phone = $3, address = $4,
		    license_number = $5, license_expiry = $6,
		    updated_at = NOW()
		WHERE id = $1
	`, u.ID, u.Name, u.Phone, nullIfEmpty(u.Address), nullIfEmpty(u.LicenseNumber), u.LicenseExpiry)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var licenseNumber, address *string

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.IsActive,
		&licenseNumber, &u.LicenseExpiry, &u.VehicleID, &address,
		&u.LastLatitude, &u.LastLongitude, &u.LastLocationAt, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if licenseNumber != nil {
		u.LicenseNumber = *licenseNumber
	}
	if address != nil {
		u.Address = *address
	}
	return &u, nil
}
