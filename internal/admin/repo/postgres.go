package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"logileet/internal/admin/domain"
	"logileet/internal/shared/apperrors"
)

type AdminRepo struct {
	db *pgxpool.Pool
}

func NewAdminRepo(db *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{db: db}
}

const summaryColumns = `
	id, name, email, phone, role, is_active,
	vehicle_id, license_number,
	last_latitude, last_longitude, last_location_at, created_at`

func (r *AdminRepo) ListUsers(ctx context.Context, f domain.UserFilter) ([]domain.UserSummary, int, error) {
	where := []string{}
	args := []interface{}{}

	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(
		`SELECT %s FROM users%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		summaryColumns, cond, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.UserSummary
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.IsActive,
			&u.VehicleID, &u.LicenseNumber,
			&u.LastLatitude, &u.LastLongitude, &u.LastLocationAt, &u.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *AdminRepo) AvailableDrivers(ctx context.Context) ([]domain.UserSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM users
		WHERE role = 'driver' AND is_active = TRUE AND vehicle_id IS NULL
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []domain.UserSummary
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.IsActive,
			&u.VehicleID, &u.LicenseNumber,
			&u.LastLatitude, &u.LastLongitude, &u.LastLocationAt, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		drivers = append(drivers, u)
	}
	return drivers, rows.Err()
}

func (r *AdminRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		userID, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *AdminRepo) CountDeliveriesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM deliveries GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
