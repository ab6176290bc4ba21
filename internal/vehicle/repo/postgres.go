package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logileet/internal/shared/apperrors"
	"logileet/internal/vehicle/domain"
)

type VehicleRepo struct {
	db *pgxpool.Pool
}

func NewVehicleRepo(db *pgxpool.Pool) *VehicleRepo {
	return &VehicleRepo{db: db}
}

const vehicleColumns = `
	id, vehicle_number, type, brand, model,
	capacity_weight, capacity_volume, is_active, is_available,
	current_driver_id, registration_expiry, insurance_expiry, created_at`

func (r *VehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO vehicles (
			id, vehicle_number, type, brand, model,
			capacity_weight, capacity_volume, is_active, is_available,
			registration_expiry, insurance_expiry, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`,
		v.ID, v.VehicleNumber, v.Type, nullIfEmpty(v.Brand), nullIfEmpty(v.Model),
		v.CapacityWeight, v.CapacityVolume, v.IsActive, v.IsAvailable,
		v.RegistrationExpiry, v.InsuranceExpiry, v.CreatedAt,
	)
	return err
}

func (r *VehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	row := r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	return scanVehicle(row)
}

func (r *VehicleRepo) GetByNumber(ctx context.Context, number string) (*domain.Vehicle, error) {
	row := r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE vehicle_number = $1`, number)
	return scanVehicle(row)
}

func (r *VehicleRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Vehicle, int, error) {
	where := []string{}
	args := []interface{}{}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.IsActive != nil {
		add("is_active = $%d", *f.IsActive)
	}
	if f.IsAvailable != nil {
		add("is_available = $%d", *f.IsAvailable)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(vehicle_number ILIKE $%d OR brand ILIKE $%d OR model ILIKE $%d)", n, n, n))
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf(
		`SELECT %s FROM vehicles%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		vehicleColumns, cond, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, total, rows.Err()
}

func (r *VehicleRepo) Update(ctx context.Context, v *domain.Vehicle) error {
	_, err := r.db.Exec(ctx, `
		UPDATE vehicles
		SET vehicle_number = $2, type = $3, brand = $4, model = $5,
		    capacity_weight = $6, capacity_volume = $7,
		    is_active = $8, is_available = $9,
		    registration_expiry = $10, insurance_expiry = $11,
		    updated_at = NOW()
		WHERE id = $1
	`,
		v.ID, v.VehicleNumber, v.Type, nullIfEmpty(v.Brand), nullIfEmpty(v.Model),
		v.CapacityWeight, v.CapacityVolume, v.IsActive, v.IsAvailable,
		v.RegistrationExpiry, v.InsuranceExpiry,
	)
	return err
}

func (r *VehicleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// BindDriver writes both sides of the driver↔vehicle relation in one
// transaction. The conditional updates fail the whole transaction if
// either side was claimed concurrently.
func (r *VehicleRepo) BindDriver(ctx context.Context, vehicleID, driverID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET current_driver_id = $2, updated_at = NOW()
		WHERE id = $1 AND current_driver_id IS NULL
	`, vehicleID, driverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vehicle already has a driver assigned", apperrors.ErrConflict)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE users
		SET vehicle_id = $2, updated_at = NOW()
		WHERE id = $1 AND role = 'driver' AND vehicle_id IS NULL
	`, driverID, vehicleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: driver is already assigned to another vehicle", apperrors.ErrConflict)
	}

	return tx.Commit(ctx)
}

func (r *VehicleRepo) UnbindDriver(ctx context.Context, vehicleID, driverID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET current_driver_id = NULL, updated_at = NOW()
		WHERE id = $1 AND current_driver_id = $2
	`, vehicleID, driverID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users
		SET vehicle_id = NULL, updated_at = NOW()
		WHERE id = $1 AND vehicle_id = $2
	`, driverID, vehicleID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *VehicleRepo) GetDriver(ctx context.Context, driverID string) (*domain.DriverInfo, error) {
	var d domain.DriverInfo
	err := r.db.QueryRow(ctx,
		`SELECT id, role, is_active, vehicle_id FROM users WHERE id = $1`,
		driverID,
	).Scan(&d.ID, &d.Role, &d.IsActive, &d.VehicleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	var brand, model *string

	err := row.Scan(
		&v.ID, &v.VehicleNumber, &v.Type, &brand, &model,
		&v.CapacityWeight, &v.CapacityVolume, &v.IsActive, &v.IsAvailable,
		&v.CurrentDriverID, &v.RegistrationExpiry, &v.InsuranceExpiry, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if brand != nil {
		v.Brand = *brand
	}
	if model != nil {
		v.Model = *model
	}
	return &v, nil
}
