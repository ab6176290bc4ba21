package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logileet/internal/delivery/domain"
	"logileet/internal/shared/apperrors"
)

type DeliveryRepo struct {
	db *pgxpool.Pool
}

func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

const deliveryColumns = `
	id, customer_id, driver_id, vehicle_id,
	pickup_latitude, pickup_longitude, pickup_address,
	dropoff_latitude, dropoff_longitude, dropoff_address,
	route, status, priority, package,
	scheduled_pickup_time, scheduled_delivery_time,
	actual_pickup_time, actual_delivery_time,
	customer_notes, driver_notes, cancellation_reason,
	assigned_at, picked_up_at, on_route_at, delivered_at, cancelled_at,
	created_at, updated_at`

func (r *DeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	pkg, err := json.Marshal(d.Package)
	if err != nil {
		return fmt.Errorf("marshal package details: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO deliveries (
			id, customer_id,
			pickup_latitude, pickup_longitude, pickup_address,
			dropoff_latitude, dropoff_longitude, dropoff_address,
			status, priority, package,
			scheduled_pickup_time, scheduled_delivery_time, customer_notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`,
		d.ID, d.CustomerID,
		d.Pickup.Latitude, d.Pickup.Longitude, d.Pickup.Address,
		d.Dropoff.Latitude, d.Dropoff.Longitude, d.Dropoff.Address,
		d.Status, d.Priority, pkg,
		d.ScheduledPickupTime, d.ScheduledDeliveryTime, nullIfEmpty(d.CustomerNotes),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery failed: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	row := r.db.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DeliveryRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Delivery, int, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.DriverID != "" {
		add("driver_id = $%d", f.DriverID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.StartDate != nil {
		add("created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= $%d", *f.EndDate)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM deliveries"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	args = append(args, f.Limit, offset)
	query := fmt.Sprintf("SELECT %s FROM deliveries%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		deliveryColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, total, rows.Err()
}

func (r *DeliveryRepo) UpdateStatus(ctx context.Context, id string, expectedFrom domain.Status, patch domain.StatusPatch) (*domain.Delivery, error) {
	query := `
		UPDATE deliveries
		SET status = $3,
		    picked_up_at         = CASE WHEN $3 = 'picked_up' THEN $4 ELSE picked_up_at END,
		    actual_pickup_time   = CASE WHEN $3 = 'picked_up' THEN $4 ELSE actual_pickup_time END,
		    on_route_at          = CASE WHEN $3 = 'on_route'  THEN $4 ELSE on_route_at END,
		    delivered_at         = CASE WHEN $3 = 'delivered' THEN $4 ELSE delivered_at END,
		    actual_delivery_time = CASE WHEN $3 = 'delivered' THEN $4 ELSE actual_delivery_time END,
		    cancelled_at         = CASE WHEN $3 = 'cancelled' THEN $4 ELSE cancelled_at END,
		    driver_notes = CASE WHEN $5 <> ''
		        THEN COALESCE(NULLIF(driver_notes, '') || E'\n', '') || $5 ELSE driver_notes END,
		    customer_notes = CASE WHEN $6 <> ''
		        THEN COALESCE(NULLIF(customer_notes, '') || E'\n', '') || $6 ELSE customer_notes END,
		    cancellation_reason = CASE WHEN $3 = 'cancelled' THEN NULLIF($7, '') ELSE cancellation_reason END,
		    updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + deliveryColumns

	row := r.db.QueryRow(ctx, query, id, expectedFrom, patch.Status, patch.Now,
		patch.DriverNotes, patch.CustomerNotes, patch.CancellationReason)
	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The delivery left expectedFrom between read and write.
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}
	return d, nil
}

// AssignIfFree performs the conflict check and the assignment write as one
// atomic unit. Advisory transaction locks on the driver and vehicle ids
// serialize concurrent assignment attempts for the same resources, so the
// re-checked NOT EXISTS condition cannot pass twice.
func (r *DeliveryRepo) AssignIfFree(ctx context.Context, id, driverID, vehicleID string, route *domain.Route) (*domain.Delivery, error) {
	routeJSON, err := json.Marshal(route)
	if err != nil {
		return nil, fmt.Errorf("marshal route: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0)), pg_advisory_xact_lock(hashtextextended($2, 0))`,
		"driver:"+driverID, "vehicle:"+vehicleID); err != nil {
		return nil, fmt.Errorf("acquire assignment locks: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE deliveries
		SET driver_id = $2,
		    vehicle_id = $3,
		    route = $4,
		    status = 'assigned',
		    assigned_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		  AND NOT EXISTS (
		      SELECT 1 FROM deliveries other
		      WHERE other.id <> $1
		        AND (other.driver_id = $2 OR other.vehicle_id = $3)
		        AND other.status IN ('assigned', 'picked_up', 'on_route')
		  )
		RETURNING `+deliveryColumns,
		id, driverID, vehicleID, routeJSON)

	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DeliveryRepo) FindActiveConflict(ctx context.Context, driverID, vehicleID, excludeID string) (*domain.Delivery, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE id <> $3
		  AND (driver_id = $1 OR vehicle_id = $2)
		  AND status IN ('assigned', 'picked_up', 'on_route')
		LIMIT 1
	`, driverID, vehicleID, excludeID)

	d, err := scanDelivery(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// ActiveByDriver lists the driver's deliveries still in an active status,
// oldest assignment first.
func (r *DeliveryRepo) ActiveByDriver(ctx context.Context, driverID string) ([]domain.Delivery, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE driver_id = $1 AND status IN ('assigned', 'picked_up', 'on_route')
		ORDER BY assigned_at ASC
	`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []domain.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, *d)
	}
	return deliveries, rows.Err()
}

func (r *DeliveryRepo) GetUser(ctx context.Context, id string) (*domain.UserInfo, error) {
	var u domain.UserInfo
	err := r.db.QueryRow(ctx,
		`SELECT id, name, role, is_active FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Role, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *DeliveryRepo) GetVehicle(ctx context.Context, id string) (*domain.VehicleInfo, error) {
	var v domain.VehicleInfo
	err := r.db.QueryRow(ctx,
		`SELECT id, vehicle_number, is_active FROM vehicles WHERE id = $1`, id,
	).Scan(&v.ID, &v.Number, &v.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanDelivery(row pgx.Row) (*domain.Delivery, error) {
	var d domain.Delivery
	var routeJSON, pkgJSON []byte
	var customerNotes, driverNotes, cancellationReason *string

	err := row.Scan(
		&d.ID, &d.CustomerID, &d.DriverID, &d.VehicleID,
		&d.Pickup.Latitude, &d.Pickup.Longitude, &d.Pickup.Address,
		&d.Dropoff.Latitude, &d.Dropoff.Longitude, &d.Dropoff.Address,
		&routeJSON, &d.Status, &d.Priority, &pkgJSON,
		&d.ScheduledPickupTime, &d.ScheduledDeliveryTime,
		&d.ActualPickupTime, &d.ActualDeliveryTime,
		&customerNotes, &driverNotes, &cancellationReason,
		&d.AssignedAt, &d.PickedUpAt, &d.OnRouteAt, &d.DeliveredAt, &d.CancelledAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerNotes != nil {
		d.CustomerNotes = *customerNotes
	}
	if driverNotes != nil {
		d.DriverNotes = *driverNotes
	}
	if cancellationReason != nil {
		d.CancellationReason = *cancellationReason
	}
	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &d.Route); err != nil {
			return nil, fmt.Errorf("unmarshal route: %w", err)
		}
	}
	if len(pkgJSON) > 0 {
		if err := json.Unmarshal(pkgJSON, &d.Package); err != nil {
			return nil, fmt.Errorf("unmarshal package details: %w", err)
		}
	}
	return &d, nil
}
