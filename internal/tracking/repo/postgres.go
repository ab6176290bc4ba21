package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"logileet/internal/tracking/domain"
)

type TrackingRepo struct {
	db *pgxpool.Pool
}

func NewTrackingRepo(db *pgxpool.Pool) *TrackingRepo {
	return &TrackingRepo{db: db}
}

func (r *TrackingRepo) Append(ctx context.Context, p *domain.TrackingPoint) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tracking_points (
			id, delivery_id, driver_id, vehicle_id,
			latitude, longitude, accuracy, altitude, speed, heading,
			status, battery_level, network_type, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		p.ID, p.DeliveryID, p.DriverID, p.VehicleID,
		p.Location.Latitude, p.Location.Longitude, p.Location.Accuracy,
		p.Location.Altitude, p.Location.Speed, p.Location.Heading,
		p.Status, p.Battery, nullIfEmpty(p.Network), p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tracking point failed: %w", err)
	}
	return nil
}

const pointColumns = `
	id, delivery_id, driver_id, vehicle_id,
	latitude, longitude, accuracy, altitude, speed, heading,
	status, battery_level, network_type, recorded_at`

func (r *TrackingRepo) History(ctx context.Context, deliveryID string, f domain.HistoryFilter) ([]domain.TrackingPoint, error) {
	query := `SELECT ` + pointColumns + ` FROM tracking_points WHERE delivery_id = $1`
	args := []interface{}{deliveryID}

	if f.StartTime != nil {
		args = append(args, *f.StartTime)
		query += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if f.EndTime != nil {
		args = append(args, *f.EndTime)
		query += fmt.Sprintf(" AND recorded_at <= $%d", len(args))
	}

	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.TrackingPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, *p)
	}
	return points, rows.Err()
}

func (r *TrackingRepo) Latest(ctx context.Context, deliveryID string) (*domain.TrackingPoint, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+pointColumns+`
		FROM tracking_points
		WHERE delivery_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, deliveryID)

	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *TrackingRepo) UpdateDriverLocation(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET last_latitude = $2, last_longitude = $3, last_location_at = $4, updated_at = NOW()
		WHERE id = $1
	`, driverID, lat, lng, at)
	return err
}

func (r *TrackingRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tracking_points WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanPoint(row pgx.Row) (*domain.TrackingPoint, error) {
	var p domain.TrackingPoint
	var network *string

	err := row.Scan(
		&p.ID, &p.DeliveryID, &p.DriverID, &p.VehicleID,
		&p.Location.Latitude, &p.Location.Longitude, &p.Location.Accuracy,
		&p.Location.Altitude, &p.Location.Speed, &p.Location.Heading,
		&p.Status, &p.Battery, &network, &p.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	if network != nil {
		p.Network = *network
	}
	return &p, nil
}
