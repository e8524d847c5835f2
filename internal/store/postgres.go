package store

import (
	"context"
	"errors"

	"backend-bikecomp/internal/db"
	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"

	"github.com/jackc/pgx/v5"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rides (
		id BIGSERIAL PRIMARY KEY,
		date_start BIGINT NOT NULL,
		date_end BIGINT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		fuel_used DOUBLE PRECISION NOT NULL,
		avg_speed_kmh DOUBLE PRECISION NOT NULL,
		max_speed_kmh DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS rides_date_start_idx ON rides (date_start DESC)`,
	`CREATE TABLE IF NOT EXISTS refuels (
		id BIGSERIAL PRIMARY KEY,
		date BIGINT NOT NULL,
		litres DOUBLE PRECISION NOT NULL,
		price_per_litre DOUBLE PRECISION NOT NULL,
		total_cost DOUBLE PRECISION NOT NULL,
		odometer_km DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL
	)`,
}

type Postgres struct {
	db      db.Querier
	closeFn func()
}

func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{db: q}
}

func (s *Postgres) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) AddRide(ctx context.Context, r ride.Ride) (ride.Ride, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO rides (date_start, date_end, distance_km, fuel_used, avg_speed_kmh, max_speed_kmh)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, r.DateStartMs, r.DateEndMs, r.DistanceKm, r.FuelUsed, r.AvgSpeedKmH, r.MaxSpeedKmH)
	if err := row.Scan(&r.ID); err != nil {
		return ride.Ride{}, err
	}
	return r, nil
}

func (s *Postgres) Rides(ctx context.Context) ([]ride.Ride, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, date_start, date_end, distance_km, fuel_used, avg_speed_kmh, max_speed_kmh
		FROM rides
		ORDER BY date_start DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []ride.Ride
	for rows.Next() {
		var r ride.Ride
		if err := rows.Scan(&r.ID, &r.DateStartMs, &r.DateEndMs, &r.DistanceKm, &r.FuelUsed, &r.AvgSpeedKmH, &r.MaxSpeedKmH); err != nil {
			return nil, err
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

func (s *Postgres) AddRefuel(ctx context.Context, r refuel.Refuel) (refuel.Refuel, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO refuels (date, litres, price_per_litre, total_cost, odometer_km)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, r.DateMs, r.Litres, r.PricePerLitre, r.TotalCost, r.OdometerKm)
	if err := row.Scan(&r.ID); err != nil {
		return refuel.Refuel{}, err
	}
	return r, nil
}

func (s *Postgres) Refuels(ctx context.Context) ([]refuel.Refuel, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, date, litres, price_per_litre, total_cost, odometer_km
		FROM refuels
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refuels []refuel.Refuel
	for rows.Next() {
		var r refuel.Refuel
		if err := rows.Scan(&r.ID, &r.DateMs, &r.Litres, &r.PricePerLitre, &r.TotalCost, &r.OdometerKm); err != nil {
			return nil, err
		}
		refuels = append(refuels, r)
	}
	return refuels, rows.Err()
}

func (s *Postgres) Setting(ctx context.Context, name string) (float64, bool, error) {
	var v float64
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE name=$1`, name).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s *Postgres) PutSetting(ctx context.Context, name string, value float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO settings (name, value)
		VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET value=EXCLUDED.value
	`, name, value)
	return err
}

func (s *Postgres) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `TRUNCATE rides, refuels RESTART IDENTITY`)
	return err
}

func (s *Postgres) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
