// Package store persists rides, refuels and settings.
package store

import (
	"context"
	"fmt"

	"backend-bikecomp/internal/config"
	"backend-bikecomp/internal/db"
	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is append-only for rides and refuels. Identifiers and insertion
// order are assigned by the implementation.
type Store interface {
	AddRide(ctx context.Context, r ride.Ride) (ride.Ride, error)
	// Rides returns every ride, newest start date first.
	Rides(ctx context.Context) ([]ride.Ride, error)
	AddRefuel(ctx context.Context, r refuel.Refuel) (refuel.Refuel, error)
	// Refuels returns every refuel, newest first.
	Refuels(ctx context.Context) ([]refuel.Refuel, error)
	Setting(ctx context.Context, name string) (float64, bool, error)
	PutSetting(ctx context.Context, name string, value float64) error
	// Clear removes ride and refuel history. Settings are kept.
	Clear(ctx context.Context) error
	Close() error
}

func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		pool, err := db.ConnectPostgres(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s := NewPostgres(pool)
		s.closeFn = pool.Close
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return s, nil
	case DriverSQLite, "":
		gdb, err := db.ConnectSQLite(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		return NewSQLite(ctx, gdb)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
