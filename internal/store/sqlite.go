package store

import (
	"context"
	"errors"

	"backend-bikecomp/internal/refuel"
	"backend-bikecomp/internal/ride"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rideRow struct {
	ID          int64 `gorm:"primaryKey"`
	DateStart   int64 `gorm:"not null;index"`
	DateEnd     int64 `gorm:"not null"`
	DistanceKm  float64
	FuelUsed    float64
	AvgSpeedKmh float64
	MaxSpeedKmh float64
}

func (rideRow) TableName() string { return "rides" }

type refuelRow struct {
	ID            int64 `gorm:"primaryKey"`
	Date          int64 `gorm:"not null;index"`
	Litres        float64
	PricePerLitre float64
	TotalCost     float64
	OdometerKm    float64
}

func (refuelRow) TableName() string { return "refuels" }

type settingRow struct {
	Name  string `gorm:"primaryKey"`
	Value float64
}

func (settingRow) TableName() string { return "settings" }

// SQLite is the local single-rider store.
type SQLite struct {
	db *gorm.DB
}

func NewSQLite(ctx context.Context, gdb *gorm.DB) (*SQLite, error) {
	if err := gdb.WithContext(ctx).AutoMigrate(&rideRow{}, &refuelRow{}, &settingRow{}); err != nil {
		return nil, err
	}
	return &SQLite{db: gdb}, nil
}

func (s *SQLite) AddRide(ctx context.Context, r ride.Ride) (ride.Ride, error) {
	row := rideRow{
		DateStart:   r.DateStartMs,
		DateEnd:     r.DateEndMs,
		DistanceKm:  r.DistanceKm,
		FuelUsed:    r.FuelUsed,
		AvgSpeedKmh: r.AvgSpeedKmH,
		MaxSpeedKmh: r.MaxSpeedKmH,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return ride.Ride{}, err
	}
	r.ID = row.ID
	return r, nil
}

func (s *SQLite) Rides(ctx context.Context) ([]ride.Ride, error) {
	var rows []rideRow
	if err := s.db.WithContext(ctx).Order("date_start desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	rides := make([]ride.Ride, 0, len(rows))
	for _, row := range rows {
		rides = append(rides, ride.Ride{
			ID:          row.ID,
			DateStartMs: row.DateStart,
			DateEndMs:   row.DateEnd,
			DistanceKm:  row.DistanceKm,
			FuelUsed:    row.FuelUsed,
			AvgSpeedKmH: row.AvgSpeedKmh,
			MaxSpeedKmH: row.MaxSpeedKmh,
		})
	}
	return rides, nil
}

func (s *SQLite) AddRefuel(ctx context.Context, r refuel.Refuel) (refuel.Refuel, error) {
	row := refuelRow{
		Date:          r.DateMs,
		Litres:        r.Litres,
		PricePerLitre: r.PricePerLitre,
		TotalCost:     r.TotalCost,
		OdometerKm:    r.OdometerKm,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return refuel.Refuel{}, err
	}
	r.ID = row.ID
	return r, nil
}

func (s *SQLite) Refuels(ctx context.Context) ([]refuel.Refuel, error) {
	var rows []refuelRow
	if err := s.db.WithContext(ctx).Order("date desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	refuels := make([]refuel.Refuel, 0, len(rows))
	for _, row := range rows {
		refuels = append(refuels, refuel.Refuel{
			ID:            row.ID,
			DateMs:        row.Date,
			Litres:        row.Litres,
			PricePerLitre: row.PricePerLitre,
			TotalCost:     row.TotalCost,
			OdometerKm:    row.OdometerKm,
		})
	}
	return refuels, nil
}

func (s *SQLite) Setting(ctx context.Context, name string) (float64, bool, error) {
	var row settingRow
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Value, true, nil
}

func (s *SQLite) PutSetting(ctx context.Context, name string, value float64) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&settingRow{Name: name, Value: value}).Error
}

func (s *SQLite) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM rides").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM refuels").Error
	})
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
