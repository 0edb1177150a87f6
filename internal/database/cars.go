package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbook/internal/models"
)

const carColumns = `c.id, c.name, c.image_url, c.make, c.model, c.year, c.license_plate,
	c.odometer_reading, c.maintenance_date, c.maintenance_type, c.service_provider_name,
	c.service_provider_contact, c.parts_replaced, c.cost, c.next_maintenance_date, c.remarks,
	c.created_at, (SELECT COUNT(*) FROM bookings b WHERE b.car_id = c.id)`

func scanCar(row rowScanner) (*models.Car, error) {
	var (
		car                 models.Car
		maintenanceType     string
		maintenance, nextMn sql.NullString
	)
	if err := row.Scan(&car.ID, &car.Name, &car.ImageURL, &car.Make, &car.Model, &car.Year,
		&car.LicensePlate, &car.OdometerReading, &maintenance, &maintenanceType,
		&car.ServiceProviderName, &car.ServiceProviderContact, &car.PartsReplaced, &car.Cost,
		&nextMn, &car.Remarks, &car.CreatedAt, &car.TotalBookings); err != nil {
		return nil, err
	}
	car.MaintenanceType = models.MaintenanceType(maintenanceType)

	var err error
	if car.MaintenanceDate, err = scanNullableDate(maintenance); err != nil {
		return nil, fmt.Errorf("car %d: bad maintenance_date: %w", car.ID, err)
	}
	if car.NextMaintenanceDate, err = scanNullableDate(nextMn); err != nil {
		return nil, fmt.Errorf("car %d: bad next_maintenance_date: %w", car.ID, err)
	}
	return &car, nil
}

// ListCars returns all cars with their booking counts, newest first.
func (db *DB) ListCars(ctx context.Context) ([]*models.Car, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+carColumns+` FROM cars c ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]*models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

func (db *DB) GetCar(ctx context.Context, id int64) (*models.Car, error) {
	car, err := scanCar(db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return car, nil
}

func (db *DB) CreateCar(ctx context.Context, car *models.Car) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, `INSERT INTO cars (
				name, image_url, make, model, year, license_plate, odometer_reading,
				maintenance_date, maintenance_type, service_provider_name, service_provider_contact,
				parts_replaced, cost, next_maintenance_date, remarks, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		car.Name, car.ImageURL, car.Make, car.Model, car.Year, car.LicensePlate, car.OdometerReading,
		nullableDate(car.MaintenanceDate), string(car.MaintenanceType), car.ServiceProviderName,
		car.ServiceProviderContact, car.PartsReplaced, car.Cost, nullableDate(car.NextMaintenanceDate),
		car.Remarks, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	car.ID = id
	car.CreatedAt = now
	return nil
}

func (db *DB) UpdateCar(ctx context.Context, car *models.Car) error {
	res, err := db.ExecContext(ctx, `UPDATE cars SET
				name = ?, image_url = ?, make = ?, model = ?, year = ?, license_plate = ?,
				odometer_reading = ?, maintenance_date = ?, maintenance_type = ?,
				service_provider_name = ?, service_provider_contact = ?, parts_replaced = ?,
				cost = ?, next_maintenance_date = ?, remarks = ?
			WHERE id = ?`,
		car.Name, car.ImageURL, car.Make, car.Model, car.Year, car.LicensePlate,
		car.OdometerReading, nullableDate(car.MaintenanceDate), string(car.MaintenanceType),
		car.ServiceProviderName, car.ServiceProviderContact, car.PartsReplaced,
		car.Cost, nullableDate(car.NextMaintenanceDate), car.Remarks, car.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}
	return checkAffected(res)
}

// DeleteCar removes a car together with all of its bookings.
func (db *DB) DeleteCar(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE car_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete car bookings: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}
