package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carbook/internal/daterange"
	"carbook/internal/models"
)

const bookingColumns = `id, car_id, from_date, to_date, description, summary,
	pickup_image_url, drop_image_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b        models.Booking
		from, to string
	)
	if err := row.Scan(&b.ID, &b.CarID, &from, &to, &b.Description, &b.Summary,
		&b.PickupImageURL, &b.DropImageURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.From, err = parseDate(from); err != nil {
		return nil, fmt.Errorf("booking %d: bad from_date %q: %w", b.ID, from, err)
	}
	if b.To, err = parseDate(to); err != nil {
		return nil, fmt.Errorf("booking %d: bad to_date %q: %w", b.ID, to, err)
	}
	return &b, nil
}

// ListBookings returns the bookings of a car ordered by start date.
func (db *DB) ListBookings(ctx context.Context, carID int64) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE car_id = ? ORDER BY from_date, id`, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// InsertBooking stores a new booking and assigns its ID. Unless overlaps are
// allowed, the conflict check and the insert share one transaction.
func (db *DB) InsertBooking(ctx context.Context, booking *models.Booking) error {
	if err := daterange.Validate(booking.From, booking.To); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.checkConflict(ctx, tx, booking.CarID, booking.From, booking.To, 0); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
				car_id, from_date, to_date, description, summary,
				pickup_image_url, drop_image_url, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.CarID,
		formatDate(booking.From),
		formatDate(booking.To),
		booking.Description,
		booking.Summary,
		booking.PickupImageURL,
		booking.DropImageURL,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

// UpdateBooking writes description, summary and image URLs, and moves the
// booking when update.Range is set.
func (db *DB) UpdateBooking(ctx context.Context, id int64, update models.BookingUpdate) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	var res sql.Result
	if update.Range != nil {
		if err := daterange.Validate(update.Range.From, update.Range.To); err != nil {
			return err
		}

		var carID int64
		err := tx.QueryRowContext(ctx, `SELECT car_id FROM bookings WHERE id = ?`, id).Scan(&carID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load booking car: %w", err)
		}
		if err := db.checkConflict(ctx, tx, carID, update.Range.From, update.Range.To, id); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `UPDATE bookings
			SET description = ?, summary = ?, pickup_image_url = ?, drop_image_url = ?,
			    from_date = ?, to_date = ?, updated_at = ?
			WHERE id = ?`,
			update.Description, update.Summary, update.PickupImageURL, update.DropImageURL,
			formatDate(update.Range.From), formatDate(update.Range.To), now, id)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE bookings
			SET description = ?, summary = ?, pickup_image_url = ?, drop_image_url = ?, updated_at = ?
			WHERE id = ?`,
			update.Description, update.Summary, update.PickupImageURL, update.DropImageURL, now, id)
		if err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
	}

	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return checkAffected(res)
}

func (db *DB) checkConflict(ctx context.Context, tx *sql.Tx, carID int64, from, to time.Time, excludeID int64) error {
	if db.allowOverlap {
		return nil
	}

	var count int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings
		WHERE car_id = ? AND id != ? AND from_date <= ? AND to_date >= ?`,
		carID, excludeID, formatDate(to), formatDate(from)).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return ErrRangeConflict
	}
	return nil
}
