package bookings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository creates a repository backed by a pgx pool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) Save(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (logged_at, user_id, name, phone, email, service, vehicle, scheduled_for, requested_for, reschedule_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.LoggedAt,
		rec.UserID,
		rec.Name,
		rec.Phone,
		rec.Email,
		rec.Service,
		rec.Vehicle,
		rec.DateTime,
		rec.RequestedFor,
		rec.RescheduleNote,
	)
	if err != nil {
		return fmt.Errorf("bookings: insert appointment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT logged_at, user_id, name, phone, email, service, vehicle, scheduled_for, requested_for, reschedule_note
		FROM appointments
		ORDER BY logged_at
	`)
	if err != nil {
		return nil, fmt.Errorf("bookings: list appointments: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.LoggedAt,
			&rec.UserID,
			&rec.Name,
			&rec.Phone,
			&rec.Email,
			&rec.Service,
			&rec.Vehicle,
			&rec.DateTime,
			&rec.RequestedFor,
			&rec.RescheduleNote,
		); err != nil {
			return nil, fmt.Errorf("bookings: scan appointment: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: rows: %w", err)
	}
	return out, nil
}
