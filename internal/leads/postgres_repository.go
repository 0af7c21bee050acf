package leads

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const insertLeadSQL = `
	INSERT INTO leads (created, name, email, phone, secondary_phone, stage, source, channel, owner, labels, details)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(pool db) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func (r *PostgresRepository) Append(ctx context.Context, lead Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, insertLeadSQL, leadArgs(lead)...); err != nil {
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Lead, error) {
	rows, err := r.db.Query(ctx, `
		SELECT created, name, email, phone, secondary_phone, stage, source, channel, owner, labels, details
		FROM leads
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	defer rows.Close()

	out := []Lead{}
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.Created,
			&l.Name,
			&l.Email,
			&l.Phone,
			&l.SecondaryPhone,
			&l.Stage,
			&l.Source,
			&l.Channel,
			&l.Owner,
			&l.Labels,
			&l.Details,
		); err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Replace(ctx context.Context, leads []Lead) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leads`); err != nil {
		return fmt.Errorf("leads: clear: %w", err)
	}
	for _, lead := range leads {
		if _, err := tx.Exec(ctx, insertLeadSQL, leadArgs(lead)...); err != nil {
			return fmt.Errorf("leads: insert failed: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit: %w", err)
	}
	return nil
}

func leadArgs(l Lead) []any {
	return []any{l.Created, l.Name, l.Email, l.Phone, l.SecondaryPhone, l.Stage, l.Source, l.Channel, l.Owner, l.Labels, l.Details}
}
