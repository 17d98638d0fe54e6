package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"remo-checkout/internal/domain/model"
	"remo-checkout/internal/domain/ports/repository"
)

// PostgresLedgerRepo stores the append-only purchase trail. Unlike the
// gating record in Redis it keeps every terminal resolution, including
// failed and retried attempts.
type PostgresLedgerRepo struct {
	db *pgxpool.Pool
}

func NewPostgresLedgerRepo(db *pgxpool.Pool) *PostgresLedgerRepo {
	return &PostgresLedgerRepo{db: db}
}

var _ repository.LedgerRepository = (*PostgresLedgerRepo)(nil)

// EnsureSchema creates the ledger table when it does not exist yet.
func (r *PostgresLedgerRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS purchase_ledger (
			id         UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			plan       TEXT NOT NULL,
			price_usd  TEXT NOT NULL,
			kes_amount TEXT NOT NULL,
			status     TEXT NOT NULL,
			reference  TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (r *PostgresLedgerRepo) Append(ctx context.Context, e *model.LedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO purchase_ledger (id, session_id, plan, price_usd, kes_amount, status, reference, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.SessionID, e.Plan, e.PriceUSD, e.KESAmount, e.Status, e.Reference, e.Reason, e.CreatedAt)
	return err
}

func (r *PostgresLedgerRepo) ListRecent(ctx context.Context, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, plan, price_usd, kes_amount, status, reference, reason, created_at
		FROM purchase_ledger ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Plan, &e.PriceUSD, &e.KESAmount, &e.Status, &e.Reference, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
