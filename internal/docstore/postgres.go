package docstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores one JSONB document per (account, collection). Every write is
// a whole-snapshot upsert, so the table always holds the latest full state of
// each collection (last-write-wins at collection granularity).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &Postgres{db: db}
	if err := p.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS account_documents (
			account_id text NOT NULL,
			collection text NOT NULL,
			payload    jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (account_id, collection)
		)
	`)
	return mapError(err)
}

func (p *Postgres) ReadCollection(ctx context.Context, accountID string, collection string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT payload FROM account_documents
		WHERE account_id = $1 AND collection = $2
	`, accountID, collection).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return payload, nil
}

func (p *Postgres) WriteCollection(ctx context.Context, accountID string, collection string, payload []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO account_documents (account_id, collection, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id, collection)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, accountID, collection, payload)
	return mapError(err)
}

// mapError translates SQLSTATE insufficient_privilege into the boundary's
// permission error so the syncer can latch its blocked state.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return ErrPermissionDenied
	}
	return err
}
