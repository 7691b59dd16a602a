package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed store_init.sql
var sqlFS embed.FS

// Postgres keeps records in a single jsonb-backed table. The merge-upsert
// contract maps onto `fields || excluded.fields`, so a partial write never
// clobbers fields it does not carry.
type Postgres struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	sqlFile, err := sqlFS.ReadFile("store_init.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded store_init.sql: %w", err)
	}

	if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
		return nil, fmt.Errorf("failed to execute embedded store_init.sql: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Upsert(
	ctx context.Context,
	collection, id string,
	fields Record,
) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode record fields: %w", err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO records (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = records.fields || excluded.fields`,
		collection, id, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert record %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Get(
	ctx context.Context,
	collection, id string,
) (Record, bool, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx,
		`SELECT fields FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get record %s/%s: %w", collection, id, err)
	}

	rec := make(Record)
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record %s/%s: %w", collection, id, err)
	}
	return rec, true, nil
}

func (p *Postgres) Query(
	ctx context.Context,
	collection string,
) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT fields FROM records WHERE collection = $1 ORDER BY inserted_at`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record in %s: %w", collection, err)
		}
		rec := make(Record)
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record in %s: %w", collection, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM records WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}
	return nil
}
