// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskmire Contributors

package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// poolIface abstracts *pgxpool.Pool so unit tests can substitute pgxmock.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Postgres implements Journal using PostgreSQL.
type Postgres struct {
	pool poolIface
}

// NewPostgres connects a journal to the given database URL.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("JOURNAL_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (or a mock in tests).
func NewPostgresWithPool(pool poolIface) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Append implements Journal. A duplicate entry id is silently dropped:
// event ids are unique per publication, so a conflict can only be a retry.
func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO combat_events (id, stream, type, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID.String(),
		entry.Stream,
		entry.Type,
		entry.Payload,
		entry.RecordedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}
		return oops.Code("JOURNAL_APPEND_FAILED").
			With("entry_id", entry.ID.String()).
			With("stream", entry.Stream).
			Wrap(err)
	}
	return nil
}

// Replay implements Journal.
func (p *Postgres) Replay(ctx context.Context, stream string, afterID ulid.ULID, limit int) ([]Entry, error) {
	var rows pgx.Rows
	var err error

	if afterID.Compare(ulid.ULID{}) == 0 {
		rows, err = p.pool.Query(ctx,
			`SELECT id, stream, type, payload, recorded_at
			 FROM combat_events WHERE stream = $1 ORDER BY id LIMIT $2`,
			stream, limit)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT id, stream, type, payload, recorded_at
			 FROM combat_events WHERE stream = $1 AND id > $2 ORDER BY id LIMIT $3`,
			stream, afterID.String(), limit)
	}
	if err != nil {
		return nil, oops.Code("JOURNAL_REPLAY_FAILED").With("stream", stream).Wrap(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var idStr string
		if err := rows.Scan(&idStr, &e.Stream, &e.Type, &e.Payload, &e.RecordedAt); err != nil {
			return nil, oops.Code("JOURNAL_SCAN_FAILED").With("stream", stream).Wrap(err)
		}
		e.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("JOURNAL_CORRUPT_ID").With("stream", stream).With("id", idStr).Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("JOURNAL_REPLAY_FAILED").With("stream", stream).Wrap(err)
	}
	return entries, nil
}
