// Package kvstore implements the shared key-value store on top of postgres or sqlite.
//
// It backs the second cache tier and the shared rate limit counters.
package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/reporting"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Store struct {
	db      *sqlx.DB
	name    string
	prefix  string
	tracer  trace.Tracer
	nowFunc func() time.Time
}

// NewPostgres stores entries in the tables of schema
func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Store {
	return &Store{
		db:      db,
		name:    "postgres",
		prefix:  pq.QuoteIdentifier(schema) + ".",
		tracer:  otel.Tracer("lana/kvstore/postgres"),
		nowFunc: nowFunc,
	}
}

func NewSQLite(db *sqlx.DB, nowFunc func() time.Time) *Store {
	return &Store{
		db:      db,
		name:    "sqlite",
		prefix:  "",
		tracer:  otel.Tracer("lana/kvstore/sqlite"),
		nowFunc: nowFunc,
	}
}

func (s *Store) Name() string {
	return s.name
}

// query qualifies the table names and rebinds the placeholders for the driver
func (s *Store) query(format string) string {
	return s.db.Rebind(fmt.Sprintf(format, s.prefix))
}

type dbCacheEntry struct {
	Value       []byte `db:"value"`
	ExpiresAtMS int64  `db:"expires_at_ms"`
}

func (s *Store) Get(ctx context.Context, namespace string, key string) (cache.BackendEntry, bool, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Get")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	var entry dbCacheEntry
	err := s.db.GetContext(
		ctx,
		&entry,
		s.query(`SELECT value, expires_at_ms FROM %[1]scache_entries
		WHERE namespace = ? AND key = ? AND expires_at_ms > ?`),
		namespace,
		key,
		s.nowFunc().UnixMilli(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.BackendEntry{}, false, nil
	}
	if err != nil {
		return cache.BackendEntry{}, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	return cache.BackendEntry{
		Value:     entry.Value,
		ExpiresAt: time.UnixMilli(entry.ExpiresAtMS),
	}, true, nil
}

// Set upserts the entry and trims the namespace to the maxSize most recently set live entries
func (s *Store) Set(ctx context.Context, namespace string, key string, value []byte, expiresAt time.Time, maxSize int) error {
	ctx, span := s.tracer.Start(ctx, "Store.Set")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", namespace))

	now := s.nowFunc().UnixMilli()

	txx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(
		ctx,
		s.query(`INSERT INTO %[1]scache_entries
		(namespace, key, value, expires_at_ms, updated_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (namespace, key)
		DO UPDATE SET
			value = excluded.value,
			expires_at_ms = excluded.expires_at_ms,
			updated_at_ms = excluded.updated_at_ms`),
		namespace,
		key,
		value,
		expiresAt.UnixMilli(),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	if maxSize > 0 {
		_, err = txx.ExecContext(
			ctx,
			s.query(`DELETE FROM %[1]scache_entries
			WHERE namespace = ? AND (
				expires_at_ms <= ?
				OR key NOT IN (
					SELECT key FROM %[1]scache_entries
					WHERE namespace = ?
					ORDER BY updated_at_ms DESC, key
					LIMIT ?
				)
			)`),
			namespace,
			now,
			namespace,
			maxSize,
		)
		if err != nil {
			return fmt.Errorf("failed to trim namespace: %w", err)
		}
	}

	err = txx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, namespace string, key string) error {
	ctx, span := s.tracer.Start(ctx, "Store.Delete")
	defer span.End()

	_, err := s.db.ExecContext(
		ctx,
		s.query(`DELETE FROM %[1]scache_entries WHERE namespace = ? AND key = ?`),
		namespace,
		key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, namespace string, key string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Exists")
	defer span.End()

	var count int
	err := s.db.GetContext(
		ctx,
		&count,
		s.query(`SELECT COUNT(*) FROM %[1]scache_entries
		WHERE namespace = ? AND key = ? AND expires_at_ms > ?`),
		namespace,
		key,
		s.nowFunc().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check cache entry: %w", err)
	}
	return count > 0, nil
}

// Increment atomically bumps the counter for key and returns the new count
//
// Counters start over at 1 once expiry has passed since they were created.
func (s *Store) Increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Store.Increment")
	defer span.End()

	now := s.nowFunc()

	var count int64
	err := s.db.GetContext(
		ctx,
		&count,
		s.query(`INSERT INTO %[1]srate_counters
		(key, count, expires_at_ms)
		VALUES (?, 1, ?)
		ON CONFLICT (key)
		DO UPDATE SET
			count = CASE WHEN rate_counters.expires_at_ms <= ? THEN 1 ELSE rate_counters.count + 1 END,
			expires_at_ms = CASE WHEN rate_counters.expires_at_ms <= ? THEN excluded.expires_at_ms ELSE rate_counters.expires_at_ms END
		RETURNING count`),
		key,
		now.Add(expiry).UnixMilli(),
		now.UnixMilli(),
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return count, nil
}

// PurgeExpired removes expired cache entries and counters, returning the number of removed rows
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "Store.PurgeExpired")
	defer span.End()

	now := s.nowFunc().UnixMilli()

	var removed int64
	for _, table := range []string{"cache_entries", "rate_counters"} {
		result, err := s.db.ExecContext(
			ctx,
			s.query(`DELETE FROM %[1]s`+table+` WHERE expires_at_ms <= ?`),
			now,
		)
		if err != nil {
			err := fmt.Errorf("failed to purge expired rows: %w", err)
			reporting.Report(ctx, err, map[string]string{
				"table":   table,
				"backend": s.name,
			})
			return removed, err
		}
		affected, err := result.RowsAffected()
		if err == nil {
			removed += affected
		}
	}
	return removed, nil
}
