package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/attacklog/attacklog/internal/models"
)

// Schema version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    name        TEXT PRIMARY KEY,
    body        TEXT NOT NULL,
    updated_at  DATETIME NOT NULL
);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory
// store. The logger is used to report unparseable records; nil disables
// that reporting.
func NewSQLiteStore(path string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &sqliteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// LoadSnapshot reads the three named records. Missing records and records
// whose JSON no longer parses both surface as nil fields; the latter is
// logged, since it means the on-disk data was damaged.
func (s *sqliteStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot

	rows, err := s.db.QueryContext(ctx, `SELECT name, body FROM records WHERE name IN (?,?,?)`,
		RecordAttacks, RecordLocationTriggers, RecordMitigations)
	if err != nil {
		return snap, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return snap, fmt.Errorf("scan record: %w", err)
		}

		switch name {
		case RecordAttacks:
			var attacks []models.Attack
			if err := json.Unmarshal([]byte(body), &attacks); err != nil {
				s.logger.Warn("attacks record unparseable, treating as absent", zap.Error(err))
				continue
			}
			snap.Attacks = attacks
		case RecordLocationTriggers:
			var tags []string
			if err := json.Unmarshal([]byte(body), &tags); err != nil {
				s.logger.Warn("trigger vocabulary record unparseable, treating as absent", zap.Error(err))
				continue
			}
			snap.LocationTriggers = tags
		case RecordMitigations:
			var tags []string
			if err := json.Unmarshal([]byte(body), &tags); err != nil {
				s.logger.Warn("mitigation vocabulary record unparseable, treating as absent", zap.Error(err))
				continue
			}
			snap.Mitigations = tags
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate records: %w", err)
	}
	return snap, nil
}

// SaveSnapshot upserts all three records in one transaction.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if snap.Attacks == nil {
		snap.Attacks = []models.Attack{}
	}
	if snap.LocationTriggers == nil {
		snap.LocationTriggers = []string{}
	}
	if snap.Mitigations == nil {
		snap.Mitigations = []string{}
	}

	for _, rec := range []struct {
		name string
		data interface{}
	}{
		{RecordAttacks, snap.Attacks},
		{RecordLocationTriggers, snap.LocationTriggers},
		{RecordMitigations, snap.Mitigations},
	} {
		body, err := json.Marshal(rec.data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", rec.name, err)
		}
		_, err = tx.ExecContext(ctx, `
            INSERT INTO records(name, body, updated_at)
            VALUES(?,?,?)
            ON CONFLICT(name) DO UPDATE SET
                body       = excluded.body,
                updated_at = excluded.updated_at
        `, rec.name, string(body), now)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", rec.name, err)
		}
	}

	return tx.Commit()
}
