// Package statestore persists, between runs, the time of the last message
// processed from each producer. Loaded timestamps are handed to the producer
// manager so that recovery resumes where the previous run stopped.
package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var log = logging.Logger("statestore")

var ErrClosed = errors.New("state store closed")

const table = "uofsdk_producer_timestamps"

type dialect struct {
	driver string
	// placeholder returns the bind parameter for the n-th argument.
	placeholder func(n int) string
}

var (
	postgres = dialect{
		driver:      "postgres",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
	sqlite = dialect{
		driver:      "sqlite3",
		placeholder: func(int) string { return "?" },
	}
)

// Store keeps producer timestamps in a SQL table. Timestamps are stored as
// Unix milliseconds, the resolution used by recovery requests.
type Store struct {
	db      *sql.DB
	dialect dialect
	ownDB   bool

	mu     sync.Mutex
	closed bool
}

// OpenPostgres connects to the Postgres database at dsn and creates the
// table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	return open(ctx, postgres, dsn)
}

// OpenSQLite opens, creating it if missing, the SQLite database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}
	return open(ctx, sqlite, dsn)
}

func open(ctx context.Context, d dialect, dsn string) (*Store, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", d.driver, err)
	}
	if d.driver == sqlite.driver {
		// One connection, so an in-memory database is shared by all queries.
		db.SetMaxOpenConns(1)
	}
	s, err := newStore(ctx, db, d)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownDB = true
	return s, nil
}

// NewPostgres uses an existing Postgres connection pool. Closing the Store
// does not close db.
func NewPostgres(ctx context.Context, db *sql.DB) (*Store, error) {
	return newStore(ctx, db, postgres)
}

func newStore(ctx context.Context, db *sql.DB, d dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach %s database: %w", d.driver, err)
	}
	s := &Store{db: db, dialect: d}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+table+` (
	producer_id INTEGER PRIMARY KEY,
	processed_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
	)`)
	return err
}

// SaveTimestamps stores the given timestamps in one transaction. Producers
// not in timestamps keep their stored value.
func (s *Store) SaveTimestamps(ctx context.Context, timestamps map[int]time.Time) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(timestamps) == 0 {
		return nil
	}

	p := s.dialect.placeholder
	query := fmt.Sprintf(`INSERT INTO %s (producer_id, processed_at, updated_at) VALUES (%s, %s, %s)
	ON CONFLICT (producer_id) DO UPDATE SET processed_at = excluded.processed_at, updated_at = excluded.updated_at`,
		table, p(1), p(2), p(3))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for id, ts := range timestamps {
		if _, err = stmt.ExecContext(ctx, id, ts.UnixMilli(), now); err != nil {
			return fmt.Errorf("cannot save timestamp of producer %d: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	log.Debugw("Saved producer timestamps", "producers", len(timestamps))
	return nil
}

// LoadTimestamps returns the stored timestamps by producer id.
func (s *Store) LoadTimestamps(ctx context.Context) (map[int]time.Time, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT producer_id, processed_at FROM `+table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			id int
			ms int64
		)
		if err = rows.Scan(&id, &ms); err != nil {
			return nil, err
		}
		out[id] = time.UnixMilli(ms).UTC()
	}
	return out, rows.Err()
}

// DeleteTimestamps removes the stored timestamps of the given producers, or
// of all producers when none are given.
func (s *Store) DeleteTimestamps(ctx context.Context, producerIDs ...int) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(producerIDs) == 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM `+table)
		return err
	}
	marks := make([]string, len(producerIDs))
	args := make([]any, len(producerIDs))
	for i, id := range producerIDs {
		marks[i] = s.dialect.placeholder(i + 1)
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE producer_id IN (`+strings.Join(marks, ", ")+`)`, args...)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ownDB {
		return s.db.Close()
	}
	return nil
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
