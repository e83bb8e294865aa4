// Package store persists annotations in SQLite.
//
// It is the commit point for the posting policy: Post re-reads an entity's
// live annotations inside a write transaction and runs the caller's check
// against that snapshot before inserting, so two racing posts cannot both
// pass against the same stale state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jasper-tms/the-BANC-fly-connectome/internal/annotations"

	_ "modernc.org/sqlite"
)

// Package-level vars to allow test injection.
var (
	openDB  = sql.Open
	timeNow = time.Now
	newID   = uuid.NewString
)

// ErrNotFound is returned when a delete matches no live annotation.
var ErrNotFound = errors.New("annotation not found")

// Fixed-width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store settings.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".annobot")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the annotation database.
type Store struct {
	db  *sql.DB
	cfg Config
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Connection pragmas. They are passed in the DSN so that every pooled
// connection gets them, not just the first.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// New opens (creating if needed) the annotation database under cfg.DataDir
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	dsn := "file:" + filepath.Join(cfg.DataDir, "annotations.db") + "?" + q.Encode()

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS annotations (
			id         TEXT    PRIMARY KEY,
			table_name TEXT    NOT NULL,
			entity_id  INTEGER NOT NULL,
			class      TEXT    NOT NULL DEFAULT '',
			value      TEXT    NOT NULL,
			author     TEXT    NOT NULL DEFAULT '',
			created_at TEXT    NOT NULL,
			deleted_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_anno_entity ON annotations(table_name, entity_id);
		CREATE INDEX IF NOT EXISTS idx_anno_value  ON annotations(table_name, value);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Reads ───────────────────────────────────────────────────────────────────

const recordColumns = `id, table_name, entity_id, class, value, author, created_at`

// Annotations returns the live annotations of entity in table, oldest
// first. It implements annotations.Lookup.
func (s *Store) Annotations(ctx context.Context, table string, entity int64) ([]annotations.Record, error) {
	return liveRecords(ctx, s.db, table, entity)
}

func liveRecords(ctx context.Context, q queryer, table string, entity int64) ([]annotations.Record, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+recordColumns+`
		 FROM annotations
		 WHERE table_name = ? AND entity_id = ? AND deleted_at IS NULL
		 ORDER BY created_at, rowid`,
		table, entity,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []annotations.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (annotations.Record, error) {
	var (
		r       annotations.Record
		created string
	)
	if err := rows.Scan(&r.ID, &r.Table, &r.EntityID, &r.Class, &r.Value, &r.Author, &created); err != nil {
		return r, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return r, fmt.Errorf("annotation %s: bad created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return r, nil
}

// EntitiesWith returns the distinct entities carrying pair in table, in
// ascending order. An empty pair class matches the value under any class.
func (s *Store) EntitiesWith(ctx context.Context, table string, pair annotations.Pair) ([]int64, error) {
	query := `SELECT DISTINCT entity_id FROM annotations
		WHERE table_name = ? AND value = ? AND deleted_at IS NULL`
	args := []any{table, pair.Value}
	if pair.Class != "" {
		query += " AND class = ?"
		args = append(args, pair.Class)
	}
	query += " ORDER BY entity_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// PostParams describes an annotation to insert.
type PostParams struct {
	Table  string
	Entity int64
	Pair   annotations.Pair
	Author string
}

// CheckFunc decides whether a post may go ahead, given the entity's live
// annotations in the target table as of the write transaction.
type CheckFunc func(existing []annotations.Record) error

// writeTx runs fn on a dedicated connection inside BEGIN IMMEDIATE, so
// writers serialize and whatever fn reads cannot change before it commits.
func (s *Store) writeTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	committed = true
	return nil
}

// Post inserts an annotation if check accepts it. The check sees the
// entity's live annotations as of the write transaction. The error returned
// by check is passed through unwrapped.
func (s *Store) Post(ctx context.Context, p PostParams, check CheckFunc) (annotations.Record, error) {
	recs, err := s.PostChain(ctx, ChainParams{Table: p.Table, Entity: p.Entity, Author: p.Author},
		func(existing []annotations.Record) ([]annotations.Pair, error) {
			if check != nil {
				if err := check(existing); err != nil {
					return nil, err
				}
			}
			return []annotations.Pair{p.Pair}, nil
		})
	if err != nil {
		return annotations.Record{}, err
	}
	return recs[0], nil
}

// ChainParams names where a PostChain writes.
type ChainParams struct {
	Table  string
	Entity int64
	Author string
}

// PlanFunc decides which pairs to insert, in order, given the entity's live
// annotations in the target table as of the write transaction.
type PlanFunc func(existing []annotations.Record) ([]annotations.Pair, error)

// PostChain inserts every pair plan returns in one transaction: all of them
// or none. The error returned by plan is passed through unwrapped.
func (s *Store) PostChain(ctx context.Context, p ChainParams, plan PlanFunc) ([]annotations.Record, error) {
	var recs []annotations.Record
	err := s.writeTx(ctx, func(conn *sql.Conn) error {
		existing, err := liveRecords(ctx, conn, p.Table, p.Entity)
		if err != nil {
			return fmt.Errorf("store: read segment %d: %w", p.Entity, err)
		}
		pairs, err := plan(existing)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			return errors.New("store: nothing to post")
		}

		now := timeNow().UTC()
		for _, pair := range pairs {
			rec := annotations.Record{
				ID:        newID(),
				Table:     p.Table,
				EntityID:  p.Entity,
				Class:     pair.Class,
				Value:     pair.Value,
				Author:    p.Author,
				CreatedAt: now,
			}
			if _, err := conn.ExecContext(ctx,
				`INSERT INTO annotations (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, rec.Table, rec.EntityID, rec.Class, rec.Value, rec.Author, rec.CreatedAt.Format(timeLayout),
			); err != nil {
				return fmt.Errorf("store: insert: %w", err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteParams selects the annotation to remove. An empty pair class
// matches the value under any class.
type DeleteParams struct {
	Table  string
	Entity int64
	Pair   annotations.Pair
}

// DeleteCheckFunc decides whether target may be removed, given all of the
// entity's live annotations in the table (target included).
type DeleteCheckFunc func(target annotations.Record, existing []annotations.Record) error

// Delete soft-deletes the newest live annotation matching p, if check
// accepts it, and returns the deleted record. It returns an error wrapping
// ErrNotFound when nothing matches.
func (s *Store) Delete(ctx context.Context, p DeleteParams, check DeleteCheckFunc) (annotations.Record, error) {
	var target annotations.Record
	err := s.writeTx(ctx, func(conn *sql.Conn) error {
		existing, err := liveRecords(ctx, conn, p.Table, p.Entity)
		if err != nil {
			return fmt.Errorf("store: read segment %d: %w", p.Entity, err)
		}

		found := false
		for _, r := range existing {
			if Matches(r, p.Pair) {
				target, found = r, true
			}
		}
		if !found {
			return fmt.Errorf("%w: %q on segment %d in %s", ErrNotFound, p.Pair.String(), p.Entity, p.Table)
		}
		if check != nil {
			if err := check(target, existing); err != nil {
				return err
			}
		}

		_, err = conn.ExecContext(ctx,
			`UPDATE annotations SET deleted_at = ? WHERE id = ?`,
			timeNow().UTC().Format(timeLayout), target.ID,
		)
		return err
	})
	if err != nil {
		return annotations.Record{}, err
	}
	return target, nil
}

// Matches reports whether r carries pair. An empty pair class matches the
// value under any class.
func Matches(r annotations.Record, pair annotations.Pair) bool {
	return r.Value == pair.Value && (pair.Class == "" || r.Class == pair.Class)
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// TableStats counts live annotations in one table.
type TableStats struct {
	Table       string `json:"table"`
	Annotations int    `json:"annotations"`
	Entities    int    `json:"segments"`
}

// Stats returns per-table counts of live annotations, ordered by table name.
func (s *Store) Stats(ctx context.Context) ([]TableStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name, COUNT(*), COUNT(DISTINCT entity_id)
		 FROM annotations
		 WHERE deleted_at IS NULL
		 GROUP BY table_name
		 ORDER BY table_name`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TableStats
	for rows.Next() {
		var st TableStats
		if err := rows.Scan(&st.Table, &st.Annotations, &st.Entities); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
