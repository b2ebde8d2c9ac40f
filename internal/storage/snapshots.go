// Package storage persists blueprint snapshots in a sqlite database.
package storage

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    _ "github.com/glebarez/go-sqlite"
    "github.com/google/uuid"
    "go.uber.org/zap"
)

var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one saved blueprint. Blob is the opaque encoding produced by
// blueprint.Encode; List leaves it empty.
type Snapshot struct {
    ID        string
    Name      string
    Query     string
    Steps     int
    Blob      []byte
    CreatedAt time.Time
}

type Repository struct {
    DB  *sql.DB
    log *zap.Logger
}

// Open connects to the sqlite file at path (":memory:" works for tests) and
// creates the snapshots table if needed.
func Open(path string, log *zap.Logger) (*Repository, error) {
    if log == nil { log = zap.NewNop() }
    db, err := sql.Open("sqlite", path)
    if err != nil { return nil, fmt.Errorf("open snapshot db: %w", err) }
    // one connection keeps ":memory:" databases shared across calls
    db.SetMaxOpenConns(1)
    queries := []string{
        `CREATE TABLE IF NOT EXISTS snapshots (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            query TEXT NOT NULL,
            steps INTEGER NOT NULL,
            blob BLOB NOT NULL,
            created_at TEXT NOT NULL
        );`,
        `CREATE INDEX IF NOT EXISTS snapshots_created ON snapshots (created_at);`,
    }
    for _, q := range queries {
        if _, err := db.Exec(q); err != nil {
            db.Close()
            return nil, fmt.Errorf("migrate snapshot db: %w", err)
        }
    }
    log.Debug("snapshot db ready", zap.String("path", path))
    return &Repository{DB: db, log: log}, nil
}

func (r *Repository) Close() error { return r.DB.Close() }

// Save inserts s, assigning an ID and timestamp when they are empty, and
// returns the stored record.
func (r *Repository) Save(ctx context.Context, s Snapshot) (Snapshot, error) {
    if len(s.Blob) == 0 { return Snapshot{}, errors.New("snapshot blob is empty") }
    if s.ID == "" { s.ID = uuid.NewString() }
    if s.CreatedAt.IsZero() { s.CreatedAt = time.Now().UTC() }
    _, err := r.DB.ExecContext(ctx,
        `INSERT INTO snapshots (id, name, query, steps, blob, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
        s.ID, s.Name, s.Query, s.Steps, s.Blob, s.CreatedAt.UTC().Format(timeLayout))
    if err != nil { return Snapshot{}, fmt.Errorf("save snapshot: %w", err) }
    r.log.Info("snapshot saved", zap.String("id", s.ID), zap.String("name", s.Name), zap.Int("bytes", len(s.Blob)))
    return s, nil
}

func (r *Repository) Get(ctx context.Context, id string) (Snapshot, error) {
    row := r.DB.QueryRowContext(ctx, `SELECT id, name, query, steps, blob, created_at FROM snapshots WHERE id = ?`, id)
    var (
        s       Snapshot
        created string
    )
    if err := row.Scan(&s.ID, &s.Name, &s.Query, &s.Steps, &s.Blob, &created); err != nil {
        if errors.Is(err, sql.ErrNoRows) { return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id) }
        return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
    }
    s.CreatedAt = parseTime(created)
    return s, nil
}

// List returns every snapshot without its blob, newest first.
func (r *Repository) List(ctx context.Context) ([]Snapshot, error) {
    rows, err := r.DB.QueryContext(ctx, `SELECT id, name, query, steps, created_at FROM snapshots ORDER BY created_at DESC`)
    if err != nil { return nil, fmt.Errorf("list snapshots: %w", err) }
    defer rows.Close()
    var out []Snapshot
    for rows.Next() {
        var (
            s       Snapshot
            created string
        )
        if err := rows.Scan(&s.ID, &s.Name, &s.Query, &s.Steps, &created); err != nil { return nil, err }
        s.CreatedAt = parseTime(created)
        out = append(out, s)
    }
    return out, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id string) error {
    res, err := r.DB.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
    if err != nil { return fmt.Errorf("delete snapshot: %w", err) }
    if n, _ := res.RowsAffected(); n == 0 { return fmt.Errorf("%w: %s", ErrNotFound, id) }
    r.log.Info("snapshot deleted", zap.String("id", id))
    return nil
}

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(s string) time.Time {
    t, err := time.Parse(timeLayout, s)
    if err != nil { t, err = time.Parse(time.RFC3339Nano, s) }
    if err != nil { return time.Time{} }
    return t
}
