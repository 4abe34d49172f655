package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"rftdraft/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS rft_tasks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    source TEXT NOT NULL DEFAULT 'local',
    rft_file_id TEXT,
    output_file_id TEXT,
    due_date TIMESTAMP WITH TIME ZONE,
    description TEXT,
    requirements JSONB,
    progress JSONB NOT NULL DEFAULT '{}'::jsonb,
    file_path TEXT,
    response_path TEXT,
    user_id TEXT,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rft_tasks_created_at ON rft_tasks(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_rft_tasks_rft_file_id ON rft_tasks(rft_file_id);
`

const selectColumns = `id, name, status, source, rft_file_id, output_file_id, due_date, description,
requirements, progress, file_path, response_path, user_id, created_at, updated_at`

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

// OpenPostgres opens a pgx-backed connection pool and verifies it is reachable.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the table and indexes if needed. Only success is
// remembered, so a call that failed with its caller's context is retried.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, apperr.Persistence("ensure task schema", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM rft_tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, apperr.Persistence("list tasks", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 16)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Persistence("scan task", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list tasks", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return Record{}, apperr.Persistence("ensure task schema", err)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM rft_tasks WHERE id = $1`, strings.TrimSpace(id))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, apperr.Persistence("get task", err)
	}
	return r, nil
}

// ClaimPending relies on FOR UPDATE SKIP LOCKED so that concurrent claims
// for the same source pick different rows or none.
func (s *PostgresStore) ClaimPending(ctx context.Context, rftFileID string) (Record, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return Record{}, apperr.Persistence("ensure task schema", err)
	}
	row := s.db.QueryRowContext(ctx, `UPDATE rft_tasks SET status = $2, updated_at = $3
WHERE id = (
    SELECT id FROM rft_tasks
    WHERE rft_file_id = $1 AND status = $4
    ORDER BY created_at DESC LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING `+selectColumns,
		strings.TrimSpace(rftFileID), string(StatusProcessing), s.now(), string(StatusPending))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, apperr.Persistence("claim pending task", err)
	}
	return r, nil
}

func (s *PostgresStore) Create(ctx context.Context, in Record) (Record, error) {
	rec, err := prepareNew(in, uuid.NewString(), s.now())
	if err != nil {
		return Record{}, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return Record{}, apperr.Persistence("ensure task schema", err)
	}
	progress, err := json.Marshal(rec.Progress)
	if err != nil {
		return Record{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO rft_tasks (id, name, status, source, rft_file_id, output_file_id, due_date, description,
    requirements, progress, file_path, response_path, user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.ID, rec.Name, string(rec.Status), string(rec.Source),
		nullString(rec.RFTFileID), nullString(rec.OutputFileID), nullTime(rec.DueDate), nullString(rec.Description),
		nullJSON(rec.Requirements), string(progress),
		nullString(rec.FilePath), nullString(rec.ResponsePath), nullString(rec.UserID),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, apperr.Persistence("create task", err)
	}
	return rec, nil
}

// Update reads the current row, applies the patch and writes every mutable
// column back. Concurrent writers race; the last one wins.
func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (Record, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	next, err := p.Apply(cur)
	if err != nil {
		return Record{}, fmt.Errorf("update task %s: %w", cur.ID, err)
	}
	next.UpdatedAt = s.now()
	progress, err := json.Marshal(next.Progress)
	if err != nil {
		return Record{}, err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE rft_tasks SET name = $2, status = $3, rft_file_id = $4, output_file_id = $5, due_date = $6,
    description = $7, requirements = $8, progress = $9, file_path = $10, response_path = $11, updated_at = $12
WHERE id = $1`,
		next.ID, next.Name, string(next.Status),
		nullString(next.RFTFileID), nullString(next.OutputFileID), nullTime(next.DueDate), nullString(next.Description),
		nullJSON(next.Requirements), string(progress),
		nullString(next.FilePath), nullString(next.ResponsePath), next.UpdatedAt,
	)
	if err != nil {
		return Record{}, apperr.Persistence("update task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Record{}, ErrNotFound
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r                                    Record
		status, source                       string
		rftFileID, outputFileID, description sql.NullString
		filePath, responsePath, userID       sql.NullString
		dueDate                              sql.NullTime
		requirements, progress               []byte
	)
	if err := row.Scan(
		&r.ID, &r.Name, &status, &source, &rftFileID, &outputFileID, &dueDate, &description,
		&requirements, &progress, &filePath, &responsePath, &userID, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	r.Status = Status(status)
	r.Source = Source(source)
	r.RFTFileID = rftFileID.String
	r.OutputFileID = outputFileID.String
	r.Description = description.String
	r.FilePath = filePath.String
	r.ResponsePath = responsePath.String
	r.UserID = userID.String
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		r.DueDate = &d
	}
	if len(requirements) > 0 {
		r.Requirements = append(json.RawMessage(nil), requirements...)
	}
	// Rows written by older clients may carry malformed progress; fall back to defaults.
	if len(progress) > 0 {
		_ = json.Unmarshal(progress, &r.Progress)
	}
	return r, nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
