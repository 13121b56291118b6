package cycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a stored cycle document. The raw JSON is kept verbatim so the
// control UI gets back exactly what it uploaded; Name is denormalised for
// listings.
type Record struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Document  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists named cycle documents.
type Repository interface {
	// Save inserts or updates a cycle document by slug. A new ID is
	// assigned on insert; the existing ID is preserved on update.
	Save(ctx context.Context, rec *Record) error

	// GetBySlug retrieves a cycle document by slug.
	GetBySlug(ctx context.Context, slug string) (*Record, error)

	// List returns all stored cycles without their documents, newest first.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a cycle document by slug.
	Delete(ctx context.Context, slug string) error
}

// SQLiteRepository is the SQLite-backed Repository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open database.
// The cycles table is created by migrations; see migrations/.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save implements Repository.
func (r *SQLiteRepository) Save(ctx context.Context, rec *Record) error {
	if err := ValidateSlug(rec.Slug); err != nil {
		return err
	}
	if len(rec.Document) == 0 {
		return fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	now := time.Now().UTC()

	existing, err := r.GetBySlug(ctx, rec.Slug)
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		_, err = r.db.ExecContext(ctx,
			`UPDATE cycles SET name = ?, document = ?, updated_at = ? WHERE slug = ?`,
			rec.Name, rec.Document, rec.UpdatedAt.Format(time.RFC3339Nano), rec.Slug,
		)
		if err != nil {
			return fmt.Errorf("updating cycle %q: %w", rec.Slug, err)
		}
		return nil

	case errors.Is(err, ErrNotFound):
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO cycles (id, slug, name, document, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Slug, rec.Name, rec.Document,
			rec.CreatedAt.Format(time.RFC3339Nano), rec.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("inserting cycle %q: %w", rec.Slug, err)
		}
		return nil

	default:
		return err
	}
}

// GetBySlug implements Repository.
func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, document, created_at, updated_at FROM cycles WHERE slug = ?`, slug)

	rec, err := scanRecord(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: slug %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("querying cycle %q: %w", slug, err)
	}
	return rec, nil
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, created_at, updated_at FROM cycles ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing cycles: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var created, updated string
		if err := rows.Scan(&rec.ID, &rec.Slug, &rec.Name, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning cycle row: %w", err)
		}
		rec.CreatedAt, rec.UpdatedAt = parseTimes(created, updated)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycle rows: %w", err)
	}
	return recs, nil
}

// Delete implements Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cycles WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("deleting cycle %q: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting cycle %q: %w", slug, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: slug %q", ErrNotFound, slug)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, withDocument bool) (*Record, error) {
	var rec Record
	var created, updated string

	var err error
	if withDocument {
		err = row.Scan(&rec.ID, &rec.Slug, &rec.Name, &rec.Document, &created, &updated)
	} else {
		err = row.Scan(&rec.ID, &rec.Slug, &rec.Name, &created, &updated)
	}
	if err != nil {
		return nil, err
	}

	rec.CreatedAt, rec.UpdatedAt = parseTimes(created, updated)
	return &rec, nil
}

func parseTimes(created, updated string) (time.Time, time.Time) {
	// Timestamps are written by this package in RFC3339Nano; parse failures
	// leave zero times rather than failing the read.
	c, _ := time.Parse(time.RFC3339Nano, created)
	u, _ := time.Parse(time.RFC3339Nano, updated)
	return c, u
}
