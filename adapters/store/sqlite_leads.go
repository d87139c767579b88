package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	_ "modernc.org/sqlite"
)

const leadsSchema = `
CREATE TABLE IF NOT EXISTS leads (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    company    TEXT,
    email      TEXT NOT NULL,
    phone      TEXT,
    comment    TEXT NOT NULL,
    read       INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS leads_created_at ON leads (created_at DESC);
`

// SQLiteLeadStore keeps leads in an embedded SQLite database
type SQLiteLeadStore struct {
	db *sql.DB
}

// OpenSQLiteLeadStore opens (and migrates) the database at dsn
func OpenSQLiteLeadStore(ctx context.Context, dsn string) (*SQLiteLeadStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, leadsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate leads: %w", err)
	}
	return &SQLiteLeadStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteLeadStore) Close() error {
	return s.db.Close()
}

// Insert stores a new lead
func (s *SQLiteLeadStore) Insert(ctx context.Context, lead *core.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, company, email, phone, comment, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, nullString(lead.Company), lead.Email, nullString(lead.Phone),
		lead.Comment, boolInt(lead.Read), lead.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// List returns every lead, newest first
func (s *SQLiteLeadStore) List(ctx context.Context) ([]*core.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, company, email, phone, comment, read, created_at
		 FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []*core.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// Get returns one lead
func (s *SQLiteLeadStore) Get(ctx context.Context, id string) (*core.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, company, email, phone, comment, read, created_at
		 FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrLeadNotFound
	}
	return lead, err
}

// MarkRead sets the read flag of a lead
func (s *SQLiteLeadStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE leads SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark lead read: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes a lead
func (s *SQLiteLeadStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*core.Lead, error) {
	var (
		lead           core.Lead
		company, phone sql.NullString
		createdAt      int64
	)
	err := row.Scan(&lead.ID, &lead.Name, &company, &lead.Email, &phone, &lead.Comment, &lead.Read, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	lead.Company = company.String
	lead.Phone = phone.String
	lead.CreatedAt = time.Unix(0, createdAt).UTC()
	return &lead, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrLeadNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
