package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bamford/weave-io/internal/ir"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("statement not found")

// Record is one compiled statement.
type Record struct {
	ID  string `json:"id"`
	Seq int64  `json:"seq"`

	// GraphFingerprint identifies the query graph and output the statement
	// was compiled from. It is the cache key.
	GraphFingerprint string `json:"graph_fingerprint"`

	// Fingerprint identifies the rendered statement itself.
	Fingerprint string `json:"fingerprint"`

	// Source names where the graph came from, usually a scenario name.
	Source string `json:"source,omitempty"`

	Output          string      `json:"output"`
	Text            string      `json:"text"`
	Fragments       []string    `json:"fragments"`
	Params          ir.IRObject `json:"params"`
	Checkpoints     int         `json:"checkpoints"`
	CompilerVersion string      `json:"compiler_version"`
}

// FragmentCount returns the number of fragments, excluding RETURN.
func (r Record) FragmentCount() int {
	return len(r.Fragments)
}

// Put records rec unless a record for the same graph already exists.
//
// ID and Seq are assigned by the store; values set by the caller are ignored.
// Returns the stored record and whether it was newly inserted. On a repeat
// the existing record is returned unchanged.
func (s *Store) Put(ctx context.Context, rec Record) (Record, bool, error) {
	fragmentsJSON, err := marshalFragments(rec.Fragments)
	if err != nil {
		return Record{}, false, fmt.Errorf("put statement: %w", err)
	}
	paramsJSON, err := marshalParams(rec.Params)
	if err != nil {
		return Record{}, false, fmt.Errorf("put statement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("put statement: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM statements`).Scan(&seq); err != nil {
		return Record{}, false, fmt.Errorf("put statement: next seq: %w", err)
	}
	rec.ID = s.newID()
	rec.Seq = seq

	result, err := tx.ExecContext(ctx, `
		INSERT INTO statements
		(id, seq, graph_fingerprint, fingerprint, source, output, text, fragments, params, checkpoints, compiler_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(graph_fingerprint) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.GraphFingerprint,
		rec.Fingerprint,
		rec.Source,
		rec.Output,
		rec.Text,
		fragmentsJSON,
		paramsJSON,
		rec.Checkpoints,
		rec.CompilerVersion,
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("put statement: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Record{}, false, fmt.Errorf("put statement: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		existing, err := scanRecord(tx.QueryRowContext(ctx, selectRecord+`WHERE graph_fingerprint = ?`, rec.GraphFingerprint))
		if err != nil {
			return Record{}, false, fmt.Errorf("put statement: select existing: %w", err)
		}
		return existing, false, nil
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("put statement: commit: %w", err)
	}
	if rec.Params == nil {
		rec.Params = ir.IRObject{}
	}
	if rec.Fragments == nil {
		rec.Fragments = []string{}
	}
	return rec, true, nil
}

const selectRecord = `
	SELECT id, seq, graph_fingerprint, fingerprint, source, output, text, fragments, params, checkpoints, compiler_version
	FROM statements
`

// Lookup returns the statement recorded for a graph fingerprint.
// The boolean is false when the graph has not been compiled before.
func (s *Store) Lookup(ctx context.Context, graphFingerprint string) (Record, bool, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+`WHERE graph_fingerprint = ?`, graphFingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup statement: %w", err)
	}
	return rec, true, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+`WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get statement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get statement %s: %w", id, err)
	}
	return rec, nil
}

// List returns every record in insertion order.
// Ordering is deterministic: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, selectRecord+`ORDER BY seq ASC, id COLLATE BINARY ASC`)
}

// FindByFingerprint returns every record whose rendered statement has the
// given fingerprint, in insertion order. Distinct graphs can render the same
// statement.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Record, error) {
	return s.query(ctx, selectRecord+`WHERE fingerprint = ? ORDER BY seq ASC, id COLLATE BINARY ASC`, fingerprint)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec           Record
		fragmentsJSON string
		paramsJSON    string
	)
	err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.GraphFingerprint,
		&rec.Fingerprint,
		&rec.Source,
		&rec.Output,
		&rec.Text,
		&fragmentsJSON,
		&paramsJSON,
		&rec.Checkpoints,
		&rec.CompilerVersion,
	)
	if err != nil {
		return Record{}, err
	}
	if rec.Fragments, err = unmarshalFragments(fragmentsJSON); err != nil {
		return Record{}, err
	}
	if rec.Params, err = unmarshalParams(paramsJSON); err != nil {
		return Record{}, err
	}
	return rec, nil
}
