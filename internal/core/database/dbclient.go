package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/markdave123-py/askflow/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)

// encodeBoundingBox maps a missing box to SQL NULL.
func encodeBoundingBox(bb *models.BoundingBox) (sql.NullString, error) {
	if bb == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(bb)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode bounding box: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func decodeBoundingBox(raw sql.NullString) (*models.BoundingBox, error) {
	if !raw.Valid || raw.String == "" || raw.String == "null" {
		return nil, nil
	}
	var bb models.BoundingBox
	if err := json.Unmarshal([]byte(raw.String), &bb); err != nil {
		return nil, fmt.Errorf("decode bounding box: %w", err)
	}
	return &bb, nil
}
