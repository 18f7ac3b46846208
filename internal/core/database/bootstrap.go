package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/askflow/internal/core"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// schemaVersion is the askflow_meta row written by scripts/initdb.sql.
const schemaVersion = 1

// EnsureBootstrapped creates the schema for vectors of size dim if it is missing and
// fails with core.ErrDimensionMismatch when an existing schema was built for another size.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, dim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'askflow_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}

	if !exists {
		if err := runBootstrap(ctxBoot, db, dim); err != nil {
			return err
		}
	}

	var stored int
	err = db.QueryRowContext(ctxBoot, `SELECT embedding_dim FROM askflow_meta WHERE version = $1`, schemaVersion).Scan(&stored)
	if err == sql.ErrNoRows {
		if err := runBootstrap(ctxBoot, db, dim); err != nil {
			return err
		}
		stored = dim
	} else if err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}

	if stored != dim {
		return fmt.Errorf("%w: store has %d, EMBED_DIM is %d", core.ErrDimensionMismatch, stored, dim)
	}
	return nil
}

func runBootstrap(ctx context.Context, db *sql.DB, dim int) error {
	sqlBytes, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return fmt.Errorf("read initdb.sql: %w", err)
	}
	script := strings.ReplaceAll(string(sqlBytes), "{{EMBED_DIM}}", strconv.Itoa(dim))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
