package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
