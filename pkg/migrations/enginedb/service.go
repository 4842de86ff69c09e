// Package enginedb holds the schema migrations of the synchronization
// engine's database.
package enginedb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry all migration files register into.
var Migrations = migrate.NewMigrations()

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if group.IsZero() {
		fmt.Println("no new migrations to run")
		return nil
	}
	fmt.Printf("migrated to %s\n", group)
	return nil
}

// Rollback reverts the last migration group.
func Rollback(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, Migrations)

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	if group.IsZero() {
		fmt.Println("no migrations to rollback")
		return nil
	}
	fmt.Printf("rolled back %s\n", group)
	return nil
}
