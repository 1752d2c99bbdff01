package repository

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"entgo.io/ent/dialect"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state
var migrateMu sync.Mutex

// RunMigrations applies the embedded SQL migrations for the driver's dialect via goose.
// If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, entDialect string) error {
	if database == nil {
		return nil
	}
	gooseDialect, dir := "postgres", "migrations/postgres"
	if entDialect == dialect.SQLite {
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}
