package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/forms"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/media"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/submissions"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/syncqueue"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/pressly/goose/v3"
)

// schemaVersion is the newest migration this binary knows about. A database
// migrated further ahead belongs to a newer build and must not be touched.
const schemaVersion = 2

// Repositories bundles one repository per local collection.
type Repositories struct {
	Submissions submissions.Repository
	Forms       forms.Repository
	Media       media.Repository
	Queue       syncqueue.Repository
	Metadata    metadata.Repository
	DB          *sql.DB
}

// RunMigrations applies any pending embedded migrations. Migrations are
// additive, so opening an older on-disk schema upgrades it in place without
// destroying existing data.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > schemaVersion {
		return fmt.Errorf("database is at schema %d, binary supports up to %d: %w",
			current, schemaVersion, common.ErrSchemaVersionMismatch)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the local store, applies migrations, and wires the
// per-collection repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIO, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		Submissions: submissions.NewSQLiteRepository(db),
		Forms:       forms.NewSQLiteRepository(db),
		Media:       media.NewSQLiteRepository(db),
		Queue:       syncqueue.NewSQLiteRepository(db),
		Metadata:    metadata.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}
