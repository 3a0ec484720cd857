package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/server/migrations"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/objects"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// PostgresRepositoryManager keeps the object store in one PostgreSQL table.
type PostgresRepositoryManager struct {
	db    *sql.DB
	store *objects.PostgresStore
}

func NewPostgresRepositoryManager(dsn string) (*PostgresRepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &PostgresRepositoryManager{db: db, store: objects.NewPostgresStore(db)}, nil
}

// RunMigrations applies the embedded goose migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresRepositoryManager) Conn() *sql.DB { return m.db }

func (m *PostgresRepositoryManager) Objects() objects.Bucket { return m.store }

func (m *PostgresRepositoryManager) Provisioner() objects.Provisioner {
	return objects.NewPrefixProvisioner(m.store)
}

func (m *PostgresRepositoryManager) Signer() objects.Signer { return nil }

func (m *PostgresRepositoryManager) Close() error { return m.db.Close() }
