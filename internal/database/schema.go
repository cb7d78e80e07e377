package database

import (
	"context"
	"database/sql"
	"fmt"

	"coa-registry/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Models lists every table model in dependency order.
func Models() []interface{} {
	return []interface{}{
		(*models.Profile)(nil),
		(*models.Event)(nil),
		(*models.Certificate)(nil),
		(*models.CoaRequest)(nil),
		(*models.ArtistRequest)(nil),
		(*models.IssuanceIntent)(nil),
	}
}

// CreateTables builds the schema from the bun models. PostgreSQL deployments
// use the SQL migrations instead; this is for SQLite and scratch databases.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}
	return nil
}

// OpenSQLite opens a shared-cache in-memory SQLite database with the schema
// applied. A single connection keeps every caller on the same database and
// serializes transactions the way row locks would on PostgreSQL.
func OpenSQLite(ctx context.Context, name string) (*bun.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := CreateTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
