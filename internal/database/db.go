package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wagateway/gateway-server-go/internal/config"
)

// Driver names, also used as the dialect passed to the device store.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// SQLiteFileName is the credential database created inside AUTH_DIR.
const SQLiteFileName = "session.db"

type DB struct {
	*sqlx.DB
	Dialect string
}

// Connect opens the postgres database at databaseURL.
func Connect(databaseURL string) (*DB, error) {
	db, err := sqlx.Connect(DialectPostgres, databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(config.DBConnMaxLifetime)

	return &DB{DB: db, Dialect: DialectPostgres}, nil
}

// ConnectSQLite opens (creating when needed) the credential file inside dir.
func ConnectSQLite(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create auth dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dir, SQLiteFileName) + "?_foreign_keys=on"
	db, err := sqlx.Connect(DialectSQLite, dsn)
	if err != nil {
		return nil, err
	}

	// sqlite serializes writers anyway; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
