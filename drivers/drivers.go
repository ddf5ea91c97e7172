// Package drivers opens database/sql connections for sqlio and classifies
// driver-specific errors. Importing it registers the mysql, postgres and
// sqlite3 drivers.
package drivers

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/gandaldf/sqlio"
)

// Open opens a connection pool described by cfg and returns it with the
// matching dialect. MySQL connect strings are validated before opening.
// Like sql.Open, it does not dial.
func Open(cfg DBConfig) (*sql.DB, sqlio.Dialect, error) {
	dialect, err := sqlio.DialectFromDriver(cfg.Driver)
	if err != nil {
		return nil, 0, err
	}
	url, err := cfg.URL()
	if err != nil {
		return nil, 0, err
	}
	if dialect == sqlio.MySQL {
		if _, err := mysql.ParseDSN(url); err != nil {
			return nil, 0, fmt.Errorf("parsing mysql connect string: %w", err)
		}
	}

	db, err := sql.Open(driverName(cfg.Driver, dialect), url)
	if err != nil {
		return nil, 0, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, dialect, nil
}

// Connect opens cfg and wraps the pool in an Executor. The executor's binder
// limits and capabilities come from cfg; opts are applied after them.
// The caller owns the returned *sql.DB and must close it.
func Connect(cfg DBConfig, opts ...sqlio.Option) (*sqlio.Executor, *sql.DB, error) {
	db, dialect, err := Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	caps := dialect.Capabilities()
	if cfg.Capabilities != nil {
		caps = *cfg.Capabilities
	}
	all := []sqlio.Option{sqlio.WithConfig(cfg.Executor), sqlio.WithCapabilities(caps)}
	e, err := sqlio.NewExecutor(db, dialect, append(all, opts...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return e, db, nil
}

// Detect returns the dialect of an already opened pool from its driver.
func Detect(db *sql.DB) (sqlio.Dialect, error) {
	switch db.Driver().(type) {
	case *mysql.MySQLDriver:
		return sqlio.MySQL, nil
	case *pq.Driver:
		return sqlio.Postgres, nil
	case *sqlite3.SQLiteDriver:
		return sqlio.SQLite, nil
	}
	return 0, fmt.Errorf("%w: unrecognized driver %T", sqlio.ErrUsage, db.Driver())
}

// IsDuplicate reports whether err wraps a unique key violation: MySQL's
// Error 1062: Duplicate entry, Postgres unique_violation (23505), or a
// SQLite UNIQUE / PRIMARY KEY constraint failure.
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// driverName maps a configured driver alias to the name registered with
// database/sql.
func driverName(name string, dialect sqlio.Dialect) string {
	switch dialect {
	case sqlio.MySQL:
		return "mysql"
	case sqlio.Postgres:
		return "postgres"
	case sqlio.SQLite:
		return "sqlite3"
	}
	return name
}
