package sqlio

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect identifies the SQL dialect for placeholder rendering, pagination
// syntax and the default connection capabilities.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	SQLite
	SQLServer
)

// Capabilities describes optional statement features the connection
// supports. The executor branches on these instead of on driver names.
type Capabilities struct {
	// DeleteLimit reports whether DELETE ... LIMIT n is accepted.
	DeleteLimit bool `yaml:"deleteLimit" json:"deleteLimit"`
	// Returning reports whether INSERT ... RETURNING is accepted. When set,
	// Insert reads the generated id from the statement instead of
	// relying on LastInsertId.
	Returning bool `yaml:"returning" json:"returning"`
}

// String returns the string representation of the dialect.
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	case SQLServer:
		return "sqlserver"
	default:
		return "unknown"
	}
}

// Capabilities returns the default capabilities of the dialect.
// SQLite accepts DELETE ... LIMIT only in builds with
// SQLITE_ENABLE_UPDATE_DELETE_LIMIT, which mattn/go-sqlite3 does not ship.
func (d Dialect) Capabilities() Capabilities {
	switch d {
	case MySQL:
		return Capabilities{DeleteLimit: true}
	case Postgres:
		return Capabilities{Returning: true}
	default:
		return Capabilities{}
	}
}

// DialectFromDriver maps a database/sql driver name to its Dialect.
func DialectFromDriver(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx", "pq":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "sqlserver", "mssql":
		return SQLServer, nil
	}
	return 0, fmt.Errorf("%w: unsupported driver %q", ErrUsage, name)
}

// writePlaceholder emits a dialect-specific placeholder token for argument idx.
func writePlaceholder(b *strings.Builder, d Dialect, idx int) {
	var tmp [20]byte
	switch d {
	case Postgres:
		b.WriteByte('$')
		b.Write(strconv.AppendInt(tmp[:0], int64(idx), 10))
	case SQLServer:
		b.WriteString("@p")
		b.Write(strconv.AppendInt(tmp[:0], int64(idx), 10))
	default: // MySQL, SQLite
		b.WriteByte('?')
	}
}
