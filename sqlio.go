package sqlio

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// SQLIO binds :named statements for one dialect. Builders are pooled, so a
// single SQLIO may be shared by concurrent executors.
type SQLIO struct {
	dialect Dialect
	config  Config
	pool    sync.Pool
}

// Builder collects the fragments of one statement and the parameter maps
// bound to it. It is single-use: Build releases it to the pool.
type Builder struct {
	s        *SQLIO
	parts    []string
	inputs   []P
	released bool
}

// Config holds the binder limits.
type Config struct {
	// MaxParams caps the placeholders one statement may expand to. Zero
	// picks the dialect's limit, negative disables the check.
	MaxParams int `yaml:"maxParams" json:"maxParams"`
	// MaxNameLen caps the length of a :name. Zero means 64.
	MaxNameLen int `yaml:"maxNameLen" json:"maxNameLen"`
}

// P maps placeholder names to values.
type P = map[string]any

// Execer is the ExecContext half of *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer is the QueryContext half of *sql.DB and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB is the connection surface the Executor needs. *sql.DB, *sql.Tx and
// *sql.Conn all satisfy it.
type DB interface {
	Execer
	Queryer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New returns a SQLIO for dialect. Zero fields of the optional cfg take the
// dialect defaults.
func New(dialect Dialect, cfg ...Config) *SQLIO {
	s := &SQLIO{
		dialect: dialect,
		config:  defaultConfig(dialect, cfg...),
	}
	s.pool.New = func() any {
		return &Builder{
			parts:  make([]string, 0, 4),
			inputs: make([]P, 0, 2),
		}
	}
	return s
}

// Dialect returns the dialect statements are bound for.
func (s *SQLIO) Dialect() Dialect {
	return s.dialect
}

// Config returns the limits in effect.
func (s *SQLIO) Config() Config {
	return s.config
}

// Write takes a Builder from the pool and starts it with sql.
func (s *SQLIO) Write(sql string) *Builder {
	b := s.pool.Get().(*Builder)
	b.s = s
	b.released = false
	if sql != "" {
		b.parts = append(b.parts, sql)
	}
	return b
}

// Write appends sql verbatim.
func (b *Builder) Write(sql string) *Builder {
	if !b.released {
		b.parts = append(b.parts, sql)
	}
	return b
}

// Bind queues parameter maps. When a name appears in more than one map the
// last one wins. Nil maps are skipped.
func (b *Builder) Bind(params ...P) *Builder {
	if b.released {
		return b
	}
	for _, p := range params {
		if p != nil {
			b.inputs = append(b.inputs, p)
		}
	}
	return b
}

// Build rewrites the :names into the dialect's placeholders, returns the
// query and its args and releases the builder.
func (b *Builder) Build() (string, []any, error) {
	if b.released {
		return "", nil, ErrBuilderReleased
	}
	defer b.Release()
	return bind(b.s.dialect, strings.Join(b.parts, ""), b.inputs, b.s.config)
}

// Release returns the builder to the pool without building. Calling it
// again is a no-op.
func (b *Builder) Release() {
	if b.released {
		return
	}
	b.released = true
	clear(b.parts)
	b.parts = b.parts[:0]
	clear(b.inputs)
	b.inputs = b.inputs[:0]
	b.s.pool.Put(b)
}

func defaultConfig(dialect Dialect, cfg ...Config) Config {
	var c Config
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.MaxParams == 0 {
		switch dialect {
		case SQLServer:
			c.MaxParams = 2100
		case SQLite:
			c.MaxParams = 999
		default:
			c.MaxParams = 65535
		}
	}
	if c.MaxNameLen <= 0 {
		c.MaxNameLen = 64
	}
	return c
}
