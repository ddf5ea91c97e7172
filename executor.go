package sqlio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmhodges/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs descriptor-driven statements against one connection.
// It is safe for concurrent use when the underlying DB is.
type Executor struct {
	db      DB
	s       *SQLIO
	r       Renderer
	log     *slog.Logger
	clk     clock.Clock
	tracer  trace.Tracer
	metrics *metrics
}

// NewExecutor returns an Executor for db speaking dialect. Capabilities
// default to the dialect's; see WithCapabilities.
func NewExecutor(db DB, dialect Dialect, opts ...Option) (*Executor, error) {
	if db == nil {
		return nil, usageErrorf("nil database handle")
	}
	e := &Executor{
		db:     db,
		s:      New(dialect),
		r:      NewRenderer(dialect),
		log:    slog.New(slog.DiscardHandler),
		clk:    clock.New(),
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Dialect returns the executor's dialect.
func (e *Executor) Dialect() Dialect {
	return e.r.Dialect
}

// Capabilities returns the capabilities statements are rendered with.
func (e *Executor) Capabilities() Capabilities {
	return e.r.Caps
}

// Renderer returns the renderer used for statements, handy for logging the
// SQL an operation would run.
func (e *Executor) Renderer() Renderer {
	return e.r
}

// Select returns every row matching q, in driver order.
func (e *Executor) Select(ctx context.Context, q Query) ([]Row, error) {
	st, err := e.r.Select(q)
	if err != nil {
		return nil, err
	}
	return e.rows(ctx, st)
}

// GetByID returns the row whose id equals id, or nil when there is none.
func (e *Executor) GetByID(ctx context.Context, table string, id any) (Row, error) {
	st, err := e.r.GetByID(table, id)
	if err != nil {
		return nil, err
	}
	rows, err := e.rows(ctx, st)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// GetTotal counts the rows matching q's table and filter. Select, OrderBy,
// Limit and Offset are ignored.
func (e *Executor) GetTotal(ctx context.Context, q Query) (int64, error) {
	st, err := e.r.Count(q)
	if err != nil {
		return 0, err
	}
	var total int64
	err = e.run(ctx, st, func(ctx context.Context, query string, args []any) error {
		return e.db.QueryRowContext(ctx, query, args...).Scan(&total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// GetPageCount returns ceil(total/pageSize) for q. pageSize must be positive.
func (e *Executor) GetPageCount(ctx context.Context, q Query, pageSize int) (int, error) {
	if pageSize <= 0 {
		return 0, usageErrorf("page size must be positive, got %d", pageSize)
	}
	total, err := e.GetTotal(ctx, q)
	if err != nil {
		return 0, err
	}
	return PageCount(total, pageSize)
}

// GetPages returns the page numbers to offer for q. See Pages for the
// windowing rules.
func (e *Executor) GetPages(ctx context.Context, q Query, pageSize, maxButtons, current int) ([]int, error) {
	n, err := e.GetPageCount(ctx, q, pageSize)
	if err != nil {
		return nil, err
	}
	return Pages(n, maxButtons, current), nil
}

// Insert writes one row and returns the new row's id. With the Returning
// capability the id comes from RETURNING id; otherwise from LastInsertId.
func (e *Executor) Insert(ctx context.Context, m Mutation) (int64, error) {
	st, err := e.r.Insert(m)
	if err != nil {
		return 0, err
	}

	var id int64
	if e.r.Caps.Returning {
		err = e.run(ctx, st, func(ctx context.Context, query string, args []any) error {
			return e.db.QueryRowContext(ctx, query, args...).Scan(&id)
		})
	} else {
		err = e.run(ctx, st, func(ctx context.Context, query string, args []any) error {
			res, err := e.db.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("reading last insert id: %w", err)
			}
			return nil
		})
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update sets m.Data on the rows matching m.Where. It reports true when the
// statement ran, whether or not any row changed.
func (e *Executor) Update(ctx context.Context, m Mutation) (bool, error) {
	st, err := e.r.Update(m)
	if err != nil {
		return false, err
	}
	return e.exec(ctx, st)
}

// Delete removes the rows matching m.Where, at most m.Limit of them when the
// connection supports a DELETE limit. It reports true when the statement ran.
func (e *Executor) Delete(ctx context.Context, m Mutation) (bool, error) {
	st, err := e.r.Delete(m)
	if err != nil {
		return false, err
	}
	return e.exec(ctx, st)
}

// DeleteByID removes the row whose id equals id.
func (e *Executor) DeleteByID(ctx context.Context, table string, id any) (bool, error) {
	st, err := e.r.DeleteByID(table, id)
	if err != nil {
		return false, err
	}
	return e.exec(ctx, st)
}

func (e *Executor) rows(ctx context.Context, st Statement) ([]Row, error) {
	var out []Row
	err := e.run(ctx, st, func(ctx context.Context, query string, args []any) error {
		rows, err := e.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = scanRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Executor) exec(ctx context.Context, st Statement) (bool, error) {
	err := e.run(ctx, st, func(ctx context.Context, query string, args []any) error {
		_, err := e.db.ExecContext(ctx, query, args...)
		return err
	})
	return err == nil, err
}
