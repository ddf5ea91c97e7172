package sqlio

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// IDColumn is the primary key column used by the by-id shorthands and by
// INSERT ... RETURNING.
const IDColumn = "id"

// Statement is a rendered descriptor: SQL with :named placeholders and the
// values bound to those names.
type Statement struct {
	Op     string
	Table  string
	SQL    string
	Params P
}

// Renderer turns descriptors into Statements for one dialect and
// capability set. The zero value renders Postgres-style pagination with no
// optional capabilities.
type Renderer struct {
	Dialect Dialect
	Caps    Capabilities
}

// NewRenderer returns a Renderer using the dialect's default capabilities.
func NewRenderer(d Dialect) Renderer {
	return Renderer{Dialect: d, Caps: d.Capabilities()}
}

// Select renders
// SELECT <cols> FROM <table> [WHERE ...] [ORDER BY ...] [LIMIT ...] [OFFSET ...].
func (r Renderer) Select(q Query) (Statement, error) {
	if err := requireTable("select", q.From); err != nil {
		return Statement{}, err
	}
	st := Statement{Op: "select", Table: q.From, Params: P{}}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(q.Select) == 0 {
		sb.WriteByte('*')
	} else {
		sb.WriteString(strings.Join(q.Select, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.From)
	writeWhere(&sb, q.Where, st.Params)
	if q.OrderBy != nil && q.OrderBy.Col != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.OrderBy.Col)
		sb.WriteByte(' ')
		sb.WriteString(q.OrderBy.dir())
	}
	r.writePage(&sb, q)

	st.SQL = sb.String()
	return st, nil
}

// Count renders SELECT COUNT(*) AS total over the same FROM and WHERE as
// Select. Ordering and pagination are ignored.
func (r Renderer) Count(q Query) (Statement, error) {
	if err := requireTable("getTotal", q.From); err != nil {
		return Statement{}, err
	}
	st := Statement{Op: "getTotal", Table: q.From, Params: P{}}

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) AS total FROM ")
	sb.WriteString(q.From)
	writeWhere(&sb, q.Where, st.Params)

	st.SQL = sb.String()
	return st, nil
}

// GetByID renders SELECT * FROM <table> WHERE id = :id.
func (r Renderer) GetByID(table string, id any) (Statement, error) {
	if err := requireTable("getById", table); err != nil {
		return Statement{}, err
	}
	return Statement{
		Op:     "getById",
		Table:  table,
		SQL:    "SELECT * FROM " + table + " WHERE " + IDColumn + " = :" + IDColumn,
		Params: P{IDColumn: id},
	}, nil
}

// Insert renders INSERT INTO <table> (<cols>) VALUES (<placeholders>),
// adding RETURNING id when the connection supports it.
func (r Renderer) Insert(m Mutation) (Statement, error) {
	if err := requireTable("insert", m.Table); err != nil {
		return Statement{}, err
	}
	if len(m.Data) == 0 {
		return Statement{}, usageErrorf("insert into %s: no data", m.Table)
	}
	st := Statement{Op: "insert", Table: m.Table, Params: P{}}

	cols := sortedKeys(m.Data)
	phs := make([]string, len(cols))
	for i, col := range cols {
		name := claimName(st.Params, paramName(col))
		st.Params[name] = m.Data[col]
		phs[i] = ":" + name
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(m.Table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(phs, ", "))
	sb.WriteByte(')')
	if r.Caps.Returning {
		sb.WriteString(" RETURNING ")
		sb.WriteString(IDColumn)
	}

	st.SQL = sb.String()
	return st, nil
}

// Update renders UPDATE <table> SET col = :col, ... WHERE col = :where_col AND ...
// WHERE values live under a where_ prefix so a column may appear in both
// clauses.
func (r Renderer) Update(m Mutation) (Statement, error) {
	if err := requireTable("update", m.Table); err != nil {
		return Statement{}, err
	}
	if len(m.Data) == 0 {
		return Statement{}, usageErrorf("update %s: no data", m.Table)
	}
	if len(m.Where) == 0 {
		return Statement{}, usageErrorf("update %s: where filter is required", m.Table)
	}
	st := Statement{Op: "update", Table: m.Table, Params: P{}}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(m.Table)
	sb.WriteString(" SET ")
	for i, col := range sortedKeys(m.Data) {
		if i > 0 {
			sb.WriteString(", ")
		}
		name := claimName(st.Params, paramName(col))
		st.Params[name] = m.Data[col]
		sb.WriteString(col)
		sb.WriteString(" = :")
		sb.WriteString(name)
	}
	writeEquals(&sb, m.Where, "where_", st.Params)

	st.SQL = sb.String()
	return st, nil
}

// Delete renders DELETE FROM <table> WHERE col = :col AND ..., appending
// LIMIT n only on connections with the DeleteLimit capability.
func (r Renderer) Delete(m Mutation) (Statement, error) {
	if err := requireTable("delete", m.Table); err != nil {
		return Statement{}, err
	}
	if len(m.Where) == 0 {
		return Statement{}, usageErrorf("delete from %s: where filter is required", m.Table)
	}
	st := Statement{Op: "delete", Table: m.Table, Params: P{}}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(m.Table)
	writeEquals(&sb, m.Where, "", st.Params)
	if r.Caps.DeleteLimit && m.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(m.Limit))
	}

	st.SQL = sb.String()
	return st, nil
}

// DeleteByID renders DELETE FROM <table> WHERE id = :id.
func (r Renderer) DeleteByID(table string, id any) (Statement, error) {
	if err := requireTable("deleteById", table); err != nil {
		return Statement{}, err
	}
	return Statement{
		Op:     "deleteById",
		Table:  table,
		SQL:    "DELETE FROM " + table + " WHERE " + IDColumn + " = :" + IDColumn,
		Params: P{IDColumn: id},
	}, nil
}

// writePage appends the dialect's pagination clause.
func (r Renderer) writePage(sb *strings.Builder, q Query) {
	if q.Limit <= 0 && q.Offset <= 0 {
		return
	}
	if r.Dialect == SQLServer {
		if q.OrderBy == nil || q.OrderBy.Col == "" {
			sb.WriteString(" ORDER BY (SELECT NULL)")
		}
		fmt.Fprintf(sb, " OFFSET %d ROWS", max(q.Offset, 0))
		if q.Limit > 0 {
			fmt.Fprintf(sb, " FETCH NEXT %d ROWS ONLY", q.Limit)
		}
		return
	}
	if q.Limit > 0 {
		fmt.Fprintf(sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(sb, " OFFSET %d", q.Offset)
	}
}

// writeWhere renders predicate terms as "<col> <op> :<name>" and
// connective tokens verbatim, upper-cased.
func writeWhere(sb *strings.Builder, conds []Condition, params P) {
	if len(conds) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	for i, c := range conds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if c.IsConnective() {
			sb.WriteString(strings.ToUpper(strings.TrimSpace(c.Word)))
			continue
		}
		op := strings.TrimSpace(c.Op)
		if op == "" {
			op = "="
		}
		name := claimName(params, paramName(c.Col))
		params[name] = c.Val

		sb.WriteString(c.Col)
		sb.WriteByte(' ')
		sb.WriteString(op)
		if isListOp(op) {
			sb.WriteString(" (:")
			sb.WriteString(name)
			sb.WriteByte(')')
		} else {
			sb.WriteString(" :")
			sb.WriteString(name)
		}
	}
}

// writeEquals renders an AND-joined equality filter in column order.
func writeEquals(sb *strings.Builder, where map[string]any, prefix string, params P) {
	sb.WriteString(" WHERE ")
	for i, col := range sortedKeys(where) {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		name := claimName(params, prefix+paramName(col))
		params[name] = where[col]
		sb.WriteString(col)
		sb.WriteString(" = :")
		sb.WriteString(name)
	}
}

func requireTable(op, table string) error {
	if strings.TrimSpace(table) == "" {
		return usageErrorf("%s: table is required", op)
	}
	return nil
}

// paramName derives a placeholder name from a column reference such as
// "u.created_at".
func paramName(col string) string {
	b := []byte(strings.TrimSpace(col))
	for i, c := range b {
		if !isAlphaNumUnderscore(c) {
			b[i] = '_'
		}
	}
	if len(b) == 0 || !isAlphaUnderscore(b[0]) {
		return "p_" + string(b)
	}
	return string(b)
}

// claimName returns base, or base_2, base_3, ... when already bound.
func claimName(params P, base string) string {
	name := base
	for i := 2; ; i++ {
		if _, taken := params[name]; !taken {
			return name
		}
		name = base + "_" + strconv.Itoa(i)
	}
}

func isListOp(op string) bool {
	switch strings.ToUpper(strings.Join(strings.Fields(op), " ")) {
	case "IN", "NOT IN":
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
