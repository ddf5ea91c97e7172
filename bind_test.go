package sqlio

import (
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestSimpleQueries_AllDialects verifies basic substitution, duplicated names, IN expansion
// and that casts and quoted text are left alone.
func TestSimpleQueries_AllDialects(t *testing.T) {
	for _, dc := range allDialects() {
		t.Run(dc.name, func(t *testing.T) {
			out, args := mustBuild(t, dc.d,
				"SELECT * FROM t WHERE a = :x OR b = :x AND c = :y",
				map[string]any{"x": 7, "y": "ok"},
			)
			if got, want := countPlaceholders(out, dc.d), 3; got != want {
				t.Fatalf("placeholder count=%d, want %d\nquery=%s", got, want, out)
			}
			assertArgsEqual(t, args, []any{7, 7, "ok"})

			out, args = mustBuild(t, dc.d,
				"SELECT * FROM users WHERE id IN (:ids) AND status=:s",
				map[string]any{"ids": []int{10, 11, 12}, "s": "active"},
			)
			if got, want := countPlaceholders(out, dc.d), 4; got != want {
				t.Fatalf("placeholder count=%d, want %d\nquery=%s", got, want, out)
			}
			assertArgsEqual(t, args, []any{10, 11, 12, "active"})

			out, args = mustBuild(t, dc.d,
				"SELECT ':: not a cast :nope', col::int, :x",
				map[string]any{"x": 99},
			)
			if !strings.Contains(out, "::int") || !strings.Contains(out, ":nope") {
				t.Fatalf("cast or quoted text rewritten: %s", out)
			}
			assertArgsEqual(t, args, []any{99})
		})
	}
}

// TestPlaceholderStyle_ByDialect checks the exact placeholder tokens.
func TestPlaceholderStyle_ByDialect(t *testing.T) {
	tests := []struct {
		d    Dialect
		want string
	}{
		{Postgres, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"},
		{MySQL, "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"},
		{SQLite, "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"},
		{SQLServer, "SELECT * FROM t WHERE a = @p1 AND b IN (@p2, @p3)"},
	}
	for _, tt := range tests {
		out, args := mustBuild(t, tt.d, "SELECT * FROM t WHERE a = :a AND b IN (:b)", P{"a": 1, "b": []string{"x", "y"}})
		if out != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.d, out, tt.want)
		}
		assertArgsEqual(t, args, []any{1, "x", "y"})
	}
}

// TestEdgeCases_AllDialects covers empty slices, missing parameters, []byte values and
// placeholder-like text inside comments, quotes and dollar-quoted bodies.
func TestEdgeCases_AllDialects(t *testing.T) {
	for _, dc := range allDialects() {
		t.Run(dc.name, func(t *testing.T) {
			_, _, err := New(dc.d).
				Write("SELECT * FROM t WHERE id IN (:ids)").
				Bind(map[string]any{"ids": []int{}}).
				Build()
			if !errors.Is(err, ErrSliceEmpty) {
				t.Fatalf("expected ErrSliceEmpty, got: %v", err)
			}

			_, _, err = New(dc.d).
				Write("SELECT * FROM t WHERE a=:x AND b=:y").
				Bind(map[string]any{"x": 1}).
				Build()
			if !errors.Is(err, ErrParamMissing) || !strings.Contains(err.Error(), "y") {
				t.Fatalf("expected ErrParamMissing for y, got: %v", err)
			}

			// []byte must NOT expand into a list
			payload := []byte{0x01, 0x02, 0x03}
			out, args, err := New(dc.d).
				Write("UPDATE t SET bin=:p WHERE id=:id").
				Bind(map[string]any{"p": payload, "id": 10}).
				Build()
			assertNoError(t, err)
			if got, want := countPlaceholders(out, dc.d), 2; got != want {
				t.Fatalf("placeholder count=%d, want %d\nquery=%s", got, want, out)
			}
			assertArgsEqual(t, args, []any{payload, 10})

			out, args, err = New(dc.d).
				Write(`SELECT ':skip' AS s -- :skip
					/* also :skip */
					, col FROM t WHERE a=:ok AND b=':also'`).
				Bind(map[string]any{"ok": 5}).
				Build()
			assertNoError(t, err)
			if strings.Count(out, ":skip") != 3 || !strings.Contains(out, ":also") {
				t.Fatalf("quoted or commented names rewritten:\n%s", out)
			}
			assertArgsEqual(t, args, []any{5})

			out, args, err = New(dc.d).
				Write(`SELECT $tag$:not a param :nope$tag$, :x`).
				Bind(map[string]any{"x": 123}).
				Build()
			assertNoError(t, err)
			assertArgsEqual(t, args, []any{123})
			if !strings.Contains(out, ":nope") {
				t.Fatalf("content inside dollar-quoted should remain textual, ':nope' missing in:\n%s", out)
			}

			// An unclosed $$ runs to the end of the statement.
			out, args, err = New(dc.d).
				Write(`SELECT $$ not closed :inside , :x`).
				Bind(map[string]any{"x": 1}).
				Build()
			assertNoError(t, err)
			if len(args) != 0 {
				t.Fatalf("len(args)=%d, want 0 (unclosed dollar-quoted)", len(args))
			}
			if !strings.Contains(out, ":inside") || !strings.Contains(out, ":x") {
				t.Fatalf("content inside $$... should remain textual:\n%s", out)
			}

			out, _, err = New(dc.d).
				Write(`SELECT $ not_a_tag ':nope' , :y`).
				Bind(map[string]any{"y": 2}).
				Build()
			assertNoError(t, err)
			if got, want := countPlaceholders(out, dc.d), 1; got != want {
				t.Fatalf("placeholder count=%d, want %d\nquery=%s", got, want, out)
			}
		})
	}
}

// TestBackslashEscapes_SingleQuoted_AllDialects ensures an escaped quote does not end
// the literal early.
func TestBackslashEscapes_SingleQuoted_AllDialects(t *testing.T) {
	for _, dc := range allDialects() {
		out, args := mustBuild(t, dc.d, `SELECT 'it\'s :nope', 'a''b :nope2', :v`, P{"v": 1})
		if !strings.Contains(out, ":nope") || !strings.Contains(out, ":nope2") {
			t.Fatalf("[%s] quoted names rewritten:\n%s", dc.name, out)
		}
		assertArgsEqual(t, args, []any{1})
	}
}

// TestQuotedIdentifierEscapes_AllDialects checks backtick and bracket escapes survive.
func TestQuotedIdentifierEscapes_AllDialects(t *testing.T) {
	for _, dc := range allDialects() {
		out, args, err := New(dc.d).
			Write("SELECT `a``b` AS x, [we]]ird] AS y, :v").
			Bind(map[string]any{"v": 1}).Build()
		assertNoError(t, err)
		if !strings.Contains(out, "`a``b`") || !strings.Contains(out, "[we]]ird]") {
			t.Fatalf("[%s] identifier escape not preserved:\n%s", dc.name, out)
		}
		assertArgsEqual(t, args, []any{1})
	}
}

// TestMySQLHashComment checks # starts a comment only for MySQL.
func TestMySQLHashComment(t *testing.T) {
	_, args := mustBuild(t, MySQL, "SELECT :a # :b\n", P{"a": 1})
	assertArgsEqual(t, args, []any{1})

	_, _, err := New(Postgres).Write("SELECT :a # :b\n").Bind(P{"a": 1}).Build()
	if !errors.Is(err, ErrParamMissing) {
		t.Fatalf("expected ErrParamMissing for :b outside MySQL, got: %v", err)
	}
}

type stamp time.Time

func (s stamp) Value() (driver.Value, error) { return time.Time(s), nil }

type tagList []string

func (l tagList) Value() (driver.Value, error) { return strings.Join(l, ","), nil }

type blob []byte

// TestScalarAndValuer_NotExpanded checks Scalar, driver.Valuer slices and byte-slice
// aliases bind as one argument.
func TestScalarAndValuer_NotExpanded(t *testing.T) {
	for _, dc := range allDialects() {
		ids := []int64{1, 2}
		when := stamp(time.Unix(0, 0))
		tags := tagList{"a", "b"}
		out, args := mustBuild(t, dc.d,
			"SELECT :ids, :when, :tags, :blob",
			P{"ids": Scalar(ids), "when": when, "tags": tags, "blob": blob{9}},
		)
		if got := countPlaceholders(out, dc.d); got != 4 {
			t.Fatalf("[%s] placeholders=%d, want 4\n%s", dc.name, got, out)
		}
		assertArgsEqual(t, args, []any{ids, when, tags, []byte{9}})
	}
}

// TestArrayExpansion checks fixed-size arrays expand like slices.
func TestArrayExpansion(t *testing.T) {
	out, args := mustBuild(t, Postgres, "SELECT * FROM t WHERE id IN (:ids)", P{"ids": [3]int{4, 5, 6}})
	if out != "SELECT * FROM t WHERE id IN ($1, $2, $3)" {
		t.Fatalf("unexpected SQL: %s", out)
	}
	assertArgsEqual(t, args, []any{4, 5, 6})
}

// TestLimits_MaxParams_Custom enforces a custom MaxParams limit.
func TestLimits_MaxParams_Custom(t *testing.T) {
	for _, dc := range allDialects() {
		b := New(dc.d, Config{MaxParams: 5})
		_, _, err := b.
			Write("SELECT * FROM t WHERE a IN (:ids) AND x=:x AND y=:y").
			Bind(map[string]any{"ids": []int{1, 2, 3, 4}, "x": 9, "y": 10}).
			Build()
		if !errors.Is(err, ErrTooManyParams) {
			t.Fatalf("[%s] expected ErrTooManyParams, got: %v", dc.name, err)
		}
	}
}

// TestLimits_Unlimited checks a negative MaxParams disables the limit.
func TestLimits_Unlimited(t *testing.T) {
	ids := make([]int, 1500)
	for i := range ids {
		ids[i] = i
	}
	_, args, err := New(SQLite, Config{MaxParams: -1}).
		Write("SELECT * FROM t WHERE id IN (:ids)").
		Bind(P{"ids": ids}).
		Build()
	assertNoError(t, err)
	if len(args) != len(ids) {
		t.Fatalf("len(args)=%d, want %d", len(args), len(ids))
	}

	_, _, err = New(SQLite).
		Write("SELECT * FROM t WHERE id IN (:ids)").
		Bind(P{"ids": ids}).
		Build()
	if !errors.Is(err, ErrTooManyParams) {
		t.Fatalf("expected ErrTooManyParams with the SQLite default, got: %v", err)
	}
}

// TestLimits_NameLen verifies MaxNameLen (default or configured) is enforced for :name.
func TestLimits_NameLen(t *testing.T) {
	long := strings.Repeat("a", 65)
	for _, dc := range allDialects() {
		_, _, err := New(dc.d).Write("SELECT :" + long).Bind(map[string]any{long: 1}).Build()
		if !errors.Is(err, ErrParamNameTooLong) {
			t.Fatalf("[%s] expected ErrParamNameTooLong, got: %v", dc.name, err)
		}
	}
	_, _, err := New(MySQL, Config{MaxNameLen: 3}).Write("SELECT :abcd").Bind(P{"abcd": 1}).Build()
	if !errors.Is(err, ErrParamNameTooLong) {
		t.Fatalf("expected ErrParamNameTooLong with MaxNameLen=3, got: %v", err)
	}
}
