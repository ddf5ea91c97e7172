package sqlio

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
)

// scalar is a wrapper to force scalar binding semantics.
type scalar struct {
	v any
}

// Scalar wraps a value to force it to be treated as a single argument
// even if it is a slice/array. Useful for ANY(:ids)-style idioms.
func Scalar(v any) any {
	return scalar{v: v}
}

var bytesType = reflect.TypeOf([]byte(nil))

// binder accumulates the rewritten statement and its positional args.
type binder struct {
	dialect Dialect
	config  Config
	buf     strings.Builder
	args    []any
	n       int
}

// bind rewrites every :name in q into the dialect's positional placeholder
// and collects the matching values from inputs. Quoted strings, quoted
// identifiers, comments, dollar-quoted bodies and :: casts are copied
// through untouched. Later inputs take precedence over earlier ones.
func bind(dialect Dialect, q string, inputs []P, config Config) (string, []any, error) {
	lookup := func(name string) (any, bool) {
		for i := len(inputs) - 1; i >= 0; i-- {
			if v, ok := inputs[i][name]; ok {
				return v, true
			}
		}
		return nil, false
	}

	est := max(strings.Count(q, ":")-strings.Count(q, "::"), 0)
	w := &binder{dialect: dialect, config: config, args: make([]any, 0, est)}
	w.buf.Grow(len(q) + 16 + est*3)

	for i := 0; i < len(q); {
		c := q[i]

		if end := w.skipVerbatim(q, i); end > i {
			w.buf.WriteString(q[i:end])
			i = end
			continue
		}

		if c == ':' && i+1 < len(q) && isAlphaUnderscore(q[i+1]) && !(i > 0 && q[i-1] == ':') {
			k := i + 2
			for k < len(q) && isAlphaNumUnderscore(q[k]) {
				k++
			}
			name := q[i+1 : k]
			if config.MaxNameLen > 0 && len(name) > config.MaxNameLen {
				return "", nil, fmt.Errorf("%w: %q (%d > %d)", ErrParamNameTooLong, name, len(name), config.MaxNameLen)
			}
			v, ok := lookup(name)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrParamMissing, name)
			}
			if err := w.emit(name, v); err != nil {
				return "", nil, err
			}
			i = k
			continue
		}

		w.buf.WriteByte(c)
		i++
	}

	return w.buf.String(), w.args, nil
}

// skipVerbatim returns the end index of a quoted string, quoted identifier,
// comment or dollar-quoted body starting at i, or i when none starts there.
func (w *binder) skipVerbatim(q string, i int) int {
	c := q[i]
	switch {
	case c == '-' && i+1 < len(q) && q[i+1] == '-':
		return lineEnd(q, i+2)
	case c == '#' && w.dialect == MySQL:
		return lineEnd(q, i+1)
	case c == '/' && i+1 < len(q) && q[i+1] == '*':
		if p := strings.Index(q[i+2:], "*/"); p >= 0 {
			return i + 2 + p + 2
		}
		return len(q)
	case c == '\'' || c == '"':
		return quoteEnd(q, i, c, true)
	case c == '`' && (w.dialect == MySQL || w.dialect == SQLite):
		return quoteEnd(q, i, '`', false)
	case c == '[' && w.dialect == SQLServer:
		return quoteEnd(q, i, ']', false)
	case c == '$':
		tag, ok := readDollarTag(q[i:])
		if !ok {
			return i
		}
		if p := strings.Index(q[i+len(tag):], tag); p >= 0 {
			return i + len(tag) + p + len(tag)
		}
		return len(q)
	case c == ':' && i+1 < len(q) && q[i+1] == ':':
		// ::type cast, including a following identifier
		k := i + 2
		for k < len(q) && isAlphaNumUnderscore(q[k]) {
			k++
		}
		return k
	}
	return i
}

// emit writes the placeholders for one named value.
func (w *binder) emit(name string, v any) error {
	switch x := v.(type) {
	case scalar:
		return w.add(x.v)
	case driver.Valuer, []byte:
		return w.add(v)
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return w.add(v)
	}

	// Byte-slice aliases bind as one []byte value.
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		if rv.Type().ConvertibleTo(bytesType) {
			return w.add(rv.Convert(bytesType).Interface())
		}
		return w.add(v)
	}

	ln := rv.Len()
	if ln == 0 {
		return fmt.Errorf("%w: %s", ErrSliceEmpty, name)
	}
	if err := w.reserve(ln); err != nil {
		return err
	}
	for t := 0; t < ln; t++ {
		if t > 0 {
			w.buf.WriteString(", ")
		}
		w.n++
		writePlaceholder(&w.buf, w.dialect, w.n)
		w.args = append(w.args, rv.Index(t).Interface())
	}
	return nil
}

func (w *binder) add(v any) error {
	if err := w.reserve(1); err != nil {
		return err
	}
	w.n++
	writePlaceholder(&w.buf, w.dialect, w.n)
	w.args = append(w.args, v)
	return nil
}

func (w *binder) reserve(add int) error {
	if w.config.MaxParams > 0 && w.n+add > w.config.MaxParams {
		return fmt.Errorf("%w: requested=%d, limit=%d", ErrTooManyParams, w.n+add, w.config.MaxParams)
	}
	return nil
}

// quoteEnd returns the index just past the closing quote of the quoted run
// starting at i. A doubled closing quote is an escaped quote; when
// backslash is set, a backslash escapes the next byte.
func quoteEnd(q string, i int, closing byte, backslash bool) int {
	for j := i + 1; j < len(q); j++ {
		switch q[j] {
		case '\\':
			if backslash {
				j++
			}
		case closing:
			if j+1 < len(q) && q[j+1] == closing {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(q)
}

// lineEnd returns the index just past the end of the line starting at i.
func lineEnd(q string, i int) int {
	for ; i < len(q); i++ {
		if q[i] == '\n' || q[i] == '\r' {
			return i + 1
		}
	}
	return len(q)
}

// readDollarTag detects a dollar-quoted opening tag ("$tag$") at the start of s.
func readDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	j := 1
	for j < len(s) && isAlphaNumUnderscore(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '$' {
		return s[:j+1], true
	}
	return "", false
}

// isAlphaUnderscore reports whether b is [A-Za-z_] .
func isAlphaUnderscore(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

// isAlphaNumUnderscore reports whether b is [A-Za-z0-9_] .
func isAlphaNumUnderscore(b byte) bool {
	return isAlphaUnderscore(b) || (b >= '0' && b <= '9')
}
