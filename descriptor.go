package sqlio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Query describes a SELECT (or the COUNT derived from it).
type Query struct {
	// Select lists the projected columns; empty means "*".
	Select []string `yaml:"select,omitempty" json:"select,omitempty"`
	// From is the source table. Required.
	From string `yaml:"from" json:"from"`
	// Where holds predicate terms and connective tokens in order.
	Where   []Condition `yaml:"where,omitempty" json:"where,omitempty"`
	OrderBy *Order      `yaml:"orderBy,omitempty" json:"orderBy,omitempty"`
	// Limit and Offset are rendered only when positive.
	Limit  int `yaml:"limit,omitempty" json:"limit,omitempty"`
	Offset int `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Condition is either a predicate term (Col, Op, Val) or, when Word is set,
// a connective token such as AND / OR that is upper-cased and inserted
// verbatim between predicates. Alternation is not validated.
type Condition struct {
	Col  string `yaml:"col,omitempty" json:"col,omitempty"`
	Op   string `yaml:"op,omitempty" json:"op,omitempty"`
	Val  any    `yaml:"val,omitempty" json:"val,omitempty"`
	Word string `yaml:"word,omitempty" json:"word,omitempty"`
}

// Order is a single ORDER BY term.
type Order struct {
	Col string `yaml:"col" json:"col"`
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// Mutation describes an INSERT, UPDATE or DELETE.
type Mutation struct {
	Table string `yaml:"table" json:"table"`
	// Data holds the column values written by insert/update.
	Data map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
	// Where is an equality-only filter, AND-joined, for update/delete.
	Where map[string]any `yaml:"where,omitempty" json:"where,omitempty"`
	// Limit caps a delete on connections with Capabilities.DeleteLimit and
	// is ignored elsewhere. Zero means no cap.
	Limit int `yaml:"limit,omitempty" json:"limit,omitempty"`
}

var (
	And = Condition{Word: "AND"}
	Or  = Condition{Word: "OR"}
)

// Where returns a predicate term.
func Where(col, op string, val any) Condition {
	return Condition{Col: col, Op: op, Val: val}
}

// Word returns a connective token.
func Word(w string) Condition {
	return Condition{Word: w}
}

// Asc orders by col ascending.
func Asc(col string) *Order { return &Order{Col: col, Dir: "ASC"} }

// Desc orders by col descending.
func Desc(col string) *Order { return &Order{Col: col, Dir: "DESC"} }

// IsConnective reports whether c is a connective token.
func (c Condition) IsConnective() bool {
	return c.Word != ""
}

// ParseQuery decodes a YAML query descriptor. Unknown keys are rejected.
func ParseQuery(b []byte) (Query, error) {
	var q Query
	if err := decodeStrict(b, &q); err != nil {
		return Query{}, err
	}
	return q, nil
}

// ParseMutation decodes a YAML mutation descriptor. Unknown keys are rejected.
func ParseMutation(b []byte) (Mutation, error) {
	var m Mutation
	if err := decodeStrict(b, &m); err != nil {
		return Mutation{}, err
	}
	return m, nil
}

func decodeStrict(b []byte, out any) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return usageErrorf("empty descriptor")
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decoding descriptor: %w", ErrUsage, err)
	}
	return nil
}

func (o *Order) dir() string {
	if strings.TrimSpace(o.Dir) == "" {
		return "ASC"
	}
	return strings.ToUpper(o.Dir)
}
