// Copyright 2021 - 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tree

import (
	"fmt"
	"strings"
)

type Token int

const (
	UNKNOWN Token = iota

	// statements
	SELECT
	INSERT
	UPDATE
	DELETE
	CREATE_VIEW

	// table references
	TABLE
	JOIN
	NATURAL_JOIN
	CROSS
	USING

	// logical expressions
	AND
	OR
	NOT
	COMPARE
	BETWEEN
	NOT_BETWEEN
	LIKE
	NOT_LIKE
	IN
	NOT_IN
	EXISTS
	NOT_EXISTS
	IS_NULL
	IS_NOT_NULL

	// value expressions
	COLUMN
	ATOM
	NULL
	UNOP
	BINOP
	TRIOP
	OP
	AGGR
	CAST
	CASE
	WHEN
	ELSE
	NULLIF
	COALESCE

	// clause items
	ALIAS
	STAR
	ORDER
	ASSIGN
	VALUES
	DEFAULT
)

var tokenNames = [...]string{
	UNKNOWN:      "UNKNOWN",
	SELECT:       "SELECT",
	INSERT:       "INSERT",
	UPDATE:       "UPDATE",
	DELETE:       "DELETE",
	CREATE_VIEW:  "CREATE_VIEW",
	TABLE:        "TABLE",
	JOIN:         "JOIN",
	NATURAL_JOIN: "NATURAL_JOIN",
	CROSS:        "CROSS",
	USING:        "USING",
	AND:          "AND",
	OR:           "OR",
	NOT:          "NOT",
	COMPARE:      "COMPARE",
	BETWEEN:      "BETWEEN",
	NOT_BETWEEN:  "NOT_BETWEEN",
	LIKE:         "LIKE",
	NOT_LIKE:     "NOT_LIKE",
	IN:           "IN",
	NOT_IN:       "NOT_IN",
	EXISTS:       "EXISTS",
	NOT_EXISTS:   "NOT_EXISTS",
	IS_NULL:      "IS_NULL",
	IS_NOT_NULL:  "IS_NOT_NULL",
	COLUMN:       "COLUMN",
	ATOM:         "ATOM",
	NULL:         "NULL",
	UNOP:         "UNOP",
	BINOP:        "BINOP",
	TRIOP:        "TRIOP",
	OP:           "OP",
	AGGR:         "AGGR",
	CAST:         "CAST",
	CASE:         "CASE",
	WHEN:         "WHEN",
	ELSE:         "ELSE",
	NULLIF:       "NULLIF",
	COALESCE:     "COALESCE",
	ALIAS:        "ALIAS",
	STAR:         "STAR",
	ORDER:        "ORDER",
	ASSIGN:       "ASSIGN",
	VALUES:       "VALUES",
	DEFAULT:      "DEFAULT",
}

func (t Token) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// ParseToken is the inverse of Token.String, it is case insensitive.
func ParseToken(s string) (Token, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range tokenNames {
		if name == s {
			return Token(i), true
		}
	}
	return UNKNOWN, false
}

// Join kinds carried in the Int of a JOIN or NATURAL_JOIN symbol.
const (
	JoinInner = iota
	JoinLeft
	JoinRight
	JoinFull
)

// Order directions carried in the Int of an ORDER symbol.
const (
	Ascending  = 0
	Descending = 1
)

type AtomKind int

const (
	IntAtom AtomKind = iota
	StringAtom
	FloatAtom
	// GeneralAtom is a typed literal like DATE '2001-01-01', the value is
	// kept as text.
	GeneralAtom
	NullAtom
)

var atomKindNames = [...]string{"int", "string", "float", "general", "null"}

func (k AtomKind) String() string {
	if k >= 0 && int(k) < len(atomKindNames) {
		return atomKindNames[k]
	}
	return "unknown"
}

// Atom is a literal.
type Atom struct {
	Kind  AtomKind `yaml:"kind"`
	Int   int64    `yaml:"int,omitempty"`
	Str   string   `yaml:"str,omitempty"`
	Float float64  `yaml:"float,omitempty"`
	// Type names the SQL type of general and null atoms.
	Type string `yaml:"type,omitempty"`
}

func (a *Atom) String() string {
	switch a.Kind {
	case IntAtom:
		return fmt.Sprintf("%d", a.Int)
	case StringAtom:
		return fmt.Sprintf("'%s'", a.Str)
	case FloatAtom:
		return fmt.Sprintf("%f", a.Float)
	case GeneralAtom:
		return fmt.Sprintf("%s '%s'", a.Type, a.Str)
	}
	return "NULL"
}

// TypeRef is the target type of a CAST.
type TypeRef struct {
	Name   string `yaml:"name"`
	Digits int    `yaml:"digits,omitempty"`
	Scale  int    `yaml:"scale,omitempty"`
}

// Symbol is one node of the parsed statement. The payload fields used
// depend on Token:
//
//	TABLE           Names qualified table name, Str alias
//	JOIN            List [left, right], Int join kind, Sym ON condition or USING
//	NATURAL_JOIN    List [left, right], Int join kind
//	CROSS           List [left, right]
//	USING           Names column names
//	AND, OR         List [left, right]
//	NOT             Sym
//	COMPARE         List [left, right], Str operator
//	BETWEEN         List [value, low, high], Int 1 for SYMMETRIC
//	LIKE            List [value, pattern] or [value, pattern, escape]
//	IN              List [value, atoms...] or List [value] and Sym subquery
//	EXISTS          Sym subquery
//	IS_NULL         Sym
//	COLUMN          Names [column] or [table, column]
//	ATOM            Atom
//	UNOP            Str function, Sym operand
//	BINOP, TRIOP    Str function, List operands
//	OP              Str function
//	AGGR            Str aggregate, Sym argument (nil for *), Int 1 for DISTINCT
//	CAST            Sym value, Type
//	CASE            Sym operand (nil when searched), List WHEN/ELSE items
//	WHEN            List [condition or value, result]
//	ELSE            Sym result
//	NULLIF,COALESCE List operands
//	ALIAS           Sym expression, Str name
//	STAR            Names optional [table]
//	ORDER           Sym column or alias, Int direction
//	ASSIGN          Str column, Sym value
//	VALUES          List values
//	SELECT          Select
//	INSERT          Names table, List COLUMN targets, Sym VALUES or SELECT
//	UPDATE          Names table, List ASSIGN items, Sym WHERE condition
//	DELETE          Names table, Sym WHERE condition
//	CREATE_VIEW     Names view, List COLUMN names, Select query, Str query text
type Symbol struct {
	Token  Token       `yaml:"token"`
	Int    int64       `yaml:"int,omitempty"`
	Str    string      `yaml:"str,omitempty"`
	Names  []string    `yaml:"names,omitempty"`
	List   []*Symbol   `yaml:"list,omitempty"`
	Sym    *Symbol     `yaml:"sym,omitempty"`
	Atom   *Atom       `yaml:"atom,omitempty"`
	Select *SelectNode `yaml:"select,omitempty"`
	Type   *TypeRef    `yaml:"type,omitempty"`
	Line   int         `yaml:"line,omitempty"`
	Col    int         `yaml:"col,omitempty"`
}

// SelectNode is a query block.
type SelectNode struct {
	Distinct bool `yaml:"distinct,omitempty"`
	// Selection nil selects every column.
	Selection []*Symbol `yaml:"selection,omitempty"`
	From      []*Symbol `yaml:"from,omitempty"`
	Where     *Symbol   `yaml:"where,omitempty"`
	GroupBy   []*Symbol `yaml:"groupby,omitempty"`
	Having    *Symbol   `yaml:"having,omitempty"`
	OrderBy   []*Symbol `yaml:"orderby,omitempty"`
	// Limit is -1 without a LIMIT clause.
	Limit int64 `yaml:"limit,omitempty"`
	// Name and Columns rename a subquery used as a table.
	Name    string   `yaml:"name,omitempty"`
	Columns []string `yaml:"columns,omitempty"`
	SQL     string   `yaml:"sql,omitempty"`
}

// HasLimit reports whether a LIMIT clause is present.
func (sn *SelectNode) HasLimit() bool {
	return sn.Limit >= 0
}

// QualifiedName joins Names with dots.
func (s *Symbol) QualifiedName() string {
	return strings.Join(s.Names, ".")
}

// Pos is the source position used in error details.
func (s *Symbol) Pos() (int, int) {
	if s == nil {
		return 0, 0
	}
	return s.Line, s.Col
}

func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	var sb strings.Builder
	s.format(&sb)
	return sb.String()
}

func (s *Symbol) format(sb *strings.Builder) {
	switch s.Token {
	case COLUMN, TABLE:
		sb.WriteString(s.QualifiedName())
		if s.Str != "" {
			sb.WriteString(" AS ")
			sb.WriteString(s.Str)
		}
		return
	case ATOM:
		sb.WriteString(s.Atom.String())
		return
	case NULL:
		sb.WriteString("NULL")
		return
	case STAR:
		if len(s.Names) > 0 {
			sb.WriteString(s.QualifiedName())
			sb.WriteString(".")
		}
		sb.WriteString("*")
		return
	case COMPARE:
		s.List[0].format(sb)
		sb.WriteString(" " + s.Str + " ")
		s.List[1].format(sb)
		return
	case SELECT:
		sb.WriteString("(SELECT ...)")
		return
	}
	sb.WriteString(s.Token.String())
	if s.Str != "" {
		sb.WriteString(" " + s.Str)
	}
	sb.WriteString("(")
	first := true
	if s.Sym != nil {
		s.Sym.format(sb)
		first = false
	}
	for _, l := range s.List {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		if l == nil {
			sb.WriteString("<nil>")
			continue
		}
		l.format(sb)
	}
	sb.WriteString(")")
}
