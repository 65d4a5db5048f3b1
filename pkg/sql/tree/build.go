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

import "strings"

// Constructors for building statements in code.

func NewColumn(names ...string) *Symbol {
	return &Symbol{Token: COLUMN, Names: names}
}

func NewIntAtom(v int64) *Symbol {
	return &Symbol{Token: ATOM, Atom: &Atom{Kind: IntAtom, Int: v}}
}

func NewStrAtom(v string) *Symbol {
	return &Symbol{Token: ATOM, Atom: &Atom{Kind: StringAtom, Str: v}}
}

func NewFloatAtom(v float64) *Symbol {
	return &Symbol{Token: ATOM, Atom: &Atom{Kind: FloatAtom, Float: v}}
}

// NewTypedAtom is a literal like DATE '2001-01-01'.
func NewTypedAtom(tpe, v string) *Symbol {
	return &Symbol{Token: ATOM, Atom: &Atom{Kind: GeneralAtom, Type: tpe, Str: v}}
}

func NewNull() *Symbol {
	return &Symbol{Token: NULL}
}

func NewCompare(l *Symbol, op string, r *Symbol) *Symbol {
	return &Symbol{Token: COMPARE, Str: op, List: []*Symbol{l, r}}
}

func NewAnd(l, r *Symbol) *Symbol {
	return &Symbol{Token: AND, List: []*Symbol{l, r}}
}

func NewOr(l, r *Symbol) *Symbol {
	return &Symbol{Token: OR, List: []*Symbol{l, r}}
}

func NewNot(s *Symbol) *Symbol {
	return &Symbol{Token: NOT, Sym: s}
}

func NewBetween(v, lo, hi *Symbol, symmetric, not bool) *Symbol {
	s := &Symbol{Token: BETWEEN, List: []*Symbol{v, lo, hi}}
	if symmetric {
		s.Int = 1
	}
	if not {
		s.Token = NOT_BETWEEN
	}
	return s
}

func NewLike(v, pattern *Symbol, not bool) *Symbol {
	s := &Symbol{Token: LIKE, List: []*Symbol{v, pattern}}
	if not {
		s.Token = NOT_LIKE
	}
	return s
}

// NewIn is v IN (atoms...).
func NewIn(v *Symbol, not bool, atoms ...*Symbol) *Symbol {
	s := &Symbol{Token: IN, List: append([]*Symbol{v}, atoms...)}
	if not {
		s.Token = NOT_IN
	}
	return s
}

// NewInQuery is v IN (subquery).
func NewInQuery(v *Symbol, q *SelectNode, not bool) *Symbol {
	s := NewIn(v, not)
	s.Sym = NewSelect(q)
	return s
}

func NewExists(q *SelectNode, not bool) *Symbol {
	s := &Symbol{Token: EXISTS, Sym: NewSelect(q)}
	if not {
		s.Token = NOT_EXISTS
	}
	return s
}

func NewIsNull(v *Symbol, not bool) *Symbol {
	s := &Symbol{Token: IS_NULL, Sym: v}
	if not {
		s.Token = IS_NOT_NULL
	}
	return s
}

// NewAggr builds name(arg), a nil arg is name(*).
func NewAggr(name string, arg *Symbol, distinct bool) *Symbol {
	s := &Symbol{Token: AGGR, Str: name, Sym: arg}
	if distinct {
		s.Int = 1
	}
	return s
}

func NewUnop(fn string, v *Symbol) *Symbol {
	return &Symbol{Token: UNOP, Str: fn, Sym: v}
}

func NewBinop(fn string, l, r *Symbol) *Symbol {
	return &Symbol{Token: BINOP, Str: fn, List: []*Symbol{l, r}}
}

func NewTriop(fn string, a, b, c *Symbol) *Symbol {
	return &Symbol{Token: TRIOP, Str: fn, List: []*Symbol{a, b, c}}
}

func NewCast(v *Symbol, name string, digits, scale int) *Symbol {
	return &Symbol{Token: CAST, Sym: v, Type: &TypeRef{Name: name, Digits: digits, Scale: scale}}
}

// NewCase builds CASE operand WHEN ... ELSE ... END, operand is nil for a
// searched case.
func NewCase(operand *Symbol, items ...*Symbol) *Symbol {
	return &Symbol{Token: CASE, Sym: operand, List: items}
}

func NewWhen(cond, result *Symbol) *Symbol {
	return &Symbol{Token: WHEN, List: []*Symbol{cond, result}}
}

func NewElse(result *Symbol) *Symbol {
	return &Symbol{Token: ELSE, Sym: result}
}

// NewTable takes a possibly schema qualified name.
func NewTable(name, alias string) *Symbol {
	return &Symbol{Token: TABLE, Names: strings.Split(name, "."), Str: alias}
}

// NewJoin builds l JOIN r ON cond, cond may be a USING symbol.
func NewJoin(l, r *Symbol, kind int, cond *Symbol) *Symbol {
	return &Symbol{Token: JOIN, List: []*Symbol{l, r}, Int: int64(kind), Sym: cond}
}

func NewNaturalJoin(l, r *Symbol, kind int) *Symbol {
	return &Symbol{Token: NATURAL_JOIN, List: []*Symbol{l, r}, Int: int64(kind)}
}

func NewCross(l, r *Symbol) *Symbol {
	return &Symbol{Token: CROSS, List: []*Symbol{l, r}}
}

func NewUsing(cols ...string) *Symbol {
	return &Symbol{Token: USING, Names: cols}
}

func NewAlias(expr *Symbol, name string) *Symbol {
	return &Symbol{Token: ALIAS, Sym: expr, Str: name}
}

func NewStar(table ...string) *Symbol {
	return &Symbol{Token: STAR, Names: table}
}

func NewOrder(col *Symbol, direction int) *Symbol {
	return &Symbol{Token: ORDER, Sym: col, Int: int64(direction)}
}

// NewSelectNode is an empty query block without a limit.
func NewSelectNode() *SelectNode {
	return &SelectNode{Limit: -1}
}

func NewSelect(sn *SelectNode) *Symbol {
	return &Symbol{Token: SELECT, Select: sn}
}

func NewValues(vals ...*Symbol) *Symbol {
	return &Symbol{Token: VALUES, List: vals}
}

func NewDefault() *Symbol {
	return &Symbol{Token: DEFAULT}
}

// NewInsert builds INSERT INTO table (cols) src, src is VALUES or SELECT.
func NewInsert(table string, cols []string, src *Symbol) *Symbol {
	s := &Symbol{Token: INSERT, Names: strings.Split(table, "."), Sym: src}
	for _, c := range cols {
		s.List = append(s.List, NewColumn(c))
	}
	return s
}

func NewAssign(col string, v *Symbol) *Symbol {
	return &Symbol{Token: ASSIGN, Str: col, Sym: v}
}

func NewUpdate(table string, where *Symbol, assigns ...*Symbol) *Symbol {
	return &Symbol{Token: UPDATE, Names: strings.Split(table, "."), List: assigns, Sym: where}
}

func NewDelete(table string, where *Symbol) *Symbol {
	return &Symbol{Token: DELETE, Names: strings.Split(table, "."), Sym: where}
}

func NewCreateView(name string, cols []string, q *SelectNode, sql string) *Symbol {
	s := &Symbol{Token: CREATE_VIEW, Names: strings.Split(name, "."), Select: q, Str: sql}
	for _, c := range cols {
		s.List = append(s.List, NewColumn(c))
	}
	return s
}

// LastName is the unqualified name of a COLUMN or TABLE symbol.
func (s *Symbol) LastName() string {
	if len(s.Names) == 0 {
		return ""
	}
	return s.Names[len(s.Names)-1]
}
