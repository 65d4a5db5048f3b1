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

package ir

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/matrixorigin/batsql/pkg/catalog"
)

var lastTVarID uint32

// TVar is a table variable, one FROM clause contributor of a query block.
// Head and tail links of statements point at table variables, two
// relations can be combined when they share one.
type TVar struct {
	ID   uint32
	Name string
	// Table is nil for subqueries.
	Table *catalog.Table
	// Rel is the statement producing the rows, a basetable or the result
	// list of a subquery.
	Rel  *Stmt
	Cols []*CVar
}

// CVar binds a column name of a table variable to its statement.
type CVar struct {
	TName string
	Name  string
	S     *Stmt
	TVar  *TVar
}

// NewTVar keeps a reference to rel, Release drops it.
func NewTVar(name string, t *catalog.Table, rel *Stmt) *TVar {
	tv := &TVar{
		ID:    atomic.AddUint32(&lastTVarID, 1),
		Name:  name,
		Table: t,
	}
	if rel != nil {
		tv.Rel = rel.Dup()
	}
	return tv
}

// AddColumn registers s under cname, the variable keeps a reference.
func (tv *TVar) AddColumn(s *Stmt, tname, cname string) *CVar {
	cv := &CVar{
		TName: tname,
		Name:  cname,
		S:     s.Dup(),
		TVar:  tv,
	}
	tv.Cols = append(tv.Cols, cv)
	return cv
}

// Column finds a column variable by name.
func (tv *TVar) Column(name string) *CVar {
	for _, cv := range tv.Cols {
		if cv.Name == name {
			return cv
		}
	}
	return nil
}

// Release drops the references of the variable and its columns.
func (tv *TVar) Release() {
	for _, cv := range tv.Cols {
		cv.S.Destroy()
		cv.S = nil
	}
	tv.Cols = nil
	if tv.Rel != nil {
		tv.Rel.Destroy()
		tv.Rel = nil
	}
}

func (tv *TVar) String() string {
	if tv == nil {
		return "-"
	}
	if tv.Name != "" {
		return tv.Name
	}
	if tv.Table != nil {
		return tv.Table.Name
	}
	return "tv" + strconv.Itoa(int(tv.ID))
}

type AtomKind uint8

const (
	IntAtom AtomKind = iota
	StrAtom
	FloatAtom
	// GeneralAtom keeps the value as text, a typed literal or NULL.
	GeneralAtom
)

// Atom is a typed literal.
type Atom struct {
	Kind  AtomKind
	Type  *catalog.SubType
	Int   int64
	Str   string
	Float float64
	// Null is only set on general atoms.
	Null bool
}

func NewIntAtom(t *catalog.SubType, v int64) *Atom {
	return &Atom{Kind: IntAtom, Type: t, Int: v}
}

func NewStrAtom(t *catalog.SubType, v string) *Atom {
	return &Atom{Kind: StrAtom, Type: t, Str: v}
}

func NewFloatAtom(t *catalog.SubType, v float64) *Atom {
	return &Atom{Kind: FloatAtom, Type: t, Float: v}
}

func NewGeneralAtom(t *catalog.SubType, v string) *Atom {
	return &Atom{Kind: GeneralAtom, Type: t, Str: v}
}

func NewNullAtom(t *catalog.SubType) *Atom {
	return &Atom{Kind: GeneralAtom, Type: t, Null: true}
}

// typeName is the column store name of the atom type.
func (a *Atom) typeName() string {
	if a.Type == nil || a.Type.Type == nil {
		return "void"
	}
	return a.Type.Type.Name
}

// Dump renders the atom as an instruction operand.
func (a *Atom) Dump() string {
	switch a.Kind {
	case IntAtom:
		return strconv.FormatInt(a.Int, 10)
	case StrAtom:
		return fmt.Sprintf("%q", a.Str)
	case FloatAtom:
		return fmt.Sprintf("%f", a.Float)
	}
	if a.Null {
		return a.typeName() + "(nil)"
	}
	return fmt.Sprintf("%s(%q)", a.typeName(), a.Str)
}

func (a *Atom) String() string {
	return a.Dump()
}
