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

package scope

import (
	"context"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

type alias struct {
	name string
	s    *ir.Stmt
}

// Scope is one level of name resolution, a FROM clause or a nested
// subquery. Lookups fall through to the parent scopes.
type Scope struct {
	parent  *Scope
	tables  []*ir.TVar
	aliases []alias
	pivot   *ir.Stmt

	// lifted lists the outer table variables referenced from this scope in
	// first use order, liftedIDs holds their ids.
	lifted    []*ir.TVar
	liftedIDs *roaring.Bitmap
}

// Open starts a scope below parent, parent may be nil.
func Open(parent *Scope) *Scope {
	return &Scope{
		parent:    parent,
		liftedIDs: roaring.New(),
	}
}

// Close releases everything the scope holds and returns the parent.
func (s *Scope) Close() *Scope {
	for _, tv := range s.tables {
		tv.Release()
	}
	s.tables = nil
	for _, a := range s.aliases {
		a.s.Destroy()
	}
	s.aliases = nil
	if s.pivot != nil {
		s.pivot.Destroy()
		s.pivot = nil
	}
	s.lifted = nil
	s.liftedIDs.Clear()
	return s.parent
}

func (s *Scope) Parent() *Scope {
	return s.parent
}

// AddTable registers rel under name. A base table statement without a
// head gets the new variable as head.
func (s *Scope) AddTable(rel *ir.Stmt, name string) *ir.TVar {
	var t *catalog.Table
	if rel != nil && rel.Kind == ir.StBaseTable {
		t = rel.Table
	}
	tv := ir.NewTVar(name, t, rel)
	if rel != nil && rel.Kind == ir.StBaseTable && rel.H == nil {
		rel.H = tv
	}
	s.tables = append(s.tables, tv)
	return tv
}

// AddTableColumns registers table t under name with one column statement
// per catalog column. View columns are read like base columns, the
// optimizer replaces them by the view plan.
func (s *Scope) AddTableColumns(t *catalog.Table, name string) *ir.TVar {
	tv := s.AddTable(ir.NewBaseTable(t, nil), name)
	for _, c := range t.Columns {
		tv.AddColumn(ir.NewColumn(c, tv), name, c.Name)
	}
	return tv
}

// AddAlias makes s referable by name, used by ORDER BY.
func (s *Scope) AddAlias(st *ir.Stmt, name string) {
	s.aliases = append(s.aliases, alias{name: name, s: st.Dup()})
}

// Tables are the table variables of this scope only.
func (s *Scope) Tables() []*ir.TVar {
	return s.tables
}

func (s *Scope) FirstTable() *ir.TVar {
	if len(s.tables) == 0 {
		return nil
	}
	return s.tables[0]
}

func (s *Scope) FirstColumn() *ir.CVar {
	tv := s.FirstTable()
	if tv == nil || len(tv.Cols) == 0 {
		return nil
	}
	return tv.Cols[0]
}

// BindTable searches the chain outward for a table variable named name.
func (s *Scope) BindTable(name string) *ir.TVar {
	for sc := s; sc != nil; sc = sc.parent {
		for _, tv := range sc.tables {
			if tv.Name == name {
				return tv
			}
		}
	}
	return nil
}

// BindColumn resolves a column reference. With tname only columns
// registered under that table name match, the nearest scope holding the
// table wins. Without tname the nearest scope with any match wins and two
// matches there are ambiguous.
//
// A column found above s lifts its table variable into s. When the scope
// owning the variable already has a pivot, the column is restricted to
// the rows of that pivot.
//
// The returned statement is borrowed, nil without error means not found.
func (s *Scope) BindColumn(ctx context.Context, tname, cname string) (*ir.Stmt, error) {
	for sc := s; sc != nil; sc = sc.parent {
		cv, err := sc.findColumn(ctx, tname, cname)
		if err != nil {
			return nil, err
		}
		if cv == nil {
			continue
		}
		if sc == s {
			return cv.S, nil
		}
		return s.lift(ctx, sc, cv), nil
	}
	return nil, nil
}

func (s *Scope) findColumn(ctx context.Context, tname, cname string) (*ir.CVar, error) {
	var found *ir.CVar
	for _, tv := range s.tables {
		for _, cv := range tv.Cols {
			if cv.Name != cname || (tname != "" && cv.TName != tname) {
				continue
			}
			if found == nil {
				found = cv
				continue
			}
			// the columns of a join result repeat the names of the
			// joined tables, the first one is taken
			if found.TVar != tv {
				if tname != "" {
					return nil, moerr.NewAmbiguousColumn(ctx, tname+"."+cname)
				}
				return nil, moerr.NewAmbiguousColumn(ctx, cname)
			}
		}
	}
	return found, nil
}

func (s *Scope) lift(ctx context.Context, owner *Scope, cv *ir.CVar) *ir.Stmt {
	tv := cv.TVar
	if !s.liftedIDs.Contains(tv.ID) {
		s.liftedIDs.Add(tv.ID)
		s.lifted = append(s.lifted, tv)
		logutil2.Debug(ctx, "lift outer table variable",
			zap.String("table", tv.String()),
			zap.String("column", cv.Name))
	}
	if owner.pivot != nil {
		if p := FindPivot(owner.pivot, tv); p != nil {
			return ir.NewSemijoin(cv.S, ir.NewReverse(p))
		}
	}
	return cv.S
}

// BindAlias finds a value alias of this scope or an ancestor, the result
// is borrowed.
func (s *Scope) BindAlias(name string) *ir.Stmt {
	for sc := s; sc != nil; sc = sc.parent {
		for i := len(sc.aliases) - 1; i >= 0; i-- {
			if sc.aliases[i].name == name {
				return sc.aliases[i].s
			}
		}
	}
	return nil
}

// Bind tries a column first and falls back to a value alias when no table
// name is given.
func (s *Scope) Bind(ctx context.Context, tname, name string) (*ir.Stmt, error) {
	st, err := s.BindColumn(ctx, tname, name)
	if err != nil || st != nil {
		return st, err
	}
	if tname == "" {
		return s.BindAlias(name), nil
	}
	return nil, nil
}

// Lifted lists the outer table variables referenced from this scope.
func (s *Scope) Lifted() []*ir.TVar {
	return s.lifted
}

// SetPivot keeps a reference to the pivot list of the scope.
func (s *Scope) SetPivot(p *ir.Stmt) {
	if p != nil {
		p.Dup()
	}
	if s.pivot != nil {
		s.pivot.Destroy()
	}
	s.pivot = p
}

func (s *Scope) Pivot() *ir.Stmt {
	return s.pivot
}

// FindPivot returns the pivot of tv in the pivot list pivots without
// taking a reference.
func FindPivot(pivots *ir.Stmt, tv *ir.TVar) *ir.Stmt {
	if pivots == nil || tv == nil {
		return nil
	}
	for _, p := range pivots.List {
		if p.T == tv {
			return p
		}
	}
	return nil
}
