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

package plan

import (
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// bindFrom adds the table variable of one FROM item to sc.
func (builder *QueryBuilder) bindFrom(sc *scope.Scope, sym *tree.Symbol) (*ir.TVar, error) {
	switch sym.Token {
	case tree.TABLE:
		t := builder.bindTable(sym.Names)
		if t == nil {
			return nil, sqlError(sym, moerr.NewCatalogMiss(builder.ctx, "Table %s unknown", sym.QualifiedName()))
		}
		// a loaded view gets its columns once its query compiled
		if t.IsView() && len(t.Columns) == 0 {
			return nil, sqlError(sym, moerr.NewCatalogMiss(builder.ctx, "View %s has no columns", sym.QualifiedName()))
		}
		name := sym.Str
		if name == "" {
			name = t.Name
		}
		return sc.AddTableColumns(t, name), nil
	case tree.SELECT:
		return builder.bindDerived(sc, sym)
	case tree.JOIN, tree.NATURAL_JOIN, tree.CROSS:
		return builder.bindJoin(sc, sym)
	}
	return nil, builder.semanticError(sym, "%s in FROM", sym.Token)
}

// bindDerived compiles a named subquery in FROM. Its result rows become
// the rows of a new table variable.
func (builder *QueryBuilder) bindDerived(sc *scope.Scope, sym *tree.Symbol) (*ir.TVar, error) {
	sn := sym.Select
	if sn.Name == "" {
		return nil, builder.semanticError(sym, "subquery in FROM requires a name")
	}
	sub := scope.Open(sc.Parent())
	defer sub.Close()
	res, err := builder.bindSelect(sub, sn, derivedBlock)
	if err != nil {
		return nil, sqlError(sym, err)
	}
	if len(res.lifted) > 0 {
		return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "correlated subquery in FROM"))
	}
	if len(sn.Columns) > 0 && len(sn.Columns) != res.nsel {
		return nil, builder.semanticError(sym, "subquery %s has %d columns, %d names given",
			sn.Name, res.nsel, len(sn.Columns))
	}

	tv := sc.AddTable(res.stmt(), sn.Name)
	for i, c := range res.cols[:res.nsel] {
		cname := ir.ColumnName(c)
		if len(sn.Columns) > 0 {
			cname = sn.Columns[i]
		}
		tv.AddColumn(derivedColumn(c, cname, tv), sn.Name, cname)
	}
	return tv, nil
}

// derivedColumn renames c and makes it a column of tv.
func derivedColumn(c *ir.Stmt, name string, tv *ir.TVar) *ir.Stmt {
	a := ir.NewAlias(c, name)
	a.H, a.T, a.NrCols = tv, nil, 1
	return a
}

// bindJoin compiles an explicit join into one table variable whose
// columns are those of both sides. The sides live in their own scope, the
// join condition sees nothing else of the enclosing FROM.
func (builder *QueryBuilder) bindJoin(sc *scope.Scope, sym *tree.Symbol) (*ir.TVar, error) {
	js := scope.Open(sc.Parent())
	defer js.Close()
	tv1, err := builder.bindFrom(js, sym.List[0])
	if err != nil {
		return nil, err
	}
	tv2, err := builder.bindFrom(js, sym.List[1])
	if err != nil {
		return nil, err
	}
	if len(tv1.Cols) == 0 || len(tv2.Cols) == 0 {
		return nil, builder.semanticError(sym, "join of a table without columns")
	}

	kind := int(sym.Int)
	var cond *ir.Stmt
	switch sym.Token {
	case tree.CROSS:
		kind = tree.JoinInner
		cond = ir.NewJoin(tv1.Cols[0].S, ir.NewReverse(tv2.Cols[0].S), ir.CmpAll)
	case tree.NATURAL_JOIN:
		if sym.Sym != nil {
			return nil, builder.semanticError(sym, "Cannot have a NATURAL JOIN with a join specification (ON or USING);")
		}
		var names []string
		for _, cv := range tv1.Cols {
			if tv2.Column(cv.Name) != nil {
				names = append(names, cv.Name)
			}
		}
		if len(names) == 0 {
			return nil, builder.semanticError(sym, "No attributes of tables %s and %s match", tv1, tv2)
		}
		cond = usingJoin(tv1, tv2, names)
	default:
		switch {
		case sym.Sym == nil:
			return nil, builder.semanticError(sym, "Must have NATURAL JOIN or a JOIN with a specification (ON or USING);")
		case sym.Sym.Token == tree.USING:
			for _, name := range sym.Sym.Names {
				if tv1.Column(name) == nil || tv2.Column(name) == nil {
					return nil, builder.semanticError(sym.Sym, "Tables %s and %s do have a matching column %s", tv1, tv2, name)
				}
			}
			cond = usingJoin(tv1, tv2, sym.Sym.Names)
		default:
			if cond, err = builder.bindLogical(js, sym.Sym, nil); err != nil {
				return nil, err
			}
			cond = groupJoinRelations(cond)
		}
	}

	pivots, err := builder.buildPivot(js, cond)
	if err != nil {
		return nil, sqlError(sym, err)
	}
	fs1, fs2 := scope.FindPivot(pivots, tv1), scope.FindPivot(pivots, tv2)
	if fs1 == nil {
		return nil, builder.semanticError(sym, "Subset %s not found in join expression", tv1)
	}
	if fs2 == nil {
		return nil, builder.semanticError(sym, "Subset %s not found in join expression", tv2)
	}

	// the rows of one side without a partner, marked as new result rows
	var ld, rd *ir.Stmt
	if kind == tree.JoinLeft || kind == tree.JoinFull {
		ld = unmatched(tv1, fs1)
	}
	if kind == tree.JoinRight || kind == tree.JoinFull {
		rd = unmatched(tv2, fs2)
	}

	var cols []*ir.Stmt
	var names [][2]string
	for _, side := range []struct {
		tv         *ir.TVar
		fs         *ir.Stmt
		own, other *ir.Stmt
	}{{tv1, fs1, ld, rd}, {tv2, fs2, rd, ld}} {
		for _, cv := range side.tv.Cols {
			c := ir.NewJoin(side.fs, cv.S, ir.CmpEqual)
			if side.own != nil {
				c = ir.NewUnion(c, ir.NewJoin(side.own, cv.S, ir.CmpEqual))
			}
			if side.other != nil {
				c = ir.NewUnion(c, ir.NewConst(side.other, nullOf(cv.S)))
			}
			cols = append(cols, c)
			names = append(names, [2]string{cv.TName, cv.Name})
		}
	}

	tv := sc.AddTable(ir.NewList(cols), sym.Str)
	for i, c := range cols {
		tname := names[i][0]
		if sym.Str != "" {
			tname = sym.Str
		}
		tv.AddColumn(derivedColumn(c, names[i][1], tv), tname, names[i][1])
	}
	return tv, nil
}

// unmatched marks the rows of tv its pivot fs does not reach.
func unmatched(tv *ir.TVar, fs *ir.Stmt) *ir.Stmt {
	d := ir.NewDiff(tv.Cols[0].S, ir.NewReverse(fs))
	return ir.NewMark(ir.NewReverse(d), -1)
}

// usingJoin joins tv1 and tv2 on the equality of the named columns.
func usingJoin(tv1, tv2 *ir.TVar, names []string) *ir.Stmt {
	if len(names) == 1 {
		return ir.NewJoin(tv1.Column(names[0]).S, ir.NewReverse(tv2.Column(names[0]).S), ir.CmpEqual)
	}
	l := make([]*ir.Stmt, len(names))
	r := make([]*ir.Stmt, len(names))
	for i, name := range names {
		l[i], r[i] = tv1.Column(name).S, tv2.Column(name).S
	}
	return ir.NewRelEqJoin(l, r)
}

type joinKey struct {
	h, t *ir.TVar
}

// groupJoinRelations combines the selects on one table variable into a
// RelSelect and the equi joins between two base columns of the same pair
// of table variables into a RelEqJoin. Only a plain conjunction is
// combined.
func groupJoinRelations(cond *ir.Stmt) *ir.Stmt {
	if cond.Kind != ir.StSet {
		return cond
	}
	sels := make(map[*ir.TVar][]*ir.Stmt)
	joins := make(map[joinKey][]*ir.Stmt)
	for _, r := range cond.List {
		switch {
		case isColumnSelect(r):
			sels[r.H] = append(sels[r.H], r)
		case isEquiJoin(r):
			k := joinKey{r.H, r.T}
			joins[k] = append(joins[k], r)
		}
	}

	var res []*ir.Stmt
	done := make(map[*ir.Stmt]bool)
	for _, r := range cond.List {
		if done[r] {
			continue
		}
		switch {
		case isColumnSelect(r) && len(sels[r.H]) > 1:
			g := sels[r.H]
			for _, s := range g {
				done[s] = true
			}
			res = append(res, ir.NewRelSelect(g))
		case isEquiJoin(r) && len(joins[joinKey{r.H, r.T}]) > 1:
			g := joins[joinKey{r.H, r.T}]
			l := make([]*ir.Stmt, len(g))
			rr := make([]*ir.Stmt, len(g))
			for i, j := range g {
				done[j] = true
				l[i], rr[i] = j.Op1, j.Op2.Op1
			}
			res = append(res, ir.NewRelEqJoin(l, rr))
		default:
			done[r] = true
			res = append(res, r)
		}
	}
	n := ir.NewSet(res)
	release(cond)
	return n
}

// isEquiJoin matches join(column, reverse(column)) on equality.
func isEquiJoin(r *ir.Stmt) bool {
	return r.Kind == ir.StJoin && r.Cmp == ir.CmpEqual && r.Op1.Kind == ir.StColumn &&
		r.Op2.Kind == ir.StReverse && r.Op2.Op1.Kind == ir.StColumn && r.H != nil && r.T != nil
}

func isColumnSelect(r *ir.Stmt) bool {
	return r.Kind == ir.StSelect && r.Op3 == nil && r.Op1.Kind == ir.StColumn && r.H != nil
}
