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

// A subquery in an expression is compiled in a scope below the current
// one. Its result carries, after the selected columns, one column per
// lifted outer table variable mapping the result rows to the rows of that
// variable. Everything built from the result must be built before the
// subquery scope is closed.

// bindScalarSubquery compiles a one column subquery used as a value. A
// correlated subquery becomes a column over the rows of the outer table
// variable.
func (builder *QueryBuilder) bindScalarSubquery(sc *scope.Scope, sym *tree.Symbol) (*ir.Stmt, error) {
	sub := scope.Open(sc)
	defer sub.Close()
	res, err := builder.bindSelect(sub, sym.Select, nestedBlock)
	if err != nil {
		return nil, err
	}
	if res.nsel != 1 {
		return nil, builder.semanticError(sym, "Subquery result wrong")
	}
	l0 := res.cols[0]
	switch len(res.lifted) {
	case 0:
		return ir.NewAlias(l0, ir.ColumnName(l0)), nil
	case 1:
		return ir.NewJoin(ir.NewReverse(res.cols[1]), l0, ir.CmpEqual), nil
	}
	return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "subquery correlated with %d tables", len(res.lifted)))
}

// bindSubqueryColumn compiles a subquery in the select list into a column
// over the rows of pivots.
func (builder *QueryBuilder) bindSubqueryColumn(sc *scope.Scope, sym *tree.Symbol, pivots *ir.Stmt) (*ir.Stmt, error) {
	sub := scope.Open(sc)
	defer sub.Close()
	res, err := builder.bindSelect(sub, sym.Select, nestedBlock)
	if err != nil {
		return nil, err
	}
	if res.nsel != 1 {
		return nil, builder.semanticError(sym, "Subquery result wrong")
	}
	l0 := res.cols[0]
	switch len(res.lifted) {
	case 0:
		first := pivots.List[0]
		if l0.NrCols == 0 {
			return ir.NewConst(first, l0), nil
		}
		return ir.NewJoin(first, l0, ir.CmpAll), nil
	case 1:
		ids := res.cols[1]
		p := scope.FindPivot(pivots, ids.T)
		if p == nil {
			return nil, builder.semanticError(sym, "Subset not found for value expression")
		}
		j := ir.NewOuterJoin(p, ir.NewReverse(ids), ir.CmpEqual, tree.JoinLeft)
		return ir.NewOuterJoin(j, l0, ir.CmpEqual, tree.JoinLeft), nil
	}
	return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "subquery correlated with %d tables", len(res.lifted)))
}

// bindInQuery compiles ls IN (subquery).
func (builder *QueryBuilder) bindInQuery(sc *scope.Scope, sym *tree.Symbol, ls *ir.Stmt) (*ir.Stmt, error) {
	sub := scope.Open(sc)
	defer sub.Close()
	res, err := builder.bindSelect(sub, sym.Sym.Select, nestedBlock)
	if err != nil {
		return nil, err
	}
	if res.nsel != 1 {
		return nil, builder.semanticError(sym, "Subquery result wrong")
	}
	rs := res.cols[0]
	if ls, rs, err = builder.matchTypes(ls, rs); err != nil {
		return nil, sqlError(sym, err)
	}

	var in *ir.Stmt
	switch len(res.lifted) {
	case 0:
		in = ir.NewReverse(ir.NewSemijoin(ir.NewReverse(ls), ir.NewReverse(rs)))
	case 1:
		ids := res.cols[res.nsel]
		if ls.H != ids.T {
			return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "IN subquery correlated with another table"))
		}
		m := ir.NewJoin(ir.NewReverse(ids), rs, ir.CmpEqual)
		in = ir.NewSelect(ls, m, ir.CmpEqual)
	default:
		return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "subquery correlated with %d tables", len(res.lifted)))
	}
	if sym.Token == tree.NOT_IN {
		return ir.NewDiff(ls, in), nil
	}
	return in, nil
}

// bindExists compiles [NOT] EXISTS (subquery). Only a correlated subquery
// is supported, the result relates the outer rows with the inner rows
// found for them.
func (builder *QueryBuilder) bindExists(sc *scope.Scope, sym *tree.Symbol) (*ir.Stmt, error) {
	sub := scope.Open(sc)
	defer sub.Close()
	res, err := builder.bindSelect(sub, sym.Sym.Select, nestedBlock)
	if err != nil {
		return nil, err
	}
	if len(res.lifted) == 0 {
		return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "uncorrelated EXISTS"))
	}
	k := len(res.cols) - len(res.lifted)
	j := ir.NewReverse(res.cols[k])
	if sym.Token == tree.NOT_EXISTS {
		if len(res.lifted) > 1 {
			return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "NOT EXISTS correlated with %d tables", len(res.lifted)))
		}
		outer := res.lifted[0]
		if len(outer.Cols) == 0 {
			return nil, builder.semanticError(sym, "table %s without columns", outer)
		}
		return ir.NewDiff(outer.Cols[0].S, j), nil
	}
	if len(res.lifted) == 1 {
		return j, nil
	}
	rels := make([]*ir.Stmt, 0, len(res.lifted)-1)
	for i := 1; i < len(res.lifted); i++ {
		rels = append(rels, ir.NewJoin(j, res.cols[k+i], ir.CmpEqual))
	}
	return ir.NewSet(rels), nil
}
