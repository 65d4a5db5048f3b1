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

// selectResult is a compiled query block. cols are the result columns,
// for a correlated block they are followed by one column per entry of
// lifted linking the result rows to the outer rows.
type selectResult struct {
	cols   []*ir.Stmt
	order  *ir.Stmt
	lifted []*ir.TVar
	// nsel is the number of selected columns.
	nsel int
}

func (r *selectResult) stmt() *ir.Stmt {
	l := ir.NewList(r.cols)
	if r.order != nil {
		return ir.NewOrdered(r.order, l)
	}
	return l
}

type blockKind int

const (
	outerBlock blockKind = iota
	// derivedBlock is a subquery in FROM.
	derivedBlock
	// nestedBlock is a subquery in an expression, it may be correlated.
	nestedBlock
)

// bindSelect compiles a query block in sc. Only the outermost block of a
// statement may have a LIMIT.
func (builder *QueryBuilder) bindSelect(sc *scope.Scope, sn *tree.SelectNode, kind blockKind) (*selectResult, error) {
	if kind != outerBlock && sn.HasLimit() {
		return nil, moerr.NewSemantic(builder.ctx, "Can only limit outer select")
	}
	if len(sn.From) == 0 {
		return builder.bindSimpleSelect(sc, sn)
	}
	for _, f := range sn.From {
		if _, err := builder.bindFrom(sc, f); err != nil {
			return nil, sqlError(f, err)
		}
	}

	var cond *ir.Stmt
	var err error
	if sn.Where != nil {
		if cond, err = builder.bindLogical(sc, sn.Where, nil); err != nil {
			return nil, err
		}
	}
	pivots, err := builder.buildPivot(sc, cond)
	if err != nil {
		return nil, sqlError(sn.Where, err)
	}

	grp, err := builder.bindGroupBy(sc, sn, pivots)
	if err != nil {
		return nil, err
	}
	if sn.Having != nil {
		h, err := builder.bindHaving(sc, sn.Having, grp)
		if err != nil {
			return nil, err
		}
		if grp != nil {
			grp.ext = ir.NewSemijoin(grp.ext, h)
		} else {
			restricted := make([]*ir.Stmt, len(pivots.List))
			for i, p := range pivots.List {
				restricted[i] = ir.NewSemijoin(p, h)
			}
			pivots = ir.NewList(restricted)
			sc.SetPivot(pivots)
		}
	}

	res := &selectResult{}
	if sn.Selection == nil {
		if res.cols, err = builder.bindStar(sc, nil, grp, pivots, kind != nestedBlock); err != nil {
			return nil, err
		}
	}
	for _, item := range sn.Selection {
		var cols []*ir.Stmt
		switch item.Token {
		case tree.STAR:
			cols, err = builder.bindStar(sc, item, grp, pivots, true)
		case tree.ALIAS:
			var s *ir.Stmt
			if s, err = builder.bindColumnExp(sc, item.Sym, grp, pivots); err == nil {
				s = ir.NewAlias(s, item.Str)
				sc.AddAlias(s, item.Str)
				cols = []*ir.Stmt{s}
			}
		default:
			var s *ir.Stmt
			if s, err = builder.bindColumnExp(sc, item, grp, pivots); err == nil {
				cols = []*ir.Stmt{s}
			}
		}
		if err != nil {
			return nil, sqlError(item, err)
		}
		res.cols = append(res.cols, cols...)
	}
	res.nsel = len(res.cols)

	if sn.Distinct {
		builder.distinct(res)
	}
	if kind == nestedBlock {
		for _, tv := range sc.Lifted() {
			p := scope.FindPivot(pivots, tv)
			if p == nil {
				continue
			}
			if grp != nil {
				p = ir.NewJoin(grp.ext, p, ir.CmpEqual)
			}
			res.cols = append(res.cols, p)
			res.lifted = append(res.lifted, tv)
		}
	}

	if res.order, err = builder.bindOrderBy(sc, sn, grp, pivots); err != nil {
		return nil, err
	}
	if sn.HasLimit() {
		if res.order != nil {
			res.order = ir.NewLimit(res.order, int(sn.Limit))
		} else {
			res.order = ir.NewLimit(res.cols[0], int(sn.Limit))
		}
	}
	return res, nil
}

// bindSimpleSelect compiles a query without FROM, a list of values.
func (builder *QueryBuilder) bindSimpleSelect(sc *scope.Scope, sn *tree.SelectNode) (*selectResult, error) {
	if sn.Where != nil || len(sn.GroupBy) > 0 || sn.Having != nil {
		return nil, builder.semanticError(sn.Where, "Query without FROM can not filter or group")
	}
	if sn.Selection == nil {
		return nil, moerr.NewSemantic(builder.ctx, "SELECT * without FROM")
	}
	res := &selectResult{}
	for _, item := range sn.Selection {
		sym, name := item, ""
		if item.Token == tree.ALIAS {
			sym, name = item.Sym, item.Str
		}
		s, err := builder.bindValue(sc, sym, nil, nil)
		if err != nil {
			return nil, err
		}
		if name != "" {
			s = ir.NewAlias(s, name)
			sc.AddAlias(s, name)
		}
		res.cols = append(res.cols, s)
	}
	res.nsel = len(res.cols)
	return res, nil
}

// bindStar expands * or table.*. A bare * of a subquery in an expression
// only needs the row identity, the pivot of the first table.
func (builder *QueryBuilder) bindStar(sc *scope.Scope, item *tree.Symbol, grp *group, pivots *ir.Stmt, expand bool) ([]*ir.Stmt, error) {
	tables := sc.Tables()
	if item != nil && len(item.Names) > 0 {
		name := item.QualifiedName()
		tv := sc.BindTable(name)
		if tv == nil {
			return nil, moerr.NewCatalogMiss(builder.ctx, "Table %s unknown", name)
		}
		tables = []*ir.TVar{tv}
	} else if !expand {
		p := scope.FindPivot(pivots, sc.FirstTable())
		if p == nil {
			return nil, moerr.NewSemantic(builder.ctx, "Subset not found for value expression")
		}
		return []*ir.Stmt{p}, nil
	}
	var cols []*ir.Stmt
	for _, tv := range tables {
		p := scope.FindPivot(pivots, tv)
		if p == nil {
			return nil, moerr.NewSemantic(builder.ctx, "Subset %s not found", tv)
		}
		if grp != nil {
			p = ir.NewJoin(grp.ext, p, ir.CmpEqual)
		}
		for _, cv := range tv.Cols {
			cols = append(cols, ir.NewJoin(p, cv.S, ir.CmpEqual))
		}
	}
	return cols, nil
}

// bindColumnExp compiles one result column over the pivot rows, or over
// the groups when the query is grouped.
func (builder *QueryBuilder) bindColumnExp(sc *scope.Scope, sym *tree.Symbol, grp *group, pivots *ir.Stmt) (*ir.Stmt, error) {
	if sym.Token == tree.SELECT {
		return builder.bindSubqueryColumn(sc, sym, pivots)
	}
	s, err := builder.bindValue(sc, sym, grp, pivots)
	if err != nil {
		return nil, err
	}
	if s.Kind == ir.StAtom {
		return ir.NewConst(pivots.List[0], s), nil
	}
	if grp != nil && s.NrCols > 0 && !containsAggr(s) {
		return ir.NewJoin(grp.ext, s, ir.CmpEqual), nil
	}
	return s, nil
}

// distinct groups over all result columns and keeps one row per group.
func (builder *QueryBuilder) distinct(res *selectResult) {
	var g *group
	for _, c := range res.cols {
		if c.NrCols == 0 {
			return
		}
	}
	for _, c := range res.cols {
		g = newGroup(c, g)
	}
	if g == nil {
		return
	}
	for i, c := range res.cols {
		res.cols[i] = ir.NewJoin(g.ext, c, ir.CmpEqual)
	}
}

// bindOrderBy builds the order of the result rows, an order item is a
// column or the alias of a result column.
func (builder *QueryBuilder) bindOrderBy(sc *scope.Scope, sn *tree.SelectNode, grp *group, pivots *ir.Stmt) (*ir.Stmt, error) {
	var order *ir.Stmt
	for _, item := range sn.OrderBy {
		col := item.Sym
		if col.Token != tree.COLUMN {
			return nil, builder.semanticError(item, "order not of type SQL_COLUMN")
		}
		var tname string
		if len(col.Names) > 1 {
			tname = col.Names[len(col.Names)-2]
		}
		s, err := sc.Bind(builder.ctx, tname, col.LastName())
		if err != nil {
			return nil, sqlError(col, err)
		}
		if s == nil {
			return nil, sqlError(col, moerr.NewCatalogMiss(builder.ctx, "Column: %s unknown", col.QualifiedName()))
		}
		if s.H != nil {
			p := scope.FindPivot(pivots, s.H)
			if p == nil {
				return nil, builder.semanticError(col, "Subset not found for value expression")
			}
			s = ir.NewJoin(p, s, ir.CmpEqual)
			if grp != nil {
				s = ir.NewJoin(grp.ext, s, ir.CmpEqual)
			}
		}
		if order == nil {
			order = ir.NewOrder(s, int(item.Int))
		} else {
			order = ir.NewReorder(order, s, int(item.Int))
		}
	}
	return order, nil
}
