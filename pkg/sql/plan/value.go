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
	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// bindValue compiles a value expression. With a pivot list subset the
// columns are read through the pivot of their table variable, grp is the
// grouping aggregates refer to.
func (builder *QueryBuilder) bindValue(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	var s *ir.Stmt
	var err error
	switch sym.Token {
	case tree.COLUMN:
		s, err = builder.bindColumnRef(sc, sym, subset)
	case tree.ATOM, tree.NULL:
		s, err = builder.bindAtom(sym)
	case tree.UNOP:
		s, err = builder.bindUnop(sc, sym, grp, subset)
	case tree.BINOP:
		s, err = builder.bindBinop(sc, sym, grp, subset)
	case tree.TRIOP:
		s, err = builder.bindTriop(sc, sym, grp, subset)
	case tree.OP:
		if builder.cat.BindFunc(sym.Str, nil, nil, nil) == nil {
			err = builder.semanticError(sym, "operator: %s() unknown", sym.Str)
		} else {
			err = sqlError(sym, moerr.NewNYI(builder.ctx, "operator %s() without operands", sym.Str))
		}
	case tree.AGGR:
		s, err = builder.bindAggr(sc, sym, grp, subset)
	case tree.CAST:
		s, err = builder.bindCast(sc, sym, grp, subset)
	case tree.CASE:
		s, err = builder.bindCase(sc, sym, grp, subset)
	case tree.NULLIF, tree.COALESCE:
		var c *tree.Symbol
		if c, err = rewriteCase(sym); err == nil {
			s, err = builder.bindCase(sc, c, grp, subset)
		}
	case tree.SELECT:
		s, err = builder.bindScalarSubquery(sc, sym)
	default:
		err = builder.semanticError(sym, "%s is not a value expression", sym.Token)
	}
	if err != nil {
		return nil, sqlError(sym, err)
	}
	return s, nil
}

func (builder *QueryBuilder) bindColumnRef(sc *scope.Scope, sym *tree.Symbol, subset *ir.Stmt) (*ir.Stmt, error) {
	var tname, cname string
	if len(sym.Names) > 1 {
		tname = sym.Names[len(sym.Names)-2]
	}
	cname = sym.LastName()
	s, err := sc.Bind(builder.ctx, tname, cname)
	if err != nil {
		return nil, err
	}
	if s == nil {
		if tname != "" {
			return nil, moerr.NewCatalogMiss(builder.ctx, "Column: %s.%s unknown", tname, cname)
		}
		return nil, moerr.NewCatalogMiss(builder.ctx, "Column: %s unknown", cname)
	}
	// select list aliases have no head and are used as they are
	if subset == nil || s.H == nil {
		return s, nil
	}
	p := scope.FindPivot(subset, s.H)
	if p == nil {
		if !ownsTable(sc, s.H) {
			// an outer column of a correlated subquery
			return s, nil
		}
		return nil, builder.semanticError(sym, "Subset not found for value expression")
	}
	return ir.NewJoin(p, s, ir.CmpEqual), nil
}

func ownsTable(sc *scope.Scope, tv *ir.TVar) bool {
	for _, t := range sc.Tables() {
		if t == tv {
			return true
		}
	}
	return false
}

func (builder *QueryBuilder) bindUnop(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	v, err := builder.bindValue(sc, sym.Sym, grp, subset)
	if err != nil {
		return nil, err
	}
	f := builder.cat.BindFunc(sym.Str, ir.TailType(v), nil, nil)
	if f == nil {
		return nil, builder.semanticError(sym, "Unary operator: %s(%s) unknown", sym.Str, ir.TailType(v))
	}
	return ir.NewUnop(v, f), nil
}

func (builder *QueryBuilder) bindBinop(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	l, err := builder.bindValue(sc, sym.List[0], grp, subset)
	if err != nil {
		return nil, err
	}
	r, err := builder.bindValue(sc, sym.List[1], grp, subset)
	if err != nil {
		return nil, err
	}
	return builder.binop(sym, l, r)
}

// binop binds name(l, r), widening the narrow operand when there is no
// exact signature.
func (builder *QueryBuilder) binop(sym *tree.Symbol, l, r *ir.Stmt) (*ir.Stmt, error) {
	t1, t2 := ir.TailType(l), ir.TailType(r)
	if f := builder.cat.BindFunc(sym.Str, t1, t2, nil); f != nil {
		return ir.NewBinop(l, r, f), nil
	}
	if t1 != nil && t2 != nil {
		narrow, wide := t1, t2
		if t1.Type.Nr > t2.Type.Nr {
			narrow, wide = t2, t1
		}
		c := builder.cat.BindFuncResult("convert", narrow, nil, nil, wide)
		f := builder.cat.BindFunc(sym.Str, wide, wide, nil)
		if c != nil && f != nil {
			if narrow == t1 {
				l = ir.NewConvert(l, c, wide)
			} else {
				r = ir.NewConvert(r, c, wide)
			}
			return ir.NewBinop(l, r, f), nil
		}
	}
	return nil, builder.semanticError(sym, "Binary operator: %s(%s,%s) unknown", sym.Str, t1, t2)
}

func (builder *QueryBuilder) bindTriop(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	var ops [3]*ir.Stmt
	var ts [3]*catalog.SubType
	for i := range ops {
		s, err := builder.bindValue(sc, sym.List[i], grp, subset)
		if err != nil {
			return nil, err
		}
		ops[i], ts[i] = s, ir.TailType(s)
	}
	f := builder.cat.BindFunc(sym.Str, ts[0], ts[1], ts[2])
	if f == nil {
		return nil, builder.semanticError(sym, "operator: %s(%s,%s,%s) unknown", sym.Str, ts[0], ts[1], ts[2])
	}
	return ir.NewTriop(ops[0], ops[1], ops[2], f), nil
}

func (builder *QueryBuilder) bindCast(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	v, err := builder.bindValue(sc, sym.Sym, grp, subset)
	if err != nil {
		return nil, err
	}
	t := builder.cat.BindType(sym.Type.Name, sym.Type.Digits, sym.Type.Scale)
	if t == nil {
		return nil, sqlError(sym, moerr.NewCatalogMiss(builder.ctx, "Type %s unknown", sym.Type.Name))
	}
	st := ir.TailType(v)
	if st.Equal(t) {
		return v, nil
	}
	if n := retypeAtom(v, t); n != nil {
		return n, nil
	}
	f := builder.cat.BindFuncResult("convert", st, nil, nil, t)
	if f == nil {
		return nil, builder.semanticError(sym, "CAST operator: cast(%s,%s) unknown", st, t)
	}
	return ir.NewConvert(v, f, t), nil
}

// bindAggr compiles name(arg). Within a group the result has one row per
// group, without it is a single value.
func (builder *QueryBuilder) bindAggr(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	name := sym.Str
	if sym.Sym == nil {
		if name != "count" {
			return nil, builder.semanticError(sym, "Aggregate: Cannot do a %s(*)", name)
		}
		a := builder.cat.BindAggr(name, nil)
		if grp != nil {
			return ir.NewAggr(grp.grp, a, grp.grp, grp.ext), nil
		}
		fc := sc.FirstColumn()
		if fc == nil {
			return nil, builder.semanticError(sym, "Aggregate: count(*) without a table")
		}
		col := fc.S
		if p := scope.FindPivot(subset, fc.TVar); p != nil {
			col = ir.NewJoin(p, col, ir.CmpEqual)
		}
		return ir.NewAggr(col, a, nil, nil), nil
	}

	s, err := builder.bindValue(sc, sym.Sym, nil, subset)
	if err != nil {
		return nil, err
	}
	if sym.Int == 1 {
		var g *ir.Stmt
		if grp != nil {
			g = grp.grp
		}
		s = ir.NewUnique(s, g)
	}
	a := builder.cat.BindAggr(name, ir.TailType(s))
	if a == nil {
		return nil, builder.semanticError(sym, "Aggregate: %s(%s) unknown", name, ir.TailType(s))
	}
	if grp != nil {
		return ir.NewAggr(s, a, grp.grp, grp.ext), nil
	}
	return ir.NewAggr(s, a, nil, nil), nil
}

// rewriteCase expresses NULLIF and COALESCE as searched CASE.
func rewriteCase(sym *tree.Symbol) (*tree.Symbol, error) {
	if len(sym.List) < 2 {
		return nil, sqlError(sym, moerr.NewSyntaxError(moerr.Context(), "%s needs two operands", sym.Token))
	}
	c := &tree.Symbol{Token: tree.CASE, Line: sym.Line, Col: sym.Col}
	if sym.Token == tree.NULLIF {
		a, b := sym.List[0], sym.List[1]
		c.List = []*tree.Symbol{
			tree.NewWhen(tree.NewCompare(a, "=", b), tree.NewNull()),
			tree.NewElse(a),
		}
		return c, nil
	}
	last := len(sym.List) - 1
	for _, v := range sym.List[:last] {
		c.List = append(c.List, tree.NewWhen(tree.NewIsNull(v, true), v))
	}
	c.List = append(c.List, tree.NewElse(sym.List[last]))
	return c, nil
}

type caseArm struct {
	cond *tree.Symbol
	res  *ir.Stmt
}

// bindCase starts from the else value over the first pivot and lets every
// WHEN replace the rows its condition holds for, the first WHEN is applied
// last.
func (builder *QueryBuilder) bindCase(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	if subset == nil || len(subset.List) == 0 {
		return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "CASE outside the select list"))
	}
	var arms []caseArm
	var els *ir.Stmt
	var rtype *catalog.SubType
	for _, item := range sym.List {
		var rsym *tree.Symbol
		switch item.Token {
		case tree.WHEN:
			rsym = item.List[1]
		case tree.ELSE:
			rsym = item.Sym
		default:
			return nil, builder.semanticError(item, "%s in CASE", item.Token)
		}
		r, err := builder.bindValue(sc, rsym, grp, subset)
		if err != nil {
			return nil, err
		}
		if rt := ir.TailType(r); rtype == nil && rt != nil {
			rtype = rt
		} else if rt != nil && !rt.Equal(rtype) {
			if r, err = builder.checkTypes(rtype, r); err != nil {
				return nil, builder.semanticError(rsym, "Result types %s and %s of case are not compatible", rtype, rt)
			}
		}
		if item.Token == tree.ELSE {
			els = r
			continue
		}
		cond := item.List[0]
		if sym.Sym != nil {
			cond = tree.NewCompare(sym.Sym, "=", cond)
			cond.Line, cond.Col = item.Line, item.Col
		}
		arms = append(arms, caseArm{cond: cond, res: r})
	}

	first := subset.List[0]
	var res *ir.Stmt
	switch {
	case els == nil:
		n := ir.NewAtom(ir.NewNullAtom(rtype))
		res = ir.NewConst(first, n)
	case els.NrCols == 0:
		res = ir.NewConst(first, els)
	default:
		res = els
	}
	for i := len(arms) - 1; i >= 0; i-- {
		cond, err := builder.bindCondition(sc, arms[i].cond, grp, subset)
		if err != nil {
			return nil, err
		}
		r := arms[i].res
		if rt := ir.TailType(r); rt == nil && rtype != nil && r.Kind == ir.StAtom {
			r = ir.NewAtom(ir.NewNullAtom(rtype))
		}
		var result *ir.Stmt
		if r.NrCols == 0 {
			result = ir.NewConst(cond, r)
		} else {
			result = ir.NewSemijoin(r, cond)
		}
		res = ir.NewUnion(result, res)
	}
	return res, nil
}

// bindCondition compiles a CASE condition into one relation over the
// pivot rows.
func (builder *QueryBuilder) bindCondition(sc *scope.Scope, sym *tree.Symbol, grp *group, subset *ir.Stmt) (*ir.Stmt, error) {
	s, err := builder.bindLogical(sc, sym, grp)
	if err != nil {
		return nil, err
	}
	if s, err = builder.fold(s); err != nil {
		return nil, sqlError(sym, err)
	}
	if s.H == nil {
		return s, nil
	}
	p := scope.FindPivot(subset, s.H)
	if p == nil {
		return nil, builder.semanticError(sym, "Subset not found for value expression")
	}
	return ir.NewJoin(p, s, ir.CmpEqual), nil
}
