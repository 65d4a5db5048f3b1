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

// bindLogical compiles a search condition into a relation, a set of
// relations (a conjunction) or sets of them (a disjunction of
// conjunctions).
func (builder *QueryBuilder) bindLogical(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	var s *ir.Stmt
	var err error
	switch sym.Token {
	case tree.OR, tree.AND:
		var l, r *ir.Stmt
		if l, err = builder.bindLogical(sc, sym.List[0], grp); err != nil {
			return nil, err
		}
		if r, err = builder.bindLogical(sc, sym.List[1], grp); err != nil {
			return nil, err
		}
		if sym.Token == tree.OR {
			return or(l, r), nil
		}
		return and(l, r), nil
	case tree.NOT:
		var n *tree.Symbol
		if n, err = negate(sym.Sym); err == nil {
			return builder.bindLogical(sc, n, grp)
		}
	case tree.COMPARE:
		s, err = builder.bindCompare(sc, sym, grp)
	case tree.BETWEEN, tree.NOT_BETWEEN:
		s, err = builder.bindBetween(sc, sym, grp)
	case tree.LIKE, tree.NOT_LIKE:
		s, err = builder.bindLike(sc, sym, grp)
	case tree.IN, tree.NOT_IN:
		s, err = builder.bindIn(sc, sym, grp)
	case tree.EXISTS, tree.NOT_EXISTS:
		s, err = builder.bindExists(sc, sym)
	case tree.IS_NULL, tree.IS_NOT_NULL:
		s, err = builder.bindIsNull(sc, sym, grp)
	default:
		s, err = builder.bindBoolean(sc, sym, grp)
	}
	if err != nil {
		return nil, sqlError(sym, err)
	}
	return s, nil
}

var negations = map[tree.Token]tree.Token{
	tree.BETWEEN:     tree.NOT_BETWEEN,
	tree.NOT_BETWEEN: tree.BETWEEN,
	tree.LIKE:        tree.NOT_LIKE,
	tree.NOT_LIKE:    tree.LIKE,
	tree.IN:          tree.NOT_IN,
	tree.NOT_IN:      tree.IN,
	tree.EXISTS:      tree.NOT_EXISTS,
	tree.NOT_EXISTS:  tree.EXISTS,
	tree.IS_NULL:     tree.IS_NOT_NULL,
	tree.IS_NOT_NULL: tree.IS_NULL,
}

// negate pushes a NOT down to the predicates.
func negate(sym *tree.Symbol) (*tree.Symbol, error) {
	n := *sym
	switch sym.Token {
	case tree.NOT:
		return sym.Sym, nil
	case tree.AND, tree.OR:
		l, err := negate(sym.List[0])
		if err != nil {
			return nil, err
		}
		r, err := negate(sym.List[1])
		if err != nil {
			return nil, err
		}
		n.Token = tree.OR
		if sym.Token == tree.OR {
			n.Token = tree.AND
		}
		n.List = []*tree.Symbol{l, r}
		return &n, nil
	case tree.COMPARE:
		cmp, ok := ir.ParseCmp(sym.Str)
		if !ok {
			return nil, sqlError(sym, moerr.NewSemantic(moerr.Context(), "Unknown compare operator %s", sym.Str))
		}
		n.Str = cmp.Negate().String()
		return &n, nil
	}
	if t, ok := negations[sym.Token]; ok {
		n.Token = t
		return &n, nil
	}
	return nil, sqlError(sym, moerr.NewNYI(moerr.Context(), "NOT of %s", sym.Token))
}

func branches(s *ir.Stmt) [][]*ir.Stmt {
	switch s.Kind {
	case ir.StSets:
		return s.Sets
	case ir.StSet:
		return [][]*ir.Stmt{s.List}
	}
	return [][]*ir.Stmt{{s}}
}

func conjunction(s *ir.Stmt) []*ir.Stmt {
	if s.Kind == ir.StSet {
		return s.List
	}
	return []*ir.Stmt{s}
}

func concat(a, b []*ir.Stmt) []*ir.Stmt {
	l := make([]*ir.Stmt, 0, len(a)+len(b))
	return append(append(l, a...), b...)
}

// release drops a floating set or sets wrapper after its members were
// taken over by a new one.
func release(ss ...*ir.Stmt) {
	for _, s := range ss {
		if (s.Kind == ir.StSet || s.Kind == ir.StSets) && s.RefCount() == 0 {
			s.Destroy()
		}
	}
}

// fold turns a conjunction into a chain of semijoins and a disjunction
// into the union of its folded branches. The relations must share their
// head, the result keeps the rows of the head value matching the
// condition.
func (builder *QueryBuilder) fold(s *ir.Stmt) (*ir.Stmt, error) {
	if s.Kind != ir.StSet && s.Kind != ir.StSets {
		return s, nil
	}
	defer release(s)
	bs := branches(s)
	head := bs[0][0].H
	for _, b := range bs {
		for _, r := range b {
			if r.H != head {
				return nil, moerr.NewNYI(builder.ctx, "condition over the rows of %s and %s", head, r.H)
			}
		}
	}
	var res *ir.Stmt
	for _, b := range bs {
		chain := b[0]
		for _, r := range b[1:] {
			chain = ir.NewSemijoin(chain, r)
		}
		if res == nil {
			res = chain
		} else {
			res = ir.NewUnion(res, chain)
		}
	}
	return res, nil
}

func and(l, r *ir.Stmt) *ir.Stmt {
	defer release(l, r)
	if l.Kind != ir.StSets && r.Kind != ir.StSets {
		return ir.NewSet(concat(conjunction(l), conjunction(r)))
	}
	var sets [][]*ir.Stmt
	for _, lb := range branches(l) {
		for _, rb := range branches(r) {
			sets = append(sets, concat(lb, rb))
		}
	}
	return ir.NewSets(sets)
}

func or(l, r *ir.Stmt) *ir.Stmt {
	defer release(l, r)
	var sets [][]*ir.Stmt
	for _, b := range branches(l) {
		sets = append(sets, concat(nil, b))
	}
	for _, b := range branches(r) {
		sets = append(sets, concat(nil, b))
	}
	return ir.NewSets(sets)
}

// bindCompare builds a select when one side is a single value or both are
// columns of one table variable, a join otherwise.
func (builder *QueryBuilder) bindCompare(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	cmp, ok := ir.ParseCmp(sym.Str)
	if !ok {
		return nil, builder.semanticError(sym, "Unknown compare operator %s", sym.Str)
	}
	ls, err := builder.bindValue(sc, sym.List[0], grp, nil)
	if err != nil {
		return nil, err
	}
	rs, err := builder.bindValue(sc, sym.List[1], grp, nil)
	if err != nil {
		return nil, err
	}
	return builder.compare(sym, ls, rs, cmp)
}

func (builder *QueryBuilder) compare(sym *tree.Symbol, ls, rs *ir.Stmt, cmp ir.Cmp) (*ir.Stmt, error) {
	if ls.NrCols <= 0 && rs.NrCols <= 0 {
		return nil, builder.semanticError(sym, "Compare(%s) between two atoms is not possible", cmp)
	}
	var err error
	if ls.NrCols > 0 && rs.NrCols > 0 {
		if ls, rs, err = builder.matchTypes(ls, rs); err != nil {
			return nil, err
		}
		if ls.H != nil && ls.H == rs.H {
			return ir.NewSelect(ls, rs, cmp), nil
		}
		return ir.NewJoin(ls, ir.NewReverse(rs), cmp), nil
	}
	if ls.NrCols == 0 {
		ls, rs = rs, ls
		cmp = cmp.Swap()
	}
	if ls, rs, err = builder.matchTypes(ls, rs); err != nil {
		return nil, err
	}
	return ir.NewSelect(ls, rs, cmp), nil
}

func (builder *QueryBuilder) bindBetween(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	ls, err := builder.bindValue(sc, sym.List[0], grp, nil)
	if err != nil {
		return nil, err
	}
	var bounds [2]*ir.Stmt
	for i := range bounds {
		b, err := builder.bindValue(sc, sym.List[i+1], grp, nil)
		if err != nil {
			return nil, err
		}
		if b.Kind != ir.StAtom {
			return nil, builder.semanticError(sym, "Between requires an atom on the right handside")
		}
		if bounds[i], err = builder.checkTypes(ir.TailType(ls), b); err != nil {
			return nil, err
		}
	}
	lo, hi := bounds[0], bounds[1]
	if sym.Int == 1 {
		t := ir.TailType(ls)
		fmin := builder.cat.BindFunc("min", t, t, nil)
		fmax := builder.cat.BindFunc("max", t, t, nil)
		if fmin == nil || fmax == nil {
			return nil, builder.semanticError(sym, "Binary operator: min(%s,%s) unknown", t, t)
		}
		lo, hi = ir.NewBinop(bounds[0], bounds[1], fmin), ir.NewBinop(bounds[0], bounds[1], fmax)
	}
	res := ir.NewSelect2(ls, lo, hi, ir.CmpEqual)
	if sym.Token == tree.NOT_BETWEEN {
		return ir.NewDiff(ls, res), nil
	}
	return res, nil
}

func (builder *QueryBuilder) bindLike(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	if len(sym.List) > 2 {
		return nil, sqlError(sym, moerr.NewNYI(builder.ctx, "Time to implement LIKE escapes"))
	}
	ls, err := builder.bindValue(sc, sym.List[0], grp, nil)
	if err != nil {
		return nil, err
	}
	pat := sym.List[1]
	if pat.Token != tree.ATOM || pat.Atom.Kind != tree.StringAtom {
		return nil, sqlError(sym, moerr.NewTypeMismatch(builder.ctx,
			"Wrong type used with LIKE stmt, should be string '%s' %s", pat, pat.Token))
	}
	a, err := builder.bindAtom(pat)
	if err != nil {
		return nil, err
	}
	res := ir.NewLike(ls, a)
	if sym.Token == tree.NOT_LIKE {
		return ir.NewDiff(ls, res), nil
	}
	return res, nil
}

func (builder *QueryBuilder) bindIsNull(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	v, err := builder.bindValue(sc, sym.Sym, grp, nil)
	if err != nil {
		return nil, err
	}
	cmp := ir.CmpEqual
	if sym.Token == tree.IS_NOT_NULL {
		cmp = ir.CmpNotEqual
	}
	return ir.NewSelect(v, nullOf(v), cmp), nil
}

// bindBoolean takes a BOOLEAN value as a condition.
func (builder *QueryBuilder) bindBoolean(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	v, err := builder.bindValue(sc, sym, grp, nil)
	if err != nil {
		return nil, err
	}
	t := ir.TailType(v)
	if v.NrCols == 0 || t == nil || t.Type.SQLName != "BOOLEAN" {
		return nil, builder.semanticError(sym, "%s is not a condition", sym)
	}
	yes := ir.NewAtom(ir.NewGeneralAtom(t, "true"))
	return ir.NewSelect(v, yes, ir.CmpEqual), nil
}

func (builder *QueryBuilder) bindIn(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	ls, err := builder.bindValue(sc, sym.List[0], grp, nil)
	if err != nil {
		return nil, err
	}
	if sym.Sym != nil {
		return builder.bindInQuery(sc, sym, ls)
	}
	if len(sym.List) < 2 {
		return nil, builder.semanticError(sym, "In missing inner query")
	}
	atoms := make([]*ir.Stmt, 0, len(sym.List)-1)
	for _, v := range sym.List[1:] {
		a, err := builder.bindValue(sc, v, grp, nil)
		if err != nil {
			return nil, err
		}
		if a.NrCols != 0 {
			return nil, builder.semanticError(v, "IN list value %s is not an atom", v)
		}
		if a, err = builder.checkTypes(ir.TailType(ls), a); err != nil {
			return nil, sqlError(v, err)
		}
		atoms = append(atoms, a)
	}
	res := ir.NewExists(ls, atoms)
	if sym.Token == tree.NOT_IN {
		return ir.NewDiff(ls, res), nil
	}
	return res, nil
}

// bindHaving combines the having conditions by union and semijoin, the
// predicates are compiled against the group.
func (builder *QueryBuilder) bindHaving(sc *scope.Scope, sym *tree.Symbol, grp *group) (*ir.Stmt, error) {
	switch sym.Token {
	case tree.OR, tree.AND:
		l, err := builder.bindHaving(sc, sym.List[0], grp)
		if err != nil {
			return nil, err
		}
		r, err := builder.bindHaving(sc, sym.List[1], grp)
		if err != nil {
			return nil, err
		}
		if sym.Token == tree.OR {
			return ir.NewUnion(l, r), nil
		}
		return ir.NewSemijoin(l, r), nil
	}
	s, err := builder.bindLogical(sc, sym, grp)
	if err != nil {
		return nil, err
	}
	if s, err = builder.fold(s); err != nil {
		return nil, sqlError(sym, err)
	}
	return s, nil
}
