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
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	v2 "github.com/matrixorigin/batsql/pkg/util/metric/v2"
)

// orMarkBase is the first mark id of the pivots of the OR branches after
// the first one.
const orMarkBase = 1000

// queryAnd folds the relations of a conjunction sharing a table variable
// into semijoins and intersections. Relations that cannot be folded are
// kept, the list is rotated once per pass.
func queryAnd(l []*ir.Stmt) []*ir.Stmt {
	for n := len(l); n > 0 && len(l) > 1; n-- {
		s := l[0]
		rest := make([]*ir.Stmt, 0, len(l))
		for _, t := range l[1:] {
			if f := andRelation(s, t); f != nil {
				s = f
			} else {
				rest = append(rest, t)
			}
		}
		l = append(rest, s)
	}
	return l
}

func andRelation(s, t *ir.Stmt) *ir.Stmt {
	switch {
	case s.NrCols == 1 && t.NrCols == 1:
		if s.H != nil && s.H == t.H {
			return ir.NewSemijoin(s, t)
		}
	case s.NrCols == 1 && t.NrCols == 2:
		if s.H == nil {
			return nil
		}
		if t.H == s.H {
			return ir.NewSemijoin(t, s)
		}
		if t.T == s.H {
			return ir.NewSemijoin(ir.NewReverse(t), s)
		}
	case s.NrCols == 2 && t.NrCols == 1:
		if t.H == nil {
			return nil
		}
		if t.H == s.H {
			return ir.NewSemijoin(s, t)
		}
		if t.H == s.T {
			return ir.NewSemijoin(ir.NewReverse(s), t)
		}
	case s.NrCols == 2 && t.NrCols == 2:
		if s.H == nil || s.T == nil {
			return nil
		}
		if s.H == t.H && s.T == t.T {
			return ir.NewIntersect(s, t)
		}
		if s.H == t.T && s.T == t.H {
			return ir.NewIntersect(ir.NewReverse(s), t)
		}
	}
	return nil
}

func findPivot(pivots []*ir.Stmt, tv *ir.TVar) *ir.Stmt {
	if tv == nil {
		return nil
	}
	for _, p := range pivots {
		if p.T == tv {
			return p
		}
	}
	return nil
}

// set2pivot turns a conjunction into one pivot per table variable. All
// pivots have the same dense oid head, the n-th oid of every pivot
// belongs to the n-th result row.
func (builder *QueryBuilder) set2pivot(rels []*ir.Stmt) (*ir.Stmt, error) {
	rels = queryAnd(rels)
	if len(rels) == 0 {
		return nil, moerr.NewInternalError(builder.ctx, "pivot of an empty conjunction")
	}
	v2.PivotRelationHistogram.Observe(float64(len(rels)))

	markID := 0
	st := rels[0]
	rels = rels[1:]
	pivots := []*ir.Stmt{ir.NewMark(ir.NewReverse(st), markID)}
	if st.NrCols == 2 && st.T != nil {
		pivots = append(pivots, ir.NewMark(st, markID))
	}
	markID++

	for len(rels) > 0 {
		progress := false
		for i, st := range rels {
			var p, m, m1 *ir.Stmt
			if p = findPivot(pivots, st.H); p != nil {
				m, m1 = ir.NewMark(ir.NewReverse(st), markID), ir.NewMark(st, markID)
			} else if p = findPivot(pivots, st.T); p != nil {
				m, m1 = ir.NewMark(st, markID), ir.NewMark(ir.NewReverse(st), markID)
			} else {
				continue
			}
			markID++
			j := ir.NewJoin(p, ir.NewReverse(m), ir.CmpEqual)
			pnl, pnr := ir.NewMark(j, markID), ir.NewMark(ir.NewReverse(j), markID)
			markID++

			next := make([]*ir.Stmt, 0, len(pivots)+1)
			// a single column or a relation ending in a value only
			// restricts the rows
			if m1.T != nil && findPivot(pivots, m1.T) == nil {
				next = append(next, ir.NewJoin(pnl, m1, ir.CmpEqual))
			} else {
				pnl.Destroy()
				m1.Destroy()
			}
			for _, q := range pivots {
				next = append(next, ir.NewJoin(pnr, q, ir.CmpEqual))
			}
			pivots = next
			rels = append(rels[:i:i], rels[i+1:]...)
			progress = true
			break
		}
		if !progress {
			ir.NewList(pivots).Destroy()
			return nil, moerr.NewUnrelatedTables(builder.ctx)
		}
	}
	return ir.NewList(pivots), nil
}

// sets2pivot appends the pivot rows of every OR branch to those of the
// first branch, pairing the pivots by table variable.
func (builder *QueryBuilder) sets2pivot(sets [][]*ir.Stmt) (*ir.Stmt, error) {
	held, err := builder.set2pivot(sets[0])
	if err != nil {
		return nil, err
	}
	markID := orMarkBase
	for _, set := range sets[1:] {
		np, err := builder.set2pivot(set)
		if err != nil {
			held.Destroy()
			return nil, err
		}
		var next []*ir.Stmt
		for _, m := range np.List {
			for _, c := range held.List {
				if c.T == m.T {
					next = append(next, ir.NewInsertColumn(c, ir.NewRemark(m, ir.NewCount(c), markID)))
				}
			}
		}
		// the new rows hold what they use of both lists
		nl := ir.NewList(next)
		np.Destroy()
		held.Destroy()
		held = nl
		if len(next) == 0 {
			held.Destroy()
			return nil, moerr.NewUnrelatedTables(builder.ctx)
		}
		markID++
	}
	cur := held.List
	if builder.params.OrSetSemantics {
		cur = distinctPivots(cur)
	}
	logutil2.Debug(builder.ctx, "or pivots", zap.Int("branches", len(sets)), zap.Int("pivots", len(cur)))
	res := ir.NewList(cur)
	held.Destroy()
	return res, nil
}

// distinctPivots keeps one row per distinct combination of pivot tails,
// a row matching several OR branches is produced once.
func distinctPivots(pivots []*ir.Stmt) []*ir.Stmt {
	var g *group
	for _, p := range pivots {
		g = newGroup(p, g)
	}
	res := make([]*ir.Stmt, len(pivots))
	for i, p := range pivots {
		res[i] = ir.NewJoin(g.ext, p, ir.CmpEqual)
	}
	return res
}

// buildPivot completes the condition s with the tables of sc it does not
// reference and builds the pivots, sets them on sc and returns them. A nil
// s selects every row.
func (builder *QueryBuilder) buildPivot(sc *scope.Scope, s *ir.Stmt) (*ir.Stmt, error) {
	var sets [][]*ir.Stmt
	if s == nil {
		sets = [][]*ir.Stmt{nil}
	} else {
		// the pivots take over the members, the wrapper goes last
		defer release(s)
		sets = append(sets, branches(s)...)
	}
	for i := range sets {
		b, err := builder.crossUnused(sc, sets[i])
		if err != nil {
			return nil, err
		}
		sets[i] = b
	}
	var pivots *ir.Stmt
	var err error
	if len(sets) == 1 {
		pivots, err = builder.set2pivot(sets[0])
	} else {
		pivots, err = builder.sets2pivot(sets)
	}
	if err != nil {
		return nil, err
	}
	sc.SetPivot(pivots)
	return pivots, nil
}

// crossUnused adds a cross product with every table of sc no relation of
// the conjunction refers to.
func (builder *QueryBuilder) crossUnused(sc *scope.Scope, rels []*ir.Stmt) ([]*ir.Stmt, error) {
	used := make(map[*ir.TVar]bool)
	for _, r := range rels {
		if r.H != nil {
			used[r.H] = true
		}
		if r.T != nil {
			used[r.T] = true
		}
	}
	res := concat(nil, rels)
	var cur *ir.Stmt
	if len(res) > 0 {
		cur = res[0]
	}
	for _, tv := range sc.Tables() {
		if used[tv] {
			continue
		}
		if len(tv.Cols) == 0 {
			return nil, moerr.NewInternalError(builder.ctx, "table %s without columns", tv)
		}
		fc := tv.Cols[0].S
		if cur == nil {
			cur = fc
			res = append(res, fc)
			continue
		}
		res = append(res, ir.NewJoin(cur, ir.NewReverse(fc), ir.CmpAll))
	}
	if len(res) == 0 {
		return nil, moerr.NewSemantic(builder.ctx, "query without tables")
	}
	return res, nil
}
