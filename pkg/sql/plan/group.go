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
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// group is a grouping in progress. grp maps rows to their group, ext
// holds one representative row per group.
type group struct {
	grp *ir.Stmt
	ext *ir.Stmt
}

// release drops the extent of g when nothing took it over.
func (g *group) release() {
	if g.ext.RefCount() == 0 {
		g.ext.Destroy()
	}
}

// newGroup groups by the tail of s, refining cur when it is set.
func newGroup(s *ir.Stmt, cur *group) *group {
	var g *ir.Stmt
	if cur == nil {
		g = ir.NewGroup(s)
	} else {
		g = ir.NewDerive(cur.grp, s)
		cur.release()
	}
	return &group{
		grp: g,
		ext: ir.NewUnique(g, nil),
	}
}

// bindGroupBy groups by the GROUP BY columns read through their pivots.
// A correlated subquery that aggregates is grouped by the rows of the
// outer tables last.
func (builder *QueryBuilder) bindGroupBy(sc *scope.Scope, sn *tree.SelectNode, pivots *ir.Stmt) (*group, error) {
	var grp *group
	for _, sym := range sn.GroupBy {
		if sym.Token != tree.COLUMN {
			return nil, builder.semanticError(sym, "Group by expects a column, got %s", sym.Token)
		}
		c, err := builder.bindColumnRef(sc, sym, pivots)
		if err != nil {
			return nil, sqlError(sym, err)
		}
		grp = newGroup(c, grp)
	}
	if grp == nil && !hasAggr(sn.Selection) {
		return nil, nil
	}
	for _, tv := range sc.Lifted() {
		if p := scope.FindPivot(pivots, tv); p != nil {
			grp = newGroup(p, grp)
		}
	}
	return grp, nil
}

// hasAggr reports an aggregate outside nested queries.
func hasAggr(syms []*tree.Symbol) bool {
	for _, s := range syms {
		if s == nil || s.Token == tree.SELECT {
			continue
		}
		if s.Token == tree.AGGR {
			return true
		}
		if hasAggr(s.List) || hasAggr([]*tree.Symbol{s.Sym}) {
			return true
		}
	}
	return false
}

func containsAggr(s *ir.Stmt) bool {
	found := false
	ir.Walk(s, func(n *ir.Stmt) bool {
		if n.Kind == ir.StAggr {
			found = true
		}
		return !found
	})
	return found
}
