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

package optimize

import (
	"context"

	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

// leaves are never rewritten.
var leaves = []ir.Kind{ir.StAtom, ir.StBaseTable, ir.StCreateView}

// Optimize replaces the columns of views by their compiled query and drops
// aliases that do not name a result column. It consumes the reference the
// caller holds on s.
func Optimize(ctx context.Context, s *ir.Stmt) (*ir.Stmt, error) {
	params := config.GetParameterUnit(ctx).SV
	r := NewRewriter(ctx, "optimize", kindOf)
	for _, k := range leaves {
		r.On(k, Keep[ir.Kind])
	}
	r.On(ir.StColumn, viewColumn(params.Inline()))
	r.On(ir.StAlias, collapseAlias)
	r.On(ir.StList, namedList)
	return r.Run(s)
}

// viewColumn inlines the plan of a view column. Without inlining the plan
// is still optimized for the sequencer to dump in place.
func viewColumn(inline bool) Visitor[ir.Kind] {
	return func(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
		plan, ok := n.Column.Plan.(*ir.Stmt)
		if !ok || plan == nil {
			return n.Dup(), nil
		}
		if inline {
			return r.Rewrite(plan)
		}
		if err := rewritePlan(r, n.Column); err != nil {
			return nil, err
		}
		return n.Dup(), nil
	}
}

func collapseAlias(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
	return r.Rewrite(n.Op1)
}

// namedList keeps the aliases in a list, they name the result columns.
func namedList(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
	for i, c := range n.List {
		var res *ir.Stmt
		if c.Kind == ir.StAlias {
			if err := c.Rewrite(r.Rewrite); err != nil {
				return nil, err
			}
			res = c.Dup()
		} else {
			var err error
			if res, err = r.Rewrite(c); err != nil {
				return nil, err
			}
		}
		n.List[i] = res
		c.Destroy()
	}
	return n.Dup(), nil
}
