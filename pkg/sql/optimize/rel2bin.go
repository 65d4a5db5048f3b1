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

	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

// Rel2Bin lowers the relational kinds to binary operators. It consumes the
// reference the caller holds on s.
func Rel2Bin(ctx context.Context, s *ir.Stmt) (*ir.Stmt, error) {
	params := config.GetParameterUnit(ctx).SV
	r := NewRewriter(ctx, "rel2bin", kindOf)
	for _, k := range leaves {
		r.On(k, Keep[ir.Kind])
	}
	r.On(ir.StColumn, func(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
		if err := rewritePlan(r, n.Column); err != nil {
			return nil, err
		}
		return n.Dup(), nil
	})
	r.On(ir.StRelEqJoin, relEqJoin)
	r.On(ir.StRelSelect, relSelect(params.Squeeze()))
	return r.Run(s)
}

// relEqJoin joins on the first pair of columns and intersects with the
// joins of the other pairs.
func relEqJoin(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
	if len(n.Op1.List) == 0 || len(n.Op1.List) != len(n.Op2.List) {
		return nil, moerr.NewInternalError(r.ctx, "%s with %d left and %d right columns",
			n, len(n.Op1.List), len(n.Op2.List))
	}
	var res *ir.Stmt
	for i, lc := range n.Op1.List {
		l, err := r.Rewrite(lc)
		if err != nil {
			res.Destroy()
			return nil, err
		}
		rc, err := r.Rewrite(n.Op2.List[i])
		if err != nil {
			l.Destroy()
			res.Destroy()
			return nil, err
		}
		j := ir.NewJoin(l, ir.NewReverse(rc), ir.CmpEqual)
		l.Destroy()
		rc.Destroy()
		if res == nil {
			res = j
		} else {
			res = ir.NewIntersect(res, j)
		}
	}
	return res.Dup(), nil
}

// relSelect chains the selects over one head with semijoins, with squeeze
// the lower and upper bound of a column become one range select first.
func relSelect(squeeze bool) Visitor[ir.Kind] {
	return func(r *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
		sels := make([]*ir.Stmt, 0, len(n.List))
		defer func() {
			for _, s := range sels {
				s.Destroy()
			}
		}()
		for _, c := range n.List {
			s, err := r.Rewrite(c)
			if err != nil {
				return nil, err
			}
			sels = append(sels, s)
		}
		chain := sels
		if squeeze {
			chain = squeezeRanges(sels)
		}
		if len(chain) == 0 {
			return nil, moerr.NewInternalError(r.ctx, "%s without selects", n)
		}
		res := chain[0]
		for _, s := range chain[1:] {
			res = ir.NewSemijoin(res, s)
		}
		return res.Dup(), nil
	}
}

type bounds struct {
	lo, hi *ir.Stmt
	n      int
}

// squeezeRanges combines the single lower and upper bound selects of one
// column into a range select. Ranges come first.
func squeezeRanges(sels []*ir.Stmt) []*ir.Stmt {
	cols := make(map[*ir.Stmt]*bounds)
	for _, s := range sels {
		if !isBound(s) {
			continue
		}
		b := cols[s.Op1]
		if b == nil {
			b = &bounds{}
			cols[s.Op1] = b
		}
		b.n++
		if s.Cmp == ir.CmpGt || s.Cmp == ir.CmpGte {
			b.lo = s
		} else {
			b.hi = s
		}
	}

	var ranges, rest []*ir.Stmt
	for _, s := range sels {
		if !isBound(s) {
			rest = append(rest, s)
			continue
		}
		b := cols[s.Op1]
		switch {
		case b.n != 2 || b.lo == nil || b.hi == nil:
			rest = append(rest, s)
		case s == b.lo:
			open := 0
			if b.lo.Cmp == ir.CmpGt {
				open |= ir.LowOpen
			}
			if b.hi.Cmp == ir.CmpLt {
				open |= ir.HighOpen
			}
			ranges = append(ranges, ir.NewSelectBounds(s.Op1, b.lo.Op2, b.hi.Op2, open))
		}
	}
	return append(ranges, rest...)
}

// isBound matches a one sided range select against a single value.
func isBound(s *ir.Stmt) bool {
	if s.Kind != ir.StSelect || s.Op3 != nil || s.Op2.NrCols != 0 {
		return false
	}
	switch s.Cmp {
	case ir.CmpLt, ir.CmpLte, ir.CmpGt, ir.CmpGte:
		return true
	}
	return false
}
