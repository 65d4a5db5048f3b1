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

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

// Visitor rewrites one node. The node it returns carries one reference for
// the caller.
type Visitor[K comparable] func(r *Rewriter[K], n *ir.Stmt) (*ir.Stmt, error)

// Rewriter rewrites a statement DAG bottom up, every node once. The visitor
// of a node is chosen by the key of the node, nodes without one get their
// children rewritten in place.
type Rewriter[K comparable] struct {
	ctx      context.Context
	name     string
	key      func(*ir.Stmt) K
	visitors map[K]Visitor[K]

	// visited holds the ids of the nodes rewritten so far, memo their
	// result. The memo owns one reference on every result.
	visited  *roaring.Bitmap
	memo     map[uint32]*ir.Stmt
	rewrites int
}

func NewRewriter[K comparable](ctx context.Context, name string, key func(*ir.Stmt) K) *Rewriter[K] {
	return &Rewriter[K]{
		ctx:      ctx,
		name:     name,
		key:      key,
		visitors: make(map[K]Visitor[K]),
		visited:  roaring.New(),
		memo:     make(map[uint32]*ir.Stmt),
	}
}

// On sets the visitor of the nodes with key k.
func (r *Rewriter[K]) On(k K, v Visitor[K]) *Rewriter[K] {
	r.visitors[k] = v
	return r
}

// Rewrite returns the rewritten n with a fresh reference. A node already
// visited returns its memoized result.
func (r *Rewriter[K]) Rewrite(n *ir.Stmt) (*ir.Stmt, error) {
	if r.visited.Contains(n.ID()) {
		return r.memo[n.ID()].Dup(), nil
	}
	v, ok := r.visitors[r.key(n)]
	if !ok {
		v = Children[K]
	}
	res, err := v(r, n)
	if err != nil {
		return nil, err
	}
	r.remember(n, res)
	return res, nil
}

func (r *Rewriter[K]) remember(n, res *ir.Stmt) {
	r.visited.Add(n.ID())
	r.memo[n.ID()] = res.Dup()
	if res == n {
		return
	}
	r.rewrites++
	logutil2.Debug(r.ctx, "statement rewritten",
		zap.String("rewriter", r.name),
		zap.Stringer("from", n),
		zap.Stringer("to", res))
	// a result is final
	if !r.visited.Contains(res.ID()) {
		r.visited.Add(res.ID())
		r.memo[res.ID()] = res.Dup()
	}
}

// Visited is the number of distinct nodes seen so far.
func (r *Rewriter[K]) Visited() uint64 {
	return r.visited.GetCardinality()
}

// Rewrites is the number of nodes replaced so far.
func (r *Rewriter[K]) Rewrites() int {
	return r.rewrites
}

// Release drops the references of the memo.
func (r *Rewriter[K]) Release() {
	for id, s := range r.memo {
		s.Destroy()
		delete(r.memo, id)
	}
	r.visited.Clear()
}

// Run rewrites the DAG below s. It consumes the reference the caller holds
// on s and returns the result with one reference.
func (r *Rewriter[K]) Run(s *ir.Stmt) (*ir.Stmt, error) {
	defer r.Release()
	res, err := r.Rewrite(s)
	s.Destroy()
	if err != nil {
		return nil, err
	}
	logutil2.Debug(r.ctx, "rewrite done",
		zap.String("rewriter", r.name),
		zap.Uint64("visited", r.Visited()),
		zap.Int("rewrites", r.rewrites))
	return res, nil
}

// Children rewrites every child of n in place and keeps n.
func Children[K comparable](r *Rewriter[K], n *ir.Stmt) (*ir.Stmt, error) {
	if err := n.Rewrite(r.Rewrite); err != nil {
		return nil, err
	}
	return n.Dup(), nil
}

// Keep leaves n and the DAG below it untouched.
func Keep[K comparable](_ *Rewriter[K], n *ir.Stmt) (*ir.Stmt, error) {
	return n.Dup(), nil
}

// rewritePlan rewrites the compiled query of a view column, the catalog
// keeps the result.
func rewritePlan[K comparable](r *Rewriter[K], c *catalog.Column) error {
	plan, ok := c.Plan.(*ir.Stmt)
	if !ok || plan == nil {
		return nil
	}
	res, err := r.Rewrite(plan)
	if err != nil {
		return err
	}
	c.Plan = res
	plan.Destroy()
	return nil
}

func kindOf(s *ir.Stmt) ir.Kind {
	return s.Kind
}
