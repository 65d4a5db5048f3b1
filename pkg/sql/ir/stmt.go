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

package ir

import (
	"fmt"
	"sync/atomic"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
)

var lastStmtID uint32

// Stmt is one node of the compiled plan. Nodes form a DAG: a node is
// shared by every parent that references it and counts those parents.
//
// Every *Stmt held in Op1, Op2, Op3, List or Sets is a child and owns one
// reference, the payload pointers are not counted.
type Stmt struct {
	Kind Kind

	Op1, Op2, Op3 *Stmt
	List          []*Stmt
	Sets          [][]*Stmt

	Atom   *Atom
	Column *catalog.Column
	Table  *catalog.Table
	Func   *catalog.Func
	Aggr   *catalog.Aggr
	Type   *catalog.SubType
	Name   string
	Flag   int
	Cmp    Cmp

	// H and T are the table variables of the head and tail.
	H, T *TVar
	// NrCols is 0 for a single value, 1 for a column and 2 for a relation
	// between two table variables.
	NrCols int

	id     uint32
	refcnt int
	freed  bool
}

var _ catalog.Plan = (*Stmt)(nil)

func newStmt(kind Kind) *Stmt {
	return &Stmt{
		Kind: kind,
		id:   atomic.AddUint32(&lastStmtID, 1),
	}
}

// attach takes a reference on every child, called once by constructors.
func (s *Stmt) attach() *Stmt {
	s.EachChild(func(c *Stmt) {
		c.refcnt++
	})
	return s
}

// ID is unique for the life of the process.
func (s *Stmt) ID() uint32 {
	return s.id
}

func (s *Stmt) PlanID() uint32 {
	return s.id
}

// RefCount is the number of live references.
func (s *Stmt) RefCount() int {
	return s.refcnt
}

func (s *Stmt) Freed() bool {
	return s.freed
}

// Dup records one more reference, the node is shared not copied.
func (s *Stmt) Dup() *Stmt {
	if s.freed {
		panic(moerr.NewInternalErrorNoCtx("dup of freed %s %d", s.Kind, s.id))
	}
	s.refcnt++
	return s
}

// Destroy drops one reference. The last one frees the node and drops the
// references it holds on its children.
func (s *Stmt) Destroy() {
	if s == nil {
		return
	}
	if s.freed {
		panic(moerr.NewInternalErrorNoCtx("double free of %s %d", s.Kind, s.id))
	}
	s.refcnt--
	if s.refcnt > 0 {
		return
	}
	s.freed = true
	s.EachChild(func(c *Stmt) {
		c.Destroy()
	})
}

// EachChild calls fn for every child in operand order.
func (s *Stmt) EachChild(fn func(*Stmt)) {
	for _, slot := range s.slots() {
		fn(*slot)
	}
}

// Children lists the children in operand order, a child referenced from
// two slots is listed twice.
func (s *Stmt) Children() []*Stmt {
	slots := s.slots()
	cs := make([]*Stmt, len(slots))
	for i, slot := range slots {
		cs[i] = *slot
	}
	return cs
}

func (s *Stmt) slots() []**Stmt {
	var slots []**Stmt
	for _, op := range []**Stmt{&s.Op1, &s.Op2, &s.Op3} {
		if *op != nil {
			slots = append(slots, op)
		}
	}
	for i := range s.List {
		slots = append(slots, &s.List[i])
	}
	for i := range s.Sets {
		for j := range s.Sets[i] {
			slots = append(slots, &s.Sets[i][j])
		}
	}
	return slots
}

// Rewrite replaces every child by fn(child). fn returns a node carrying a
// reference for the slot, the reference on the old child is dropped. The
// first error stops the rewrite, the slots visited so far stay rewritten.
func (s *Stmt) Rewrite(fn func(*Stmt) (*Stmt, error)) error {
	for _, slot := range s.slots() {
		old := *slot
		n, err := fn(old)
		if err != nil {
			return err
		}
		*slot = n
		old.Destroy()
	}
	return nil
}

// Walk visits every node reachable from s once, parents before children.
// Returning false skips the children of a node.
func Walk(s *Stmt, fn func(*Stmt) bool) {
	seen := make(map[uint32]struct{})
	var walk func(*Stmt)
	walk = func(n *Stmt) {
		if _, ok := seen[n.id]; ok {
			return
		}
		seen[n.id] = struct{}{}
		if !fn(n) {
			return
		}
		n.EachChild(walk)
	}
	walk(s)
}

func (s *Stmt) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s#%d", s.Kind, s.id)
}
