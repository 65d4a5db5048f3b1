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
	"github.com/matrixorigin/batsql/pkg/catalog"
)

// The constructors take a reference on every operand and derive the head,
// tail and column count of the new node from them.

func NewAtom(a *Atom) *Stmt {
	s := newStmt(StAtom)
	s.Atom = a
	return s
}

func NewBaseTable(t *catalog.Table, tv *TVar) *Stmt {
	s := newStmt(StBaseTable)
	s.Table = t
	s.H = tv
	s.NrCols = 1
	return s
}

// NewColumn is column c read through the table variable tv.
func NewColumn(c *catalog.Column, tv *TVar) *Stmt {
	s := newStmt(StColumn)
	s.Column = c
	s.H = tv
	s.NrCols = 1
	return s
}

func NewReverse(op1 *Stmt) *Stmt {
	s := newStmt(StReverse)
	s.Op1 = op1
	s.NrCols = op1.NrCols
	s.H, s.T = op1.T, op1.H
	return s.attach()
}

// NewSelect keeps the rows of op1 whose tail compares to the value op2.
func NewSelect(op1, op2 *Stmt, cmp Cmp) *Stmt {
	s := newStmt(StSelect)
	s.Op1, s.Op2 = op1, op2
	s.Cmp = cmp
	s.NrCols = 1
	s.H = op1.H
	return s.attach()
}

// NewSelectRange selects the equality range [lo, hi] in one step.
func NewSelectRange(op1, lo, hi *Stmt) *Stmt {
	s := newStmt(StSelect)
	s.Op1, s.Op2, s.Op3 = op1, lo, hi
	s.Cmp = CmpEqual
	s.NrCols = 1
	s.H = op1.H
	return s.attach()
}

// NewSelect2 selects the rows between lo and hi, cmp CmpNotEqual selects
// the rows outside.
func NewSelect2(op1, lo, hi *Stmt, cmp Cmp) *Stmt {
	s := newStmt(StSelect2)
	s.Op1, s.Op2, s.Op3 = op1, lo, hi
	s.Cmp = cmp
	s.NrCols = 1
	s.H = op1.H
	return s.attach()
}

// Flags of a select2 whose bound is excluded from the range.
const (
	LowOpen = 1 << iota
	HighOpen
)

// NewSelectBounds selects the rows between lo and hi, open holds the
// excluded bounds.
func NewSelectBounds(op1, lo, hi *Stmt, open int) *Stmt {
	s := NewSelect2(op1, lo, hi, CmpEqual)
	s.Flag = open
	return s
}

func NewLike(op1, pattern *Stmt) *Stmt {
	s := newStmt(StLike)
	s.Op1, s.Op2 = op1, pattern
	s.NrCols = 1
	s.H, s.T = op1.H, op1.T
	return s.attach()
}

// NewJoin pairs the head of op1 with the tail of op2 where the tail of op1
// compares to the head of op2.
func NewJoin(op1, op2 *Stmt, cmp Cmp) *Stmt {
	s := newStmt(StJoin)
	s.Op1, s.Op2 = op1, op2
	s.Cmp = cmp
	s.NrCols = 2
	s.H, s.T = op1.H, op2.T
	return s.attach()
}

// NewOuterJoin is a join keeping unmatched rows of op1, flag carries the
// join kind of the syntax tree.
func NewOuterJoin(op1, op2 *Stmt, cmp Cmp, flag int) *Stmt {
	s := newStmt(StOuterJoin)
	s.Op1, s.Op2 = op1, op2
	s.Cmp = cmp
	s.Flag = flag
	s.NrCols = 2
	s.H, s.T = op1.H, op2.T
	return s.attach()
}

func newSetOp(kind Kind, op1, op2 *Stmt) *Stmt {
	s := newStmt(kind)
	s.Op1, s.Op2 = op1, op2
	s.NrCols = op1.NrCols
	s.H, s.T = op1.H, op1.T
	return s.attach()
}

func NewSemijoin(op1, op2 *Stmt) *Stmt {
	return newSetOp(StSemijoin, op1, op2)
}

func NewDiff(op1, op2 *Stmt) *Stmt {
	return newSetOp(StDiff, op1, op2)
}

func NewIntersect(op1, op2 *Stmt) *Stmt {
	return newSetOp(StIntersect, op1, op2)
}

func NewUnion(op1, op2 *Stmt) *Stmt {
	return newSetOp(StUnion, op1, op2)
}

// NewMark replaces the head of op1 by dense oids starting at id, a
// negative id starts at zero without a fixed base.
func NewMark(op1 *Stmt, id int) *Stmt {
	s := newStmt(StMark)
	s.Op1 = op1
	s.Flag = id
	s.NrCols = op1.NrCols
	s.T = op1.T
	return s.attach()
}

// NewRemark marks op1 starting at the oid computed by cnt.
func NewRemark(op1, cnt *Stmt, id int) *Stmt {
	s := newStmt(StMark)
	s.Op1, s.Op2 = op1, cnt
	s.Flag = id
	s.NrCols = op1.NrCols
	s.T = op1.T
	return s.attach()
}

func NewCount(op1 *Stmt) *Stmt {
	s := newStmt(StCount)
	s.Op1 = op1
	s.T = op1.T
	return s.attach()
}

// NewConst is the shape of op1 with every tail set to val.
func NewConst(op1, val *Stmt) *Stmt {
	s := newStmt(StConst)
	s.Op1, s.Op2 = op1, val
	s.NrCols = op1.NrCols
	s.H = op1.H
	return s.attach()
}

func newUnary(kind Kind, op1 *Stmt) *Stmt {
	s := newStmt(kind)
	s.Op1 = op1
	s.NrCols = op1.NrCols
	s.T = op1.T
	return s
}

func NewGroup(op1 *Stmt) *Stmt {
	return newUnary(StGroup, op1).attach()
}

// NewDerive refines the groups of grp by the tail of op2.
func NewDerive(grp, op2 *Stmt) *Stmt {
	s := newUnary(StDerive, grp)
	s.Op2 = op2
	return s.attach()
}

// NewUnique removes duplicate tails of op1, with a group it keeps one row
// per group of grp.
func NewUnique(op1, grp *Stmt) *Stmt {
	s := newUnary(StUnique, op1)
	s.Op2 = grp
	return s.attach()
}

func NewOrder(op1 *Stmt, direction int) *Stmt {
	s := newUnary(StOrder, op1)
	s.Flag = direction
	return s.attach()
}

// NewReorder refines the order op1 by the tail of op2.
func NewReorder(op1, op2 *Stmt, direction int) *Stmt {
	s := newUnary(StReorder, op1)
	s.Op2 = op2
	s.Flag = direction
	return s.attach()
}

// NewOrdered is the result list res in the order of order.
func NewOrdered(order, res *Stmt) *Stmt {
	s := newStmt(StOrdered)
	s.Op1, s.Op2 = order, res
	s.NrCols = res.NrCols
	s.T = res.T
	return s.attach()
}

func NewLimit(op1 *Stmt, n int) *Stmt {
	s := newUnary(StLimit, op1)
	s.H = op1.H
	s.Flag = n
	return s.attach()
}

func NewUnop(op1 *Stmt, f *catalog.Func) *Stmt {
	s := newStmt(StUnop)
	s.Op1 = op1
	s.Func = f
	s.NrCols = op1.NrCols
	s.H = op1.H
	return s.attach()
}

// firstHead is the head of the first operand that is not a single value.
func firstHead(ops ...*Stmt) *TVar {
	for _, op := range ops {
		if op.NrCols > 0 {
			return op.H
		}
	}
	return ops[0].H
}

func maxCols(ops ...*Stmt) int {
	n := 0
	for _, op := range ops {
		if op.NrCols > n {
			n = op.NrCols
		}
	}
	return n
}

func NewBinop(op1, op2 *Stmt, f *catalog.Func) *Stmt {
	s := newStmt(StBinop)
	s.Op1, s.Op2 = op1, op2
	s.Func = f
	s.H = firstHead(op1, op2)
	s.NrCols = maxCols(op1, op2)
	return s.attach()
}

func NewTriop(op1, op2, op3 *Stmt, f *catalog.Func) *Stmt {
	s := newStmt(StTriop)
	s.List = []*Stmt{op1, op2, op3}
	s.Func = f
	s.H = firstHead(op1, op2, op3)
	s.NrCols = maxCols(op1, op2, op3)
	return s.attach()
}

// NewConvert casts op1 to t with the convert function f.
func NewConvert(op1 *Stmt, f *catalog.Func, t *catalog.SubType) *Stmt {
	s := newStmt(StConvert)
	s.Op1 = op1
	s.Func = f
	s.Type = t
	s.NrCols = op1.NrCols
	s.H = op1.H
	return s.attach()
}

// NewAggr aggregates the tail of op1. With a group grp and its extent ext
// the result has one row per group, without it is a single value.
func NewAggr(op1 *Stmt, a *catalog.Aggr, grp, ext *Stmt) *Stmt {
	s := newStmt(StAggr)
	s.Op1, s.Op2, s.Op3 = op1, grp, ext
	s.Aggr = a
	if grp != nil {
		s.NrCols = 1
		s.H = grp.H
	}
	return s.attach()
}

// NewExists keeps the rows of op1 whose tail is one of atoms.
func NewExists(op1 *Stmt, atoms []*Stmt) *Stmt {
	s := newStmt(StExists)
	s.Op1 = op1
	s.List = atoms
	s.NrCols = op1.NrCols
	s.H = op1.H
	return s.attach()
}

// NewInsertColumn appends the rows of rows to c.
func NewInsertColumn(c, rows *Stmt) *Stmt {
	s := newStmt(StInsertColumn)
	s.Op1, s.Op2 = c, rows
	s.NrCols = c.NrCols
	s.H, s.T = c.H, c.T
	return s.attach()
}

// NewInsert stores v under oid id in column c, a nil v stores NULL.
func NewInsert(c *catalog.Column, id, v *Stmt) *Stmt {
	s := newStmt(StInsert)
	s.Column = c
	s.Op1, s.Op2 = id, v
	return s.attach()
}

// NewUpdate replaces the values of c at the rows of target by values.
func NewUpdate(c *catalog.Column, target, values *Stmt) *Stmt {
	s := newStmt(StUpdate)
	s.Column = c
	s.Op1, s.Op2 = target, values
	return s.attach()
}

// NewDelete removes the rows at positions from c, nil clears the column.
func NewDelete(c *catalog.Column, positions *Stmt) *Stmt {
	s := newStmt(StDelete)
	s.Column = c
	s.Op1 = positions
	return s.attach()
}

func NewAlias(op1 *Stmt, name string) *Stmt {
	s := newStmt(StAlias)
	s.Op1 = op1
	s.Name = name
	s.NrCols = op1.NrCols
	s.H, s.T = op1.H, op1.T
	return s.attach()
}

func NewList(l []*Stmt) *Stmt {
	s := newStmt(StList)
	s.List = l
	s.NrCols = 0
	for _, e := range l {
		if e.NrCols > s.NrCols {
			s.NrCols = e.NrCols
		}
	}
	return s.attach()
}

// NewSet is a conjunction of relations.
func NewSet(l []*Stmt) *Stmt {
	s := newStmt(StSet)
	s.List = l
	return s.attach()
}

// NewSets is a disjunction of conjunctions.
func NewSets(sets [][]*Stmt) *Stmt {
	s := newStmt(StSets)
	s.Sets = sets
	return s.attach()
}

func NewOutput(l *Stmt) *Stmt {
	s := newStmt(StOutput)
	s.Op1 = l
	return s.attach()
}

// NewCreateView registers view t, query is the compiled column list.
func NewCreateView(t *catalog.Table, query *Stmt) *Stmt {
	s := newStmt(StCreateView)
	s.Table = t
	s.Op1 = query
	return s.attach()
}

// NewRelSelect is a conjunction of selects over one head.
func NewRelSelect(sels []*Stmt) *Stmt {
	s := newStmt(StRelSelect)
	s.List = sels
	s.NrCols = 1
	if len(sels) > 0 {
		s.H = sels[0].H
	}
	return s.attach()
}

// NewRelEqJoin joins on the pairwise equality of the columns in l and r.
func NewRelEqJoin(l, r []*Stmt) *Stmt {
	s := newStmt(StRelEqJoin)
	s.Op1 = NewList(l)
	s.Op2 = NewList(r)
	s.NrCols = 2
	if len(l) > 0 {
		s.H = l[0].H
		s.T = r[0].H
	}
	return s.attach()
}
