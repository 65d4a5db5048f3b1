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

package sequence

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	v2 "github.com/matrixorigin/batsql/pkg/util/metric/v2"
)

// Sequencer turns a statement DAG into instructions, one slot sN per
// node. A node reached again reuses its slot.
type Sequencer struct {
	ctx   context.Context
	debug bool
	nr    int
	slots map[uint32]int
	lines []string
}

func New(ctx context.Context) *Sequencer {
	return &Sequencer{
		ctx:   ctx,
		debug: config.GetParameterUnit(ctx).SV.DebugTiming,
		nr:    1,
		slots: make(map[uint32]int),
	}
}

// Dump sequences s and returns the instructions.
func Dump(ctx context.Context, s *ir.Stmt) ([]string, error) {
	sq := New(ctx)
	if _, err := sq.Dump(s); err != nil {
		return nil, err
	}
	v2.InstructionCounter.Add(float64(len(sq.lines)))
	logutil2.Debug(ctx, "statement sequenced",
		zap.Int("slots", sq.nr-1),
		zap.Int("lines", len(sq.lines)))
	return sq.lines, nil
}

func (sq *Sequencer) Lines() []string {
	return sq.lines
}

func (sq *Sequencer) next() int {
	n := sq.nr
	sq.nr++
	return n
}

func (sq *Sequencer) emit(format string, args ...interface{}) {
	sq.lines = append(sq.lines, fmt.Sprintf(format, args...))
}

// Dump sequences the DAG below s and returns the slot holding its result.
func (sq *Sequencer) Dump(s *ir.Stmt) (int, error) {
	if nr, ok := sq.slots[s.ID()]; ok {
		return nr, nil
	}
	nr, err := sq.dump(s)
	if err != nil {
		return 0, err
	}
	sq.slots[s.ID()] = nr
	return nr, nil
}

func (sq *Sequencer) dumpAll(ss ...*ir.Stmt) ([]int, error) {
	nrs := make([]int, len(ss))
	for i, s := range ss {
		nr, err := sq.Dump(s)
		if err != nil {
			return nil, err
		}
		nrs[i] = nr
	}
	return nrs, nil
}

// last sequences ss and returns the slot of the last one.
func (sq *Sequencer) last(ss []*ir.Stmt) (int, error) {
	nrs, err := sq.dumpAll(ss...)
	if err != nil || len(nrs) == 0 {
		return 0, err
	}
	return nrs[len(nrs)-1], nil
}

func (sq *Sequencer) dump(s *ir.Stmt) (int, error) {
	switch s.Kind {
	case ir.StList, ir.StSet:
		return sq.last(s.List)
	case ir.StSets:
		var nr int
		for _, set := range s.Sets {
			n, err := sq.last(set)
			if err != nil {
				return 0, err
			}
			nr = n
		}
		return nr, nil
	case ir.StAlias:
		return sq.Dump(s.Op1)
	case ir.StOrdered:
		nrs, err := sq.dumpAll(s.Op1, s.Op2)
		if err != nil {
			return 0, err
		}
		return nrs[0], nil
	case ir.StColumn:
		if plan, ok := s.Column.Plan.(*ir.Stmt); ok && plan != nil {
			return sq.Dump(plan)
		}
	case ir.StOutput:
		return 0, sq.output(s)
	case ir.StRelSelect, ir.StRelEqJoin:
		return 0, moerr.NewInternalError(sq.ctx, "%s reached the sequencer", s)
	}

	var ops []*ir.Stmt
	switch s.Kind {
	case ir.StTriop:
		ops = s.List
	case ir.StExists:
		ops = []*ir.Stmt{s.Op1}
	case ir.StInsert:
		ops = []*ir.Stmt{s.Op1}
		if !isNull(s.Op2) {
			ops = append(ops, s.Op2)
		}
	case ir.StCreateView:
	default:
		for _, op := range []*ir.Stmt{s.Op1, s.Op2, s.Op3} {
			if op != nil {
				ops = append(ops, op)
			}
		}
	}
	nrs, err := sq.dumpAll(ops...)
	if err != nil {
		return 0, err
	}

	if sq.debug {
		sq.emit("t0 := time();")
	}
	nr, err := sq.instruction(s, nrs)
	if err != nil {
		return 0, err
	}
	if sq.debug {
		sq.emit("t1 := time(); printf(\"%d %%d\\n\", t1 - t0);", nr)
	}
	return nr, nil
}

// instruction emits the instruction of s over the slots of its operands.
func (sq *Sequencer) instruction(s *ir.Stmt, nrs []int) (int, error) {
	var l, r int
	if len(nrs) > 0 {
		l = nrs[0]
	}
	if len(nrs) > 1 {
		r = nrs[1]
	}

	switch s.Kind {
	case ir.StAtom:
		n := sq.next()
		sq.emit("s%d := %s;", n, s.Atom.Dump())
		return n, nil

	case ir.StColumn:
		n := sq.next()
		sq.emit("s%d := mvc_bind(myc, %d); # %s.%s", n, s.Column.ID, s.Column.Table.Name, s.Column.Name)
		return n, nil

	case ir.StBaseTable:
		n := sq.next()
		sq.emit("s%d := mvc_bind_table(myc, %d); # %s", n, s.Table.ID, s.Table.Name)
		return n, nil

	case ir.StReverse:
		return sq.unary(l, "s%d := s%d.reverse();")
	case ir.StCount:
		return sq.unary(l, "s%d := s%d.count();")
	case ir.StGroup:
		return sq.unary(l, "s%d := s%d.group();")
	case ir.StOrder:
		return sq.unary(l, "s%d := s%d.reverse().sort().reverse();")

	case ir.StSelect:
		return sq.selection(s, l, nrs)
	case ir.StSelect2:
		return sq.rangeSelection(s, l, r, nrs[2])
	case ir.StLike:
		return sq.binary(l, r, "s%d := s%d.likeselect(s%d);")
	case ir.StSemijoin:
		return sq.binary(l, r, "s%d := s%d.semijoin(s%d);")
	case ir.StDiff:
		return sq.binary(l, r, "s%d := s%d.kdiff(s%d);")
	case ir.StIntersect:
		return sq.binary(l, r, "s%d := s%d.sintersect(s%d);")
	case ir.StUnion:
		return sq.binary(l, r, "s%d := s%d.kunion(s%d);")
	case ir.StConst:
		return sq.binary(l, r, "s%d := s%d.project(s%d);")
	case ir.StDerive:
		return sq.binary(l, r, "s%d := s%d.group(s%d);")
	case ir.StReorder:
		return sq.binary(l, r, "s%d := s%d.CTrefine(s%d);")

	case ir.StJoin:
		return sq.join(s, "join", l, r)
	case ir.StOuterJoin:
		return sq.join(s, "outerjoin", l, r)

	case ir.StMark:
		n := sq.next()
		switch {
		case s.Op2 != nil:
			sq.emit("s%d := s%d.reverse().mark(oid(s%d)).reverse();", n, l, r)
		case s.Flag >= 0:
			sq.emit("s%d := s%d.reverse().mark(oid(%d)).reverse();", n, l, s.Flag)
		default:
			sq.emit("s%d := s%d.reverse().mark().reverse();", n, l)
		}
		return n, nil

	case ir.StUnique:
		n := sq.next()
		switch {
		case s.Op2 != nil:
			sq.emit("s%d := s%d.group(s%d);", n, l, r)
			m := sq.next()
			sq.emit("s%d := s%d.tunique().mirror().join(s%d);", m, n, r)
			return m, nil
		case s.Op1.Kind == ir.StGroup || s.Op1.Kind == ir.StDerive:
			sq.emit("s%d := s%d.tunique().mirror();", n, l)
		default:
			sq.emit("s%d := s%d.reverse().kunique().reverse();", n, l)
		}
		return n, nil

	case ir.StLimit:
		n := sq.next()
		sq.emit("s%d := s%d.slice(0, %d);", n, l, s.Flag-1)
		return n, nil

	case ir.StUnop, ir.StConvert:
		n := sq.next()
		if s.Op1.NrCols > 0 {
			sq.emit("s%d := [%s](s%d);", n, s.Func.Imp, l)
		} else {
			sq.emit("s%d := %s(s%d);", n, s.Func.Imp, l)
		}
		return n, nil

	case ir.StBinop:
		return sq.binop(s, l, r), nil
	case ir.StTriop:
		return sq.triop(s, nrs), nil
	case ir.StAggr:
		return sq.aggr(s, l, nrs), nil
	case ir.StExists:
		return sq.exists(s, l), nil

	case ir.StInsertColumn:
		return sq.binary(l, r, "s%d := insert(s%d.access(BAT_WRITE),s%d);")

	case ir.StInsert:
		n := sq.next()
		if isNull(s.Op2) {
			sq.emit("s%d := mvc_bind(myc, %d).insert(oid(s%d),%s(nil));", n, s.Column.ID, l, s.Column.Type.Type.Name)
		} else {
			sq.emit("s%d := mvc_bind(myc, %d).insert(oid(s%d),s%d);", n, s.Column.ID, l, r)
		}
		return n, nil

	case ir.StUpdate:
		n := sq.next()
		sq.emit("s%d := mvc_bind(myc, %d).access(BAT_WRITE).replace(s%d);", n, s.Column.ID, r)
		return n, nil

	case ir.StDelete:
		n := sq.next()
		if s.Op1 == nil {
			sq.emit("s%d := mvc_bind(myc, %d).clear();", n, s.Column.ID)
		} else {
			sq.emit("s%d := mvc_bind(myc, %d).delete(s%d);", n, s.Column.ID, l)
		}
		return n, nil

	case ir.StCreateView:
		return sq.createView(s), nil
	}
	return 0, moerr.NewInternalError(sq.ctx, "cannot sequence %s", s)
}

func (sq *Sequencer) unary(l int, format string) (int, error) {
	n := sq.next()
	sq.emit(format, n, l)
	return n, nil
}

func (sq *Sequencer) binary(l, r int, format string) (int, error) {
	n := sq.next()
	sq.emit(format, n, l, r)
	return n, nil
}

func (sq *Sequencer) selection(s *ir.Stmt, l int, nrs []int) (int, error) {
	r := nrs[1]
	n := sq.next()
	tpe := typeName(ir.TailType(s))
	switch s.Cmp {
	case ir.CmpEqual:
		if s.Op3 != nil {
			sq.emit("s%d := s%d.uselect(s%d, s%d);", n, l, r, nrs[2])
		} else {
			sq.emit("s%d := s%d.uselect(s%d);", n, l, r)
		}
	case ir.CmpNotEqual:
		sq.emit("s%d := s%d.uselect(s%d);", n, l, r)
		m := sq.next()
		sq.emit("s%d := s%d.kdiff(s%d);", m, l, n)
		return m, nil
	case ir.CmpLt:
		sq.emit("s%d := s%d.mil_select(\"<in>\", %s(nil), s%d);", n, l, tpe, r)
	case ir.CmpLte:
		sq.emit("s%d := s%d.uselect(%s(nil), s%d);", n, l, tpe, r)
	case ir.CmpGt:
		sq.emit("s%d := s%d.mil_select(\"<in>\", s%d, %s(nil));", n, l, r, tpe)
	case ir.CmpGte:
		sq.emit("s%d := s%d.uselect(s%d, %s(nil));", n, l, r, tpe)
	default:
		return 0, moerr.NewInternalError(sq.ctx, "select %s with %s", s, s.Cmp)
	}
	return n, nil
}

func (sq *Sequencer) rangeSelection(s *ir.Stmt, l, lo, hi int) (int, error) {
	n := sq.next()
	if s.Flag == 0 {
		sq.emit("s%d := s%d.select(s%d, s%d);", n, l, lo, hi)
	} else {
		sq.emit("s%d := s%d.select(s%d, s%d, %t, %t);", n, l, lo, hi,
			s.Flag&ir.LowOpen == 0, s.Flag&ir.HighOpen == 0)
	}
	if s.Cmp != ir.CmpNotEqual {
		return n, nil
	}
	m := sq.next()
	sq.emit("s%d := s%d.kdiff(s%d);", m, l, n)
	return m, nil
}

func (sq *Sequencer) join(s *ir.Stmt, op string, l, r int) (int, error) {
	n := sq.next()
	switch s.Cmp {
	case ir.CmpEqual:
		sq.emit("s%d := s%d.%s(s%d);", n, l, op, r)
	case ir.CmpAll:
		sq.emit("s%d := s%d.cross(s%d);", n, l, r)
	default:
		sq.emit("s%d := s%d.%s(s%d, %q);", n, l, op, r, s.Cmp.String())
	}
	return n, nil
}

// binop multiplexes over the operands with columns, a single value is
// first expanded to the shape of the other operand.
func (sq *Sequencer) binop(s *ir.Stmt, l, r int) int {
	if s.Op1.NrCols == 0 && s.Op2.NrCols == 0 {
		n := sq.next()
		sq.emit("s%d := %s(s%d,s%d);", n, s.Func.Imp, l, r)
		return n
	}
	if s.Op1.NrCols == 0 {
		n := sq.next()
		sq.emit("s%d := [s%d ~ s%d];", n, r, l)
		l = n
	}
	if s.Op2.NrCols == 0 {
		n := sq.next()
		sq.emit("s%d := [s%d ~ s%d];", n, l, r)
		r = n
	}
	n := sq.next()
	sq.emit("s%d := [%s](s%d,s%d);", n, s.Func.Imp, l, r)
	return n
}

func (sq *Sequencer) triop(s *ir.Stmt, nrs []int) int {
	shape := 0
	for i, op := range s.List {
		if op.NrCols > 0 {
			shape = nrs[i]
		}
	}
	if shape == 0 {
		n := sq.next()
		sq.emit("s%d := %s(s%d,s%d,s%d);", n, s.Func.Imp, nrs[0], nrs[1], nrs[2])
		return n
	}
	for i, op := range s.List {
		if op.NrCols == 0 {
			n := sq.next()
			sq.emit("s%d := [ s%d ~ s%d];", n, shape, nrs[i])
			nrs[i] = n
		}
	}
	n := sq.next()
	sq.emit("s%d := [%s](s%d,s%d,s%d);", n, s.Func.Imp, nrs[0], nrs[1], nrs[2])
	return n
}

// aggr emits a grouped aggregate over the extent in Op3, without groups
// the single value becomes a one row bat.
func (sq *Sequencer) aggr(s *ir.Stmt, l int, nrs []int) int {
	imp := s.Aggr.Imp
	if s.Op3 == nil {
		n := sq.next()
		sq.emit("s%d := s%d.%s();", n, l, imp)
		m := sq.next()
		sq.emit("s%d := new(oid,%s);", m, s.Aggr.Res.Name)
		sq.emit("s%d.insert(oid(0),s%d);", m, n)
		return m
	}
	ext := nrs[len(nrs)-1]
	n := sq.next()
	switch {
	case s.Op1 == s.Op3:
		sq.emit("s%d := {%s}(s%d.reverse(), s%d.tunique());", n, imp, l, ext)
	case s.Op1.Kind == ir.StColumn:
		sq.emit("s%d := {%s}(s%d, s%d, s%d.tunique());", n, imp, l, ext, ext)
	default:
		sq.emit("s%d := {%s}(s%d.reverse().join(s%d),s%d.tunique());", n, imp, ext, l, ext)
	}
	return n
}

// exists joins with a bat holding the atoms of the list.
func (sq *Sequencer) exists(s *ir.Stmt, l int) int {
	set := sq.next()
	if len(s.List) > 0 {
		sq.emit("s%d := new(%s,oid);", set, typeName(ir.TailType(s.List[0])))
	}
	for i, a := range s.List {
		k := sq.next()
		sq.emit("s%d := %s;", k, a.Atom.Dump())
		sq.emit("s%d.insert(s%d, oid(%d));", set, k, i+1)
	}
	n := sq.next()
	sq.emit("s%d := s%d.join(s%d);", n, l, set)
	return n
}

func (sq *Sequencer) createView(s *ir.Stmt) int {
	t := s.Table
	n := sq.next()
	sq.emit("s%d := mvc_create_view(myc, %d, %d, %q, %q);", n, t.ID, t.Schema.ID, t.Name, t.Query)
	for _, c := range t.Columns {
		m := sq.next()
		sq.emit("s%d := mvc_create_column(myc, %d, %d, %q, %q, %d);", m, c.ID, t.ID, c.Name, c.Type.Type.SQLName, c.ColNr)
	}
	return n
}

// output sends the projected columns to the client, in the order of the
// ordering when there is one.
func (sq *Sequencer) output(s *ir.Stmt) error {
	if _, err := sq.Dump(s.Op1); err != nil {
		return err
	}
	lst := s.Op1
	var order *ir.Stmt
	if lst.Kind == ir.StOrdered {
		order, lst = lst.Op1, lst.Op2
	}
	if lst.Kind != ir.StList || len(lst.List) == 0 {
		return moerr.NewInternalError(sq.ctx, "not a valid output list %s", lst)
	}
	if order == nil {
		order = lst.List[0]
	}
	for _, c := range lst.List {
		sq.emit("# %s %s", ir.ColumnName(c), ir.TailType(c))
	}
	o := sq.slots[order.ID()]
	sq.emit("output_count(s%d, Output);", o)
	var buf strings.Builder
	fmt.Fprintf(&buf, "server_output(Output, s%d ", o)
	for _, c := range lst.List {
		fmt.Fprintf(&buf, ", s%d", sq.slots[c.ID()])
	}
	buf.WriteString(");")
	sq.lines = append(sq.lines, buf.String())
	sq.emit("stream_flush(Output);")
	return nil
}

func isNull(s *ir.Stmt) bool {
	return s == nil || (s.Kind == ir.StAtom && s.Atom.Null)
}

// typeName is the column store name of t.
func typeName(t *catalog.SubType) string {
	if t == nil || t.Type == nil {
		return "oid"
	}
	return t.Type.Name
}
