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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

type fixture struct {
	cat  *catalog.Catalog
	emp  *catalog.Table
	view *catalog.Table
	ev   *ir.TVar
	vv   *ir.TVar
	i32  *catalog.SubType
}

func newFixture(t *testing.T) *fixture {
	ctx := context.TODO()
	c := catalog.New()
	s, err := c.CreateSchema(ctx, "sys", "")
	require.NoError(t, err)
	f := &fixture{cat: c, i32: c.BindType("INT", 0, 0)}
	f.emp, err = c.CreateTable(ctx, s, "emp", catalog.TableBase)
	require.NoError(t, err)
	for _, name := range []string{"id", "age"} {
		_, err = c.CreateColumn(ctx, f.emp, name, f.i32, true, "")
		require.NoError(t, err)
	}
	_, err = c.CreateColumn(ctx, f.emp, "name", c.BindType("VARCHAR", 32, 0), true, "")
	require.NoError(t, err)
	f.ev = ir.NewTVar("emp", f.emp, nil)

	// v: SELECT age AS a FROM emp WHERE age > 17
	f.view, err = c.CreateTable(ctx, s, "v", catalog.TableView)
	require.NoError(t, err)
	plan := ir.NewAlias(ir.NewSelect(f.col(f.ev, "age"), f.intAtom(17), ir.CmpGt), "a")
	_, err = c.CreateViewColumn(ctx, f.view, "a", f.i32, plan.Dup())
	require.NoError(t, err)
	f.vv = ir.NewTVar("v", f.view, nil)
	return f
}

func (f *fixture) col(tv *ir.TVar, name string) *ir.Stmt {
	return ir.NewColumn(f.cat.BindColumn(tv.Table, name), tv)
}

func (f *fixture) intAtom(v int64) *ir.Stmt {
	return ir.NewAtom(ir.NewIntAtom(f.i32, v))
}

func (f *fixture) viewPlan() *ir.Stmt {
	return f.cat.BindColumn(f.view, "a").Plan.(*ir.Stmt)
}

func withParams(fn func(sv *config.CompilerParameters)) context.Context {
	sv := config.NewDefaultParameters()
	fn(sv)
	return config.WithParameterUnit(context.TODO(), config.NewParameterUnit(sv))
}

func nodes(s *ir.Stmt) []*ir.Stmt {
	var l []*ir.Stmt
	ir.Walk(s, func(n *ir.Stmt) bool {
		l = append(l, n)
		return true
	})
	return l
}

func TestRewriterMemo(t *testing.T) {
	f := newFixture(t)
	a := f.intAtom(1)
	add := f.cat.BindFunc("+", f.i32, f.i32, nil)
	require.NotNil(t, add)
	root := ir.NewBinop(a, a, add).Dup()

	calls := 0
	r := NewRewriter(context.TODO(), "test", func(s *ir.Stmt) bool {
		return s.Kind == ir.StAtom
	})
	r.On(true, func(_ *Rewriter[bool], n *ir.Stmt) (*ir.Stmt, error) {
		calls++
		return ir.NewAtom(ir.NewIntAtom(n.Atom.Type, n.Atom.Int+1)).Dup(), nil
	})
	res, err := r.Run(root)
	require.NoError(t, err)
	require.Same(t, root, res)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, r.Rewrites())
	require.Same(t, res.Op1, res.Op2)
	require.Equal(t, int64(2), res.Op1.Atom.Int)
	require.True(t, a.Freed())
	require.Equal(t, 2, res.Op1.RefCount())
	require.Equal(t, 1, res.RefCount())

	added := res.Op1
	res.Destroy()
	require.True(t, added.Freed())
}

func TestRewriterError(t *testing.T) {
	f := newFixture(t)
	root := ir.NewReverse(f.col(f.ev, "id")).Dup()
	r := NewRewriter(context.TODO(), "test", kindOf)
	r.On(ir.StColumn, func(_ *Rewriter[ir.Kind], n *ir.Stmt) (*ir.Stmt, error) {
		return nil, moerr.NewInternalErrorNoCtx("no %s", n)
	})
	_, err := r.Run(root)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	require.True(t, root.Freed())
}

func TestOptimize(t *testing.T) {
	Convey("view columns", t, func() {
		f := newFixture(t)
		out := func() *ir.Stmt {
			a := ir.NewAlias(ir.NewColumn(f.cat.BindColumn(f.view, "a"), f.vv), "a")
			return ir.NewOutput(ir.NewList([]*ir.Stmt{a})).Dup()
		}

		Convey("are inlined", func() {
			res, err := Optimize(context.TODO(), out())
			So(err, ShouldBeNil)
			a := res.Op1.List[0]
			So(a.Kind, ShouldEqual, ir.StAlias)
			So(a.Op1.Kind, ShouldEqual, ir.StSelect)
			So(f.viewPlan().Kind, ShouldEqual, ir.StAlias)

			Convey("and optimizing again changes nothing", func() {
				before := ir.Format(res)
				again, err := Optimize(context.TODO(), res)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, res)
				So(ir.Format(again), ShouldEqual, before)
			})
		})

		Convey("stay columns without inlining", func() {
			ctx := withParams(func(sv *config.CompilerParameters) {
				no := false
				sv.InlineViews = &no
			})
			res, err := Optimize(ctx, out())
			So(err, ShouldBeNil)
			So(res.Op1.List[0].Op1.Kind, ShouldEqual, ir.StColumn)
			So(f.viewPlan().Kind, ShouldEqual, ir.StSelect)
		})
	})
}

func TestOptimizeCollapsesAlias(t *testing.T) {
	f := newFixture(t)
	age := ir.NewAlias(f.col(f.ev, "age"), "x")
	order := ir.NewOrder(age, 1)
	root := ir.NewOrdered(order, ir.NewList([]*ir.Stmt{age})).Dup()

	res, err := Optimize(context.TODO(), root)
	require.NoError(t, err)
	require.Equal(t, ir.StColumn, res.Op1.Op1.Kind)
	require.Equal(t, ir.StAlias, res.Op2.List[0].Kind)
	require.Same(t, res.Op1.Op1, res.Op2.List[0].Op1)

	all := nodes(res)
	res.Destroy()
	for _, n := range all {
		require.True(t, n.Freed(), n.String())
	}
	require.True(t, age.Freed())
}

func TestRel2BinEqJoin(t *testing.T) {
	f := newFixture(t)
	dv := ir.NewTVar("e2", f.emp, nil)
	j := ir.NewRelEqJoin(
		[]*ir.Stmt{f.col(f.ev, "id"), f.col(f.ev, "age")},
		[]*ir.Stmt{f.col(dv, "id"), f.col(dv, "age")})
	root := ir.NewList([]*ir.Stmt{j}).Dup()

	res, err := Rel2Bin(context.TODO(), root)
	require.NoError(t, err)
	in := res.List[0]
	require.Equal(t, ir.StIntersect, in.Kind)
	for _, p := range []*ir.Stmt{in.Op1, in.Op2} {
		require.Equal(t, ir.StJoin, p.Kind)
		require.Equal(t, ir.CmpEqual, p.Cmp)
		require.Equal(t, ir.StColumn, p.Op1.Kind)
		require.Equal(t, ir.StReverse, p.Op2.Kind)
	}
	require.Equal(t, "id", in.Op1.Op1.Column.Name)
	require.Equal(t, "age", in.Op2.Op1.Column.Name)
	require.True(t, j.Freed())

	all := nodes(res)
	res.Destroy()
	for _, n := range all {
		require.True(t, n.Freed(), n.String())
	}
}

func TestRel2BinSelect(t *testing.T) {
	f := newFixture(t)
	build := func() *ir.Stmt {
		age := f.col(f.ev, "age")
		return ir.NewList([]*ir.Stmt{ir.NewRelSelect([]*ir.Stmt{
			ir.NewSelect(age, f.intAtom(17), ir.CmpGt),
			ir.NewSelect(f.col(f.ev, "name"), ir.NewAtom(ir.NewStrAtom(f.cat.BindType("VARCHAR", 32, 0), "bob")), ir.CmpEqual),
			ir.NewSelect(age, f.intAtom(65), ir.CmpLte),
		})}).Dup()
	}

	Convey("rel select", t, func() {
		Convey("squeezes the bounds of one column", func() {
			res, err := Rel2Bin(context.TODO(), build())
			So(err, ShouldBeNil)
			s := res.List[0]
			So(s.Kind, ShouldEqual, ir.StSemijoin)
			rng := s.Op1
			So(rng.Kind, ShouldEqual, ir.StSelect2)
			So(rng.Flag, ShouldEqual, ir.LowOpen)
			So(rng.Op2.Atom.Int, ShouldEqual, int64(17))
			So(rng.Op3.Atom.Int, ShouldEqual, int64(65))
			So(s.Op2.Op1.Column.Name, ShouldEqual, "name")

			all := nodes(res)
			res.Destroy()
			for _, n := range all {
				So(n.Freed(), ShouldBeTrue)
			}
		})

		Convey("chains semijoins without squeezing", func() {
			ctx := withParams(func(sv *config.CompilerParameters) {
				no := false
				sv.SqueezeSelects = &no
			})
			res, err := Rel2Bin(ctx, build())
			So(err, ShouldBeNil)
			s := res.List[0]
			So(s.Kind, ShouldEqual, ir.StSemijoin)
			So(s.Op1.Kind, ShouldEqual, ir.StSemijoin)
			So(s.Op1.Op1.Cmp, ShouldEqual, ir.CmpGt)
			So(s.Op2.Cmp, ShouldEqual, ir.CmpLte)
		})
	})
}

func TestRel2BinMalformedRelations(t *testing.T) {
	f := newFixture(t)
	dv := ir.NewTVar("e2", f.emp, nil)
	cases := map[string]*ir.Stmt{
		"empty join": ir.NewRelEqJoin(nil, nil),
		"uneven join": ir.NewRelEqJoin(
			[]*ir.Stmt{f.col(f.ev, "id"), f.col(f.ev, "age")},
			[]*ir.Stmt{f.col(dv, "id")}),
		"empty select": ir.NewRelSelect(nil),
	}
	for name, rel := range cases {
		root := ir.NewList([]*ir.Stmt{rel}).Dup()
		_, err := Rel2Bin(context.TODO(), root)
		require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal), name)
		require.True(t, root.Freed(), name)
		require.True(t, rel.Freed(), name)
	}
}

func TestSqueezeNeedsBothBounds(t *testing.T) {
	f := newFixture(t)
	age := f.col(f.ev, "age")
	sels := []*ir.Stmt{
		ir.NewSelect(age, f.intAtom(1), ir.CmpGt),
		ir.NewSelect(age, f.intAtom(2), ir.CmpGte),
	}
	require.Equal(t, sels, squeezeRanges(sels))

	sels = append(sels[:1], ir.NewSelect(age, f.intAtom(9), ir.CmpLt))
	res := squeezeRanges(sels)
	require.Len(t, res, 1)
	require.Equal(t, ir.LowOpen|ir.HighOpen, res[0].Flag)
}
