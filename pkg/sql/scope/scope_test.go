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

package scope

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
)

func newTables(t *testing.T) (*catalog.Table, *catalog.Table) {
	ctx := context.TODO()
	c := catalog.New()
	s, err := c.CreateSchema(ctx, "sys", "")
	require.NoError(t, err)
	emp, err := c.CreateTable(ctx, s, "emp", catalog.TableBase)
	require.NoError(t, err)
	dept, err := c.CreateTable(ctx, s, "dept", catalog.TableBase)
	require.NoError(t, err)
	i32 := c.BindType("INT", 0, 0)
	for _, name := range []string{"id", "age", "dno"} {
		_, err = c.CreateColumn(ctx, emp, name, i32, true, "")
		require.NoError(t, err)
	}
	for _, name := range []string{"id", "dno"} {
		_, err = c.CreateColumn(ctx, dept, name, i32, true, "")
		require.NoError(t, err)
	}
	return emp, dept
}

func TestBindColumn(t *testing.T) {
	emp, dept := newTables(t)
	ctx := context.TODO()

	Convey("columns resolve in the nearest scope", t, func() {
		outer := Open(nil)
		ev := outer.AddTableColumns(emp, "emp")
		So(outer.FirstTable(), ShouldEqual, ev)
		So(outer.FirstColumn().Name, ShouldEqual, "id")
		So(ev.Rel.H, ShouldEqual, ev)

		s, err := outer.BindColumn(ctx, "", "age")
		So(err, ShouldBeNil)
		So(s.Kind, ShouldEqual, ir.StColumn)
		So(s.H, ShouldEqual, ev)

		s, err = outer.BindColumn(ctx, "emp", "nope")
		So(err, ShouldBeNil)
		So(s, ShouldBeNil)

		Convey("two tables with the same column name are ambiguous", func() {
			outer.AddTableColumns(dept, "dept")
			_, err := outer.BindColumn(ctx, "", "dno")
			So(err, ShouldNotBeNil)
			So(moerr.IsMoErrCode(err, moerr.ErrAmbiguousColumn), ShouldBeTrue)

			s, err := outer.BindColumn(ctx, "dept", "dno")
			So(err, ShouldBeNil)
			So(s.H.Name, ShouldEqual, "dept")
		})

		Convey("an outer column lifts its table variable once", func() {
			inner := Open(outer)
			dv := inner.AddTableColumns(dept, "d")

			s, err := inner.BindColumn(ctx, "", "age")
			So(err, ShouldBeNil)
			So(s.H, ShouldEqual, ev)
			_, err = inner.BindColumn(ctx, "emp", "id")
			So(err, ShouldBeNil)
			So(inner.Lifted(), ShouldResemble, []*ir.TVar{ev})

			s, err = inner.BindColumn(ctx, "", "dno")
			So(err, ShouldBeNil)
			So(s.H, ShouldEqual, dv)
			So(len(inner.Lifted()), ShouldEqual, 1)

			So(inner.Close(), ShouldEqual, outer)
		})

		Convey("a lifted column is restricted by the outer pivot", func() {
			age := ev.Column("age").S
			p := ir.NewMark(ir.NewReverse(ir.NewSelect(age, ir.NewAtom(ir.NewIntAtom(age.Column.Type, 3)), ir.CmpGt)), 0)
			So(p.T, ShouldEqual, ev)
			outer.SetPivot(ir.NewList([]*ir.Stmt{p}))
			So(FindPivot(outer.Pivot(), ev), ShouldEqual, p)

			inner := Open(outer)
			s, err := inner.BindColumn(ctx, "", "id")
			So(err, ShouldBeNil)
			So(s.Kind, ShouldEqual, ir.StSemijoin)
			So(s.H, ShouldEqual, ev)
			So(s.Op2.Op1, ShouldEqual, p)
			inner.Close()
		})
	})
}

func TestAliasAndClose(t *testing.T) {
	emp, _ := newTables(t)
	ctx := context.TODO()
	sc := Open(nil)
	ev := sc.AddTableColumns(emp, "e")
	id := ev.Column("id").S
	a := ir.NewAlias(id, "key")
	sc.AddAlias(a, "key")

	s, err := sc.Bind(ctx, "", "key")
	require.NoError(t, err)
	require.Same(t, a, s)
	s, err = sc.Bind(ctx, "e", "key")
	require.NoError(t, err)
	require.Nil(t, s)
	require.Same(t, ev, sc.BindTable("e"))
	require.Nil(t, sc.BindTable("emp"))

	p := ir.NewList([]*ir.Stmt{ir.NewMark(ir.NewReverse(id), 0)})
	sc.SetPivot(p)
	require.Equal(t, 1, p.RefCount())

	require.Nil(t, sc.Close())
	require.True(t, a.Freed())
	require.True(t, p.Freed())
	require.True(t, id.Freed())
	require.Empty(t, sc.Tables())
	require.Nil(t, sc.Pivot())
}

func TestFindPivot(t *testing.T) {
	require.Nil(t, FindPivot(nil, nil))
	emp, dept := newTables(t)
	ev := ir.NewTVar("emp", emp, nil)
	dv := ir.NewTVar("dept", dept, nil)
	p := ir.NewMark(ir.NewReverse(ir.NewColumn(emp.Columns[0], ev)), 0)
	l := ir.NewList([]*ir.Stmt{p})
	require.Same(t, p, FindPivot(l, ev))
	require.Nil(t, FindPivot(l, dv))
}
