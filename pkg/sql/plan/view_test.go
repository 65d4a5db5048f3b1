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
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

func TestCreateView(t *testing.T) {
	Convey("create view", t, func() {
		b, cat := newTestBuilder(t, nil)
		q := query(tables("emp"), tree.NewCompare(col("age"), ">", tree.NewIntAtom(60)), col("name"), col("age"))
		sql := "CREATE VIEW seniors (n, a) AS SELECT name, age FROM emp WHERE age > 60"
		s, err := b.Build(tree.NewCreateView("seniors", []string{"n", "a"}, q, sql))
		So(err, ShouldBeNil)
		So(s.Kind, ShouldEqual, ir.StCreateView)

		v := cat.BindTable(cat.BindSchema("sys"), "seniors")
		So(v, ShouldNotBeNil)
		So(v.IsView(), ShouldBeTrue)
		So(v.Query, ShouldEqual, sql)
		So(v.Definition, ShouldContainSubstring, "SELECT")
		So(v.Columns, ShouldHaveLength, 2)
		So(v.Columns[0].Name, ShouldEqual, "n")
		So(v.Columns[1].Type.Type.SQLName, ShouldEqual, "INT")
		So(v.Columns[0].Plan, ShouldNotBeNil)

		Convey("the definition decodes to the same query", func() {
			def, err := tree.DecodeString(context.TODO(), v.Definition)
			So(err, ShouldBeNil)
			So(def.Select.Selection, ShouldHaveLength, 2)
			So(def.Select.Where.String(), ShouldEqual, "age > 60")
		})

		Convey("the view is queried like a table", func() {
			out, err := b.Build(tree.NewSelect(query(tables("seniors"), nil, col("n"))))
			So(err, ShouldBeNil)
			c := out.Op1.List[0]
			So(c.Op2.Kind, ShouldEqual, ir.StColumn)
			So(c.Op2.Column.Plan, ShouldNotBeNil)
		})

		Convey("the name is taken", func() {
			_, err := b.Build(tree.NewCreateView("seniors", nil, q, ""))
			So(moerr.IsMoErrCode(err, moerr.ErrSemantic), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "allready in use")
		})
	})
}

func TestCreateViewErrors(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp"), nil, col("name"))

	_, err := b.Build(tree.NewCreateView("v", []string{"a", "b"}, q, ""))
	requireCode(t, err, moerr.ErrWrongValueCount)

	_, err = b.Build(tree.NewCreateView("nope.v", nil, q, ""))
	requireCode(t, err, moerr.ErrCatalogMiss)

	// a failed definition leaves no view behind
	require.Nil(t, b.bindTable([]string{"v"}))
}

func TestDefineLoadedView(t *testing.T) {
	ctx := context.TODO()
	b, cat := newTestBuilder(t, nil)
	v := cat.BindTable(cat.BindSchema("sys"), "adults")
	require.NotNil(t, v)
	require.Empty(t, v.Columns)

	def, err := tree.DecodeString(ctx, v.Definition)
	require.NoError(t, err)
	s, err := b.DefineView(v, def.Select, nil)
	require.NoError(t, err)
	require.Equal(t, ir.StCreateView, s.Kind)
	require.Len(t, v.Columns, 1)
	require.Equal(t, "name", v.Columns[0].Name)

	_, err = b.DefineView(v, def.Select, nil)
	requireCode(t, err, moerr.ErrInvalidInput)

	emp := cat.BindTable(cat.BindSchema("sys"), "emp")
	_, err = b.DefineView(emp, def.Select, nil)
	requireCode(t, err, moerr.ErrInvalidInput)
}

func TestSelectFromUndefinedView(t *testing.T) {
	b, cat := newTestBuilder(t, nil)
	_, err := b.Build(tree.NewSelect(query(tables("adults"), nil, col("name"))))
	requireCode(t, err, moerr.ErrCatalogMiss)
	require.Contains(t, err.Error(), "View adults has no columns")

	v := cat.BindTable(cat.BindSchema("sys"), "adults")
	def, err := tree.DecodeString(context.TODO(), v.Definition)
	require.NoError(t, err)
	s, err := b.DefineView(v, def.Select, nil)
	require.NoError(t, err)
	s.Destroy()

	out := mustBuild(t, b, tree.NewSelect(query(tables("adults"), nil, col("name"))))
	require.NotNil(t, findStmt(out, func(n *ir.Stmt) bool {
		return n.Kind == ir.StColumn && n.Column.Table == v
	}))
}
