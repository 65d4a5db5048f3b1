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
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/catalog/mock_catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

const testCatalog = `
[[schema]]
name = "sys"

  [[schema.table]]
  name = "emp"
    [[schema.table.column]]
    name = "id"
    type = "INT"
    null = false
    [[schema.table.column]]
    name = "name"
    type = "VARCHAR"
    digits = 32
    [[schema.table.column]]
    name = "age"
    type = "INT"
    [[schema.table.column]]
    name = "dept"
    type = "INT"
    [[schema.table.column]]
    name = "salary"
    type = "INT"
    default = "0"

  [[schema.table]]
  name = "dept"
    [[schema.table.column]]
    name = "id"
    type = "INT"
    [[schema.table.column]]
    name = "name"
    type = "VARCHAR"
    digits = 32

  [[schema.table]]
  name = "misc"
    [[schema.table.column]]
    name = "x"
    type = "INT"

  [[schema.table]]
  name = "adults"
  kind = "view"
  query = "SELECT name FROM emp WHERE age > 17"
  ast = '''
token: select
select:
  selection:
    - token: column
      names: [name]
  from:
    - token: table
      names: [emp]
  where:
    token: compare
    str: ">"
    list:
      - token: column
        names: [age]
      - token: atom
        atom: {kind: int, int: 17}
'''
`

func newTestBuilder(t *testing.T, params *config.CompilerParameters) (*QueryBuilder, *catalog.Catalog) {
	ctx := context.TODO()
	cat, err := catalog.Load(ctx, strings.NewReader(testCatalog))
	require.NoError(t, err)
	b, err := NewQueryBuilder(ctx, cat, params)
	require.NoError(t, err)
	return b, cat
}

func mustBuild(t *testing.T, b *QueryBuilder, stmt *tree.Symbol) *ir.Stmt {
	s, err := b.Build(stmt)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func query(from []*tree.Symbol, where *tree.Symbol, cols ...*tree.Symbol) *tree.SelectNode {
	sn := tree.NewSelectNode()
	sn.From = from
	sn.Where = where
	sn.Selection = cols
	return sn
}

func tables(names ...string) []*tree.Symbol {
	l := make([]*tree.Symbol, len(names))
	for i, n := range names {
		name, alias := n, ""
		if f := strings.Fields(n); len(f) == 2 {
			name, alias = f[0], f[1]
		}
		l[i] = tree.NewTable(name, alias)
	}
	return l
}

func col(names ...string) *tree.Symbol {
	return tree.NewColumn(names...)
}

func kinds(s *ir.Stmt) map[ir.Kind]int {
	m := make(map[ir.Kind]int)
	ir.Walk(s, func(n *ir.Stmt) bool {
		m[n.Kind]++
		return true
	})
	return m
}

func findStmt(s *ir.Stmt, pred func(*ir.Stmt) bool) *ir.Stmt {
	var found *ir.Stmt
	ir.Walk(s, func(n *ir.Stmt) bool {
		if found == nil && pred(n) {
			found = n
		}
		return found == nil
	})
	return found
}

func requireCode(t *testing.T, err error, code uint16) {
	require.Error(t, err)
	require.True(t, moerr.IsMoErrCode(err, code), "unexpected error %v", err)
}

func TestSimpleSelect(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp"), tree.NewCompare(col("age"), ">", tree.NewIntAtom(23)), col("name"))
	out := mustBuild(t, b, tree.NewSelect(q))

	require.Equal(t, ir.StOutput, out.Kind)
	l := out.Op1
	require.Equal(t, ir.StList, l.Kind)
	require.Len(t, l.List, 1)

	c := l.List[0]
	require.Equal(t, ir.StJoin, c.Kind)
	require.Equal(t, ir.StColumn, c.Op2.Kind)
	require.Equal(t, "name", c.Op2.Column.Name)

	p := c.Op1
	require.Equal(t, ir.StMark, p.Kind)
	require.Equal(t, 0, p.Flag)
	require.Nil(t, p.H)
	require.Equal(t, ir.StReverse, p.Op1.Kind)
	sel := p.Op1.Op1
	require.Equal(t, ir.StSelect, sel.Kind)
	require.Equal(t, ir.CmpGt, sel.Cmp)
	require.Equal(t, "age", sel.Op1.Column.Name)
	require.Equal(t, ir.StAtom, sel.Op2.Kind)

	name := c.Op2
	out.Destroy()
	require.True(t, name.Freed())
	require.True(t, sel.Freed())
}

func TestJoinTwoTables(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp e", "dept d"),
		tree.NewCompare(col("e", "dept"), "=", col("d", "id")),
		col("e", "name"), col("d", "name"))
	out := mustBuild(t, b, tree.NewSelect(q))

	cols := out.Op1.List
	require.Len(t, cols, 2)
	for _, c := range cols {
		require.Equal(t, ir.StJoin, c.Kind)
		require.Equal(t, ir.StMark, c.Op1.Kind)
		require.Equal(t, c.Op1.T, c.Op2.H)
	}
	require.NotSame(t, cols[0].Op1, cols[1].Op1)
	require.Equal(t, "e", cols[0].Op1.T.Name)
	require.Equal(t, "d", cols[1].Op1.T.Name)

	j := findStmt(out, func(n *ir.Stmt) bool {
		return n.Kind == ir.StJoin && n.Op2.Kind == ir.StReverse && n.Op2.Op1.Kind == ir.StColumn
	})
	require.NotNil(t, j)
	require.Equal(t, ir.CmpEqual, j.Cmp)
}

func TestCrossProduct(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	out := mustBuild(t, b, tree.NewSelect(query(tables("emp e", "dept d"), nil, col("e", "name"), col("d", "name"))))
	j := findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StJoin && n.Cmp == ir.CmpAll })
	require.NotNil(t, j)
	require.Len(t, out.Op1.List, 2)
}

func TestUnrelatedTables(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	where := tree.NewAnd(
		tree.NewCompare(col("e", "age"), ">", tree.NewIntAtom(1)),
		tree.NewCompare(col("d", "id"), ">", tree.NewIntAtom(2)))
	_, err := b.Build(tree.NewSelect(query(tables("emp e", "dept d"), where, col("e", "name"))))
	requireCode(t, err, moerr.ErrUnrelatedTables)
	require.Contains(t, err.Error(), "unrelated tables")
}

func TestOrPivots(t *testing.T) {
	where := tree.NewOr(
		tree.NewCompare(col("age"), ">", tree.NewIntAtom(60)),
		tree.NewCompare(col("age"), "<", tree.NewIntAtom(20)))
	q := query(tables("emp"), where, col("name"))

	Convey("OR branches append their pivot rows", t, func() {
		b, _ := newTestBuilder(t, nil)
		out, err := b.Build(tree.NewSelect(q))
		So(err, ShouldBeNil)
		k := kinds(out)
		So(k[ir.StInsertColumn], ShouldEqual, 1)
		So(k[ir.StGroup], ShouldEqual, 0)
		remark := findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StMark && n.Op2 != nil })
		So(remark, ShouldNotBeNil)
		So(remark.Flag, ShouldEqual, orMarkBase)
		So(remark.Op2.Kind, ShouldEqual, ir.StCount)
	})

	Convey("set semantics removes rows found twice", t, func() {
		params := config.NewDefaultParameters()
		params.OrSetSemantics = true
		b, _ := newTestBuilder(t, params)
		out, err := b.Build(tree.NewSelect(q))
		So(err, ShouldBeNil)
		k := kinds(out)
		So(k[ir.StInsertColumn], ShouldEqual, 1)
		So(k[ir.StGroup], ShouldBeGreaterThan, 0)
		So(k[ir.StUnique], ShouldBeGreaterThan, 0)
	})
}

// requireReleased drops the only reference on out and checks that every
// node below it was freed.
func requireReleased(t *testing.T, out *ir.Stmt, msg string) {
	var all []*ir.Stmt
	ir.Walk(out, func(n *ir.Stmt) bool {
		all = append(all, n)
		return true
	})
	out.Dup()
	out.Destroy()
	live := 0
	for _, n := range all {
		if !n.Freed() {
			live++
		}
	}
	require.Zero(t, live, "%s: %d of %d nodes still referenced", msg, live, len(all))
}

func TestReleaseFreesPlan(t *testing.T) {
	cmp := func(c *tree.Symbol, op string, v int64) *tree.Symbol {
		return tree.NewCompare(c, op, tree.NewIntAtom(v))
	}
	cases := []struct {
		name  string
		q     *tree.SelectNode
		orSet bool
	}{
		{"select", query(tables("emp"), cmp(col("age"), ">", 23), col("name")), false},
		{"and", query(tables("emp"), tree.NewAnd(cmp(col("age"), ">", 1), cmp(col("salary"), "<", 5)), col("name")), false},
		{"or", query(tables("emp"), tree.NewOr(cmp(col("age"), ">", 60), cmp(col("age"), "<", 20)), col("name")), false},
		{"or as set", query(tables("emp"), tree.NewOr(cmp(col("age"), ">", 60), cmp(col("age"), "<", 20)), col("name")), true},
		{"and over or", query(tables("emp"), tree.NewAnd(cmp(col("salary"), ">", 3),
			tree.NewOr(cmp(col("age"), ">", 60), cmp(col("age"), "<", 20))), col("name"), col("age")), false},
		{"join", query(tables("emp e", "dept d"), tree.NewCompare(col("e", "dept"), "=", col("d", "id")),
			col("e", "name"), col("d", "name")), false},
		{"cross", query(tables("emp e", "dept d"), nil, col("e", "name"), col("d", "name")), false},
		{"cyclic join", query(tables("emp e", "dept d", "misc m"), tree.NewAnd(
			tree.NewAnd(
				tree.NewCompare(col("e", "dept"), "=", col("d", "id")),
				tree.NewCompare(col("d", "id"), "=", col("m", "x"))),
			tree.NewCompare(col("m", "x"), "=", col("e", "id"))),
			col("e", "name"), col("d", "name"), col("m", "x")), false},
	}
	for _, c := range cases {
		params := config.NewDefaultParameters()
		params.OrSetSemantics = c.orSet
		b, _ := newTestBuilder(t, params)
		requireReleased(t, mustBuild(t, b, tree.NewSelect(c.q)), c.name)
	}
}

func TestCaseCompoundCondition(t *testing.T) {
	when := func(cond *tree.Symbol) *tree.Symbol {
		return tree.NewCase(nil, tree.NewWhen(cond, tree.NewIntAtom(1)), tree.NewElse(tree.NewIntAtom(0)))
	}
	isSelectOn := func(name string) func(*ir.Stmt) bool {
		return func(n *ir.Stmt) bool {
			return n.Kind == ir.StSelect && n.Op1.Kind == ir.StColumn && n.Op1.Column.Name == name
		}
	}

	Convey("compound CASE conditions", t, func() {
		b, _ := newTestBuilder(t, nil)

		Convey("a conjunction keeps every predicate", func() {
			cond := tree.NewAnd(
				tree.NewCompare(col("age"), ">", tree.NewIntAtom(1)),
				tree.NewCompare(col("salary"), "<", tree.NewIntAtom(5)))
			out, err := b.Build(tree.NewSelect(query(tables("emp"), nil, when(cond))))
			So(err, ShouldBeNil)
			age, salary := findStmt(out, isSelectOn("age")), findStmt(out, isSelectOn("salary"))
			So(age, ShouldNotBeNil)
			So(salary, ShouldNotBeNil)
			sj := findStmt(out, func(n *ir.Stmt) bool {
				return n.Kind == ir.StSemijoin && n.Op1 == age && n.Op2 == salary
			})
			So(sj, ShouldNotBeNil)
		})

		Convey("a disjunction unions its branches", func() {
			cond := tree.NewOr(
				tree.NewAnd(
					tree.NewCompare(col("age"), ">", tree.NewIntAtom(60)),
					tree.NewCompare(col("salary"), "<", tree.NewIntAtom(5))),
				tree.NewCompare(col("dept"), "=", tree.NewIntAtom(3)))
			out, err := b.Build(tree.NewSelect(query(tables("emp"), nil, when(cond))))
			So(err, ShouldBeNil)
			for _, name := range []string{"age", "salary", "dept"} {
				So(findStmt(out, isSelectOn(name)), ShouldNotBeNil)
			}
			u := findStmt(out, func(n *ir.Stmt) bool {
				return n.Kind == ir.StUnion && n.Op1.Kind == ir.StSemijoin && n.Op2.Kind == ir.StSelect
			})
			So(u, ShouldNotBeNil)
		})

		Convey("a condition over two tables is not supported", func() {
			cond := tree.NewAnd(
				tree.NewCompare(col("e", "age"), ">", tree.NewIntAtom(1)),
				tree.NewCompare(col("d", "id"), "<", tree.NewIntAtom(5)))
			q := query(tables("emp e", "dept d"), tree.NewCompare(col("e", "dept"), "=", col("d", "id")), when(cond))
			_, err := b.Build(tree.NewSelect(q))
			So(moerr.IsMoErrCode(err, moerr.ErrNYI), ShouldBeTrue)
		})
	})
}

func TestHavingNegatedCompound(t *testing.T) {
	count := func() *tree.Symbol { return tree.NewAggr("count", nil, false) }
	sum := func() *tree.Symbol { return tree.NewAggr("sum", col("salary"), false) }
	isSum := func(n *ir.Stmt) bool { return n.Kind == ir.StAggr && n.Aggr.Name == "sum" }

	cases := []struct {
		name   string
		having *tree.Symbol
		kind   ir.Kind
	}{
		{"not and", tree.NewNot(tree.NewAnd(
			tree.NewCompare(count(), ">", tree.NewIntAtom(1)),
			tree.NewCompare(sum(), "<", tree.NewIntAtom(5)))), ir.StUnion},
		{"not or", tree.NewNot(tree.NewOr(
			tree.NewCompare(count(), ">", tree.NewIntAtom(1)),
			tree.NewCompare(sum(), "<", tree.NewIntAtom(5)))), ir.StSemijoin},
	}
	for _, c := range cases {
		b, _ := newTestBuilder(t, nil)
		q := query(tables("emp"), nil, col("dept"))
		q.GroupBy = []*tree.Symbol{col("dept")}
		q.Having = c.having
		out := mustBuild(t, b, tree.NewSelect(q))

		s := findStmt(out, isSum)
		require.NotNil(t, s, c.name)
		// the sum compare is one side of the folded condition
		folded := findStmt(out, func(n *ir.Stmt) bool {
			return n.Kind == c.kind && n.Op2.Kind == ir.StSelect && n.Op2.Op1 == s
		})
		require.NotNil(t, folded, c.name)
	}
}

func TestNotAndBetween(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	where := tree.NewNot(tree.NewBetween(col("age"), tree.NewIntAtom(20), tree.NewIntAtom(30), false, false))
	out := mustBuild(t, b, tree.NewSelect(query(tables("emp"), where, col("name"))))
	k := kinds(out)
	require.Equal(t, 1, k[ir.StSelect2])
	require.Equal(t, 1, k[ir.StDiff])

	where = tree.NewLike(col("name"), tree.NewStrAtom("a%"), false)
	out = mustBuild(t, b, tree.NewSelect(query(tables("emp"), where, col("name"))))
	require.Equal(t, 1, kinds(out)[ir.StLike])

	where = tree.NewIn(col("age"), false, tree.NewIntAtom(20), tree.NewIntAtom(30))
	out = mustBuild(t, b, tree.NewSelect(query(tables("emp"), where, col("name"))))
	ex := findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StExists })
	require.NotNil(t, ex)
	require.Len(t, ex.List, 2)
}

func TestGroupByHaving(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp"), nil, col("dept"), tree.NewAlias(tree.NewAggr("count", nil, false), "n"))
	q.GroupBy = []*tree.Symbol{col("dept")}
	q.Having = tree.NewCompare(tree.NewAggr("count", nil, false), ">", tree.NewIntAtom(1))
	q.OrderBy = []*tree.Symbol{tree.NewOrder(col("n"), tree.Descending)}
	out := mustBuild(t, b, tree.NewSelect(q))

	res := out.Op1
	require.Equal(t, ir.StOrdered, res.Kind)
	require.Equal(t, ir.StOrder, res.Op1.Kind)
	require.Equal(t, tree.Descending, res.Op1.Flag)
	require.Equal(t, ir.StAlias, res.Op1.Op1.Kind)

	cols := res.Op2.List
	require.Len(t, cols, 2)
	require.Equal(t, ir.StJoin, cols[0].Kind)
	require.Equal(t, ir.StAlias, cols[1].Kind)
	require.Equal(t, ir.StAggr, cols[1].Op1.Kind)
	require.Equal(t, "count", cols[1].Op1.Aggr.Name)

	k := kinds(out)
	require.Equal(t, 1, k[ir.StGroup])
	require.Positive(t, k[ir.StUnique])
	require.Positive(t, k[ir.StSemijoin])
}

func TestAggregateWithoutGroup(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp"), nil, tree.NewAggr("sum", col("salary"), false), tree.NewAggr("count", col("age"), true))
	out := mustBuild(t, b, tree.NewSelect(q))
	for _, c := range out.Op1.List {
		require.Equal(t, ir.StAggr, c.Kind)
		require.Equal(t, 0, c.NrCols)
	}
	require.Equal(t, ir.StUnique, out.Op1.List[1].Op1.Kind)
	require.Zero(t, kinds(out)[ir.StGroup])
}

func TestCorrelatedScalarSubquery(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("emp"),
		tree.NewCompare(col("dept"), "=", col("e", "dept")),
		tree.NewAggr("avg", col("age"), false))
	q := query(tables("emp e"), tree.NewCompare(col("e", "age"), ">", tree.NewSelect(inner)), col("e", "name"))
	out := mustBuild(t, b, tree.NewSelect(q))

	sel := findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StSelect && n.Op2 != nil && n.Op2.Kind == ir.StJoin })
	require.NotNil(t, sel)
	require.Equal(t, ir.CmpGt, sel.Cmp)
	require.Equal(t, ir.StConvert, sel.Op1.Kind)
	require.Equal(t, ir.StReverse, sel.Op2.Op1.Kind)
	require.Equal(t, sel.Op1.H, sel.Op2.H)

	k := kinds(out)
	require.Equal(t, 1, k[ir.StGroup])
	require.Equal(t, 1, k[ir.StAggr])
}

func TestUncorrelatedScalarSubquery(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("emp"), nil, tree.NewAggr("avg", col("age"), false))
	q := query(tables("emp"), tree.NewCompare(col("age"), ">", tree.NewSelect(inner)), col("name"))
	out := mustBuild(t, b, tree.NewSelect(q))
	sel := findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StSelect })
	require.NotNil(t, sel)
	require.Equal(t, ir.StAlias, sel.Op2.Kind)
	require.Equal(t, 0, sel.Op2.NrCols)
}

func TestSubqueryInSelectList(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("dept d"), tree.NewCompare(col("d", "id"), "=", col("e", "dept")), col("d", "name"))
	q := query(tables("emp e"), nil, col("e", "name"), tree.NewSelect(inner))
	out := mustBuild(t, b, tree.NewSelect(q))
	c := out.Op1.List[1]
	require.Equal(t, ir.StOuterJoin, c.Kind)
	require.Equal(t, tree.JoinLeft, c.Flag)
	require.Equal(t, ir.StOuterJoin, c.Op1.Kind)

	inner = query(tables("dept"), nil, tree.NewAggr("count", nil, false))
	q = query(tables("emp"), nil, col("name"), tree.NewSelect(inner))
	out = mustBuild(t, b, tree.NewSelect(q))
	require.Equal(t, ir.StConst, out.Op1.List[1].Kind)
}

func TestInSubquery(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("dept"), tree.NewCompare(col("name"), "=", tree.NewStrAtom("sales")), col("id"))

	out := mustBuild(t, b, tree.NewSelect(query(tables("emp"), tree.NewInQuery(col("dept"), inner, false), col("name"))))
	k := kinds(out)
	require.Equal(t, 1, k[ir.StSemijoin])
	require.Zero(t, k[ir.StDiff])

	out = mustBuild(t, b, tree.NewSelect(query(tables("emp"), tree.NewInQuery(col("dept"), inner, true), col("name"))))
	require.Equal(t, 1, kinds(out)[ir.StDiff])
}

func TestExists(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("dept d"), tree.NewCompare(col("d", "id"), "=", col("e", "dept")))

	Convey("correlated exists", t, func() {
		out, err := b.Build(tree.NewSelect(query(tables("emp e"), tree.NewExists(inner, false), col("e", "name"))))
		So(err, ShouldBeNil)
		So(kinds(out)[ir.StDiff], ShouldEqual, 0)
	})

	Convey("correlated not exists", t, func() {
		out, err := b.Build(tree.NewSelect(query(tables("emp e"), tree.NewExists(inner, true), col("e", "name"))))
		So(err, ShouldBeNil)
		So(kinds(out)[ir.StDiff], ShouldEqual, 1)
	})

	Convey("uncorrelated exists", t, func() {
		plain := query(tables("dept"), nil)
		_, err := b.Build(tree.NewSelect(query(tables("emp"), tree.NewExists(plain, false), col("name"))))
		So(moerr.IsMoErrCode(err, moerr.ErrNYI), ShouldBeTrue)
	})
}

func TestDerivedTable(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	inner := query(tables("emp"), tree.NewCompare(col("age"), ">", tree.NewIntAtom(30)),
		tree.NewAlias(col("name"), "n"))
	inner.Name = "x"
	from := []*tree.Symbol{tree.NewSelect(inner)}
	out := mustBuild(t, b, tree.NewSelect(query(from, nil, col("x", "n"))))

	c := out.Op1.List[0]
	require.Equal(t, ir.StJoin, c.Kind)
	require.Equal(t, ir.StAlias, c.Op2.Kind)
	require.Equal(t, "n", ir.ColumnName(c))

	inner.Name = ""
	_, err := b.Build(tree.NewSelect(query(from, nil, col("n"))))
	requireCode(t, err, moerr.ErrSemantic)
	require.Contains(t, err.Error(), "requires a name")

	inner.Name, inner.Columns = "x", []string{"a", "b"}
	_, err = b.Build(tree.NewSelect(query(from, nil, col("a"))))
	requireCode(t, err, moerr.ErrSemantic)
}

func TestExplicitJoins(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	on := tree.NewCompare(col("e", "dept"), "=", col("d", "id"))
	join := func(kind int, cond *tree.Symbol) *tree.SelectNode {
		from := []*tree.Symbol{tree.NewJoin(tree.NewTable("emp", "e"), tree.NewTable("dept", "d"), kind, cond)}
		return query(from, nil, col("e", "name"), col("d", "name"))
	}

	Convey("inner join", t, func() {
		out, err := b.Build(tree.NewSelect(join(tree.JoinInner, on)))
		So(err, ShouldBeNil)
		So(out.Op1.List, ShouldHaveLength, 2)
		So(kinds(out)[ir.StUnion], ShouldEqual, 0)
	})

	Convey("left outer join", t, func() {
		out, err := b.Build(tree.NewSelect(join(tree.JoinLeft, on)))
		So(err, ShouldBeNil)
		k := kinds(out)
		So(k[ir.StDiff], ShouldBeGreaterThan, 0)
		So(k[ir.StUnion], ShouldBeGreaterThan, 0)
		So(k[ir.StConst], ShouldBeGreaterThan, 0)
	})

	Convey("join using", t, func() {
		_, err := b.Build(tree.NewSelect(join(tree.JoinInner, tree.NewUsing("id"))))
		So(err, ShouldBeNil)
		_, err = b.Build(tree.NewSelect(join(tree.JoinInner, tree.NewUsing("age"))))
		So(moerr.IsMoErrCode(err, moerr.ErrSemantic), ShouldBeTrue)
	})

	Convey("join without specification", t, func() {
		_, err := b.Build(tree.NewSelect(join(tree.JoinInner, nil)))
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "Must have NATURAL JOIN")
	})

	Convey("conjunctive equi join is combined", t, func() {
		cond := tree.NewAnd(on, tree.NewCompare(col("e", "name"), "=", col("d", "name")))
		out, err := b.Build(tree.NewSelect(join(tree.JoinInner, cond)))
		So(err, ShouldBeNil)
		So(kinds(out)[ir.StRelEqJoin], ShouldEqual, 1)
	})

	Convey("natural join", t, func() {
		from := []*tree.Symbol{tree.NewNaturalJoin(tree.NewTable("emp", ""), tree.NewTable("dept", ""), tree.JoinInner)}
		out, err := b.Build(tree.NewSelect(query(from, nil, col("emp", "age"))))
		So(err, ShouldBeNil)
		So(kinds(out)[ir.StRelEqJoin], ShouldEqual, 1)

		from = []*tree.Symbol{tree.NewNaturalJoin(tree.NewTable("emp", ""), tree.NewTable("misc", ""), tree.JoinInner)}
		_, err = b.Build(tree.NewSelect(query(from, nil, col("x"))))
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "No attributes of tables")
	})

	Convey("cross join", t, func() {
		from := []*tree.Symbol{tree.NewCross(tree.NewTable("emp", ""), tree.NewTable("misc", ""))}
		out, err := b.Build(tree.NewSelect(query(from, nil, col("name"), col("x"))))
		So(err, ShouldBeNil)
		So(findStmt(out, func(n *ir.Stmt) bool { return n.Kind == ir.StJoin && n.Cmp == ir.CmpAll }), ShouldNotBeNil)
	})
}

func TestOrderLimitDistinct(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(tables("emp"), nil, col("name"))
	q.OrderBy = []*tree.Symbol{tree.NewOrder(col("age"), tree.Descending), tree.NewOrder(col("name"), tree.Ascending)}
	q.Limit = 3
	out := mustBuild(t, b, tree.NewSelect(q))

	res := out.Op1
	require.Equal(t, ir.StOrdered, res.Kind)
	lim := res.Op1
	require.Equal(t, ir.StLimit, lim.Kind)
	require.Equal(t, 3, lim.Flag)
	require.Equal(t, ir.StReorder, lim.Op1.Kind)
	require.Equal(t, ir.StOrder, lim.Op1.Op1.Kind)
	require.Equal(t, tree.Descending, lim.Op1.Op1.Flag)

	d := query(tables("emp"), nil, col("dept"))
	d.Distinct = true
	out = mustBuild(t, b, tree.NewSelect(d))
	k := kinds(out)
	require.Equal(t, 1, k[ir.StGroup])
	require.Positive(t, k[ir.StUnique])
}

func TestSelectWithoutFrom(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	q := query(nil, nil, tree.NewAlias(tree.NewIntAtom(1), "one"))
	out := mustBuild(t, b, tree.NewSelect(q))
	c := out.Op1.List[0]
	require.Equal(t, ir.StAlias, c.Kind)
	require.Equal(t, ir.StAtom, c.Op1.Kind)

	q.Where = tree.NewCompare(tree.NewIntAtom(1), "=", tree.NewIntAtom(1))
	_, err := b.Build(tree.NewSelect(q))
	requireCode(t, err, moerr.ErrSemantic)
}

func TestBindErrors(t *testing.T) {
	b, _ := newTestBuilder(t, nil)
	limited := query(tables("dept"), nil, tree.NewAggr("count", nil, false))
	limited.Limit = 1
	grouped := query(tables("emp"), nil, col("age"))
	grouped.GroupBy = []*tree.Symbol{tree.NewBinop("+", col("age"), tree.NewIntAtom(1))}

	cases := []struct {
		name string
		q    *tree.SelectNode
		code uint16
		msg  string
	}{
		{"unknown table", query(tables("nope"), nil, col("a")), moerr.ErrCatalogMiss, "Table nope unknown"},
		{"unknown column", query(tables("emp"), nil, col("nope")), moerr.ErrCatalogMiss, "Column: nope unknown"},
		{"ambiguous column", query(tables("emp", "dept"), nil, col("id")), moerr.ErrAmbiguousColumn, "is ambiguous"},
		{"limit in subquery", query(tables("emp"), tree.NewCompare(col("age"), ">", tree.NewSelect(limited)), col("name")),
			moerr.ErrSemantic, "Can only limit outer select"},
		{"two atoms", query(tables("emp"), tree.NewCompare(tree.NewIntAtom(1), "=", tree.NewIntAtom(1)), col("name")),
			moerr.ErrSemantic, "between two atoms"},
		{"group by expression", grouped, moerr.ErrSemantic, "Group by expects a column"},
		{"like escape", query(tables("emp"), &tree.Symbol{Token: tree.LIKE,
			List: []*tree.Symbol{col("name"), tree.NewStrAtom("a%"), tree.NewStrAtom("!")}}, col("name")),
			moerr.ErrNYI, "LIKE escapes"},
		{"type mismatch", query(tables("emp"), tree.NewCompare(col("age"), "=", tree.NewTypedAtom("DATE", "2001-01-01")), col("name")),
			moerr.ErrTypeMismatch, "are not equal"},
		{"count star of other aggregate", query(tables("emp"), nil, tree.NewAggr("sum", nil, false)),
			moerr.ErrSemantic, "Cannot do a sum(*)"},
	}
	for _, c := range cases {
		_, err := b.Build(tree.NewSelect(c.q))
		require.Error(t, err, c.name)
		require.True(t, moerr.IsMoErrCode(err, c.code), "%s: %v", c.name, err)
		require.Contains(t, err.Error(), c.msg, c.name)
	}
}

func TestErrorPosition(t *testing.T) {
	ctx := context.TODO()
	b, _ := newTestBuilder(t, nil)
	stmt, err := tree.DecodeString(ctx, `
token: select
select:
  selection:
    - token: column
      names: [nope]
  from:
    - token: table
      names: [emp]
`)
	require.NoError(t, err)
	_, err = b.Build(stmt)
	requireCode(t, err, moerr.ErrCatalogMiss)
	require.Contains(t, moerr.DowncastError(err).Detail(), "line 5")
}

func TestReadOnlyCatalog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := &catalog.Schema{Name: "sys"}
	r := mock_catalog.NewMockReader(ctrl)
	r.EXPECT().BindSchema("sys").Return(s).AnyTimes()
	r.EXPECT().BindTable(s, "v").Return(nil).Times(1)

	b, err := NewQueryBuilder(context.TODO(), r, nil)
	require.NoError(t, err)
	_, err = b.Build(tree.NewCreateView("v", nil, query(tables("emp"), nil, col("name")), ""))
	requireCode(t, err, moerr.ErrNotSupported)
}

func TestUnknownSchema(t *testing.T) {
	ctx := context.TODO()
	cat, err := catalog.Load(ctx, strings.NewReader(testCatalog))
	require.NoError(t, err)
	params := config.NewDefaultParameters()
	params.DefaultSchema = "nope"
	_, err = NewQueryBuilder(ctx, cat, params)
	requireCode(t, err, moerr.ErrCatalogMiss)
}
