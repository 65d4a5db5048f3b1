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
	"strconv"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// insertTargets resolves the column list of an INSERT, all columns of t
// when it is empty.
func (builder *QueryBuilder) insertTargets(t *catalog.Table, targets []*tree.Symbol) ([]*catalog.Column, error) {
	if len(targets) == 0 {
		return t.Columns, nil
	}
	cols := make([]*catalog.Column, len(targets))
	for i, sym := range targets {
		c := builder.cat.BindColumn(t, sym.LastName())
		if c == nil {
			return nil, sqlError(sym, moerr.NewCatalogMiss(builder.ctx,
				"Inserting into non existing column %s.%s", t.Name, sym.LastName()))
		}
		cols[i] = c
	}
	return cols, nil
}

// bindInsert compiles INSERT ... VALUES into one insert per column sharing
// the new oid, and INSERT ... SELECT into one bulk append per column.
func (builder *QueryBuilder) bindInsert(stmt *tree.Symbol) (*ir.Stmt, error) {
	t := builder.bindTable(stmt.Names)
	if t == nil {
		return nil, sqlError(stmt, moerr.NewCatalogMiss(builder.ctx,
			"Inserting into non existing table %s", stmt.QualifiedName()))
	}
	if t.IsView() {
		return nil, sqlError(stmt, moerr.NewNotSupported(builder.ctx, "Inserting into view %s", t.Name))
	}
	if len(t.Columns) == 0 {
		return nil, builder.semanticError(stmt, "Inserting into table %s without columns", t.Name)
	}
	cols, err := builder.insertTargets(t, stmt.List)
	if err != nil {
		return nil, err
	}
	if stmt.Sym != nil && stmt.Sym.Token == tree.SELECT {
		return builder.bindInsertQuery(t, cols, stmt.Sym)
	}
	var values []*tree.Symbol
	if stmt.Sym != nil {
		values = stmt.Sym.List
	}
	if len(values) != len(cols) {
		return nil, sqlError(stmt, moerr.NewWrongValueCount(builder.ctx, t.Name))
	}

	sc := scope.Open(nil)
	defer sc.Close()
	given := make(map[*catalog.Column]*ir.Stmt, len(cols))
	for i, c := range cols {
		if values[i].Token == tree.DEFAULT {
			continue
		}
		v, err := builder.bindValue(sc, values[i], nil, nil)
		if err != nil {
			return nil, err
		}
		if v.NrCols != 0 || containsAggr(v) {
			return nil, builder.semanticError(values[i], "Inserting a non constant value into %s.%s", t.Name, c.Name)
		}
		given[c] = v
	}

	id := ir.NewCount(ir.NewColumn(t.Columns[0], nil))
	inserts := make([]*ir.Stmt, 0, len(t.Columns))
	for _, c := range t.Columns {
		v, ok := given[c]
		if !ok {
			if v, err = builder.defaultValue(c); err != nil {
				return nil, sqlError(stmt, err)
			}
		}
		if v, err = builder.columnValue(c, v); err != nil {
			return nil, sqlError(stmt, err)
		}
		inserts = append(inserts, ir.NewInsert(c, id, v))
	}
	return ir.NewList(inserts), nil
}

// bindInsertQuery appends the result of a query, the columns it does not
// fill get their default.
func (builder *QueryBuilder) bindInsertQuery(t *catalog.Table, cols []*catalog.Column, sym *tree.Symbol) (*ir.Stmt, error) {
	sc := scope.Open(nil)
	defer sc.Close()
	res, err := builder.bindSelect(sc, sym.Select, derivedBlock)
	if err != nil {
		return nil, err
	}
	if res.nsel != len(cols) {
		return nil, sqlError(sym, moerr.NewWrongValueCount(builder.ctx, t.Name))
	}
	rows := make(map[*catalog.Column]*ir.Stmt, len(cols))
	for i, c := range cols {
		rows[c] = res.cols[i]
	}
	inserts := make([]*ir.Stmt, 0, len(t.Columns))
	for _, c := range t.Columns {
		r, ok := rows[c]
		if !ok {
			v, err := builder.defaultValue(c)
			if err != nil {
				return nil, sqlError(sym, err)
			}
			r = ir.NewConst(res.cols[0], v)
		}
		if r, err = builder.checkTypes(c.Type, r); err != nil {
			return nil, sqlError(sym, err)
		}
		inserts = append(inserts, ir.NewInsertColumn(ir.NewColumn(c, nil), r))
	}
	return ir.NewList(inserts), nil
}

// defaultValue is the literal an omitted column gets.
func (builder *QueryBuilder) defaultValue(c *catalog.Column) (*ir.Stmt, error) {
	if c.Default == "" {
		if !c.Null {
			return nil, moerr.NewNotNullViolation(builder.ctx, c.Table.Name, c.Name)
		}
		return ir.NewAtom(ir.NewNullAtom(c.Type)), nil
	}
	var a *ir.Atom
	switch {
	case isNumeric(c.Type) && c.Type.Type.Radix == 2 && c.Type.Type.SQLName != "REAL" && c.Type.Type.SQLName != "DOUBLE":
		v, err := strconv.ParseInt(c.Default, 10, 64)
		if err != nil {
			return nil, moerr.NewTypeMismatch(builder.ctx, "default %q of %s.%s is not a %s", c.Default, c.Table.Name, c.Name, c.Type)
		}
		a = ir.NewIntAtom(c.Type, v)
	case isNumeric(c.Type):
		v, err := strconv.ParseFloat(c.Default, 64)
		if err != nil {
			return nil, moerr.NewTypeMismatch(builder.ctx, "default %q of %s.%s is not a %s", c.Default, c.Table.Name, c.Name, c.Type)
		}
		a = ir.NewFloatAtom(c.Type, v)
	case c.Type.Type.SQLName == "CHAR" || c.Type.Type.SQLName == "VARCHAR":
		a = ir.NewStrAtom(c.Type, c.Default)
	default:
		a = ir.NewGeneralAtom(c.Type, c.Default)
	}
	return ir.NewAtom(a), nil
}

// columnValue checks a value stored into c.
func (builder *QueryBuilder) columnValue(c *catalog.Column, v *ir.Stmt) (*ir.Stmt, error) {
	if v.Kind == ir.StAtom && v.Atom.Null {
		if !c.Null {
			return nil, moerr.NewNotNullViolation(builder.ctx, c.Table.Name, c.Name)
		}
		return ir.NewAtom(ir.NewNullAtom(c.Type)), nil
	}
	return builder.checkTypes(c.Type, v)
}

// bindUpdate compiles the assignments over the rows the WHERE condition
// selects, every row without one.
func (builder *QueryBuilder) bindUpdate(stmt *tree.Symbol) (*ir.Stmt, error) {
	t := builder.bindTable(stmt.Names)
	if t == nil {
		return nil, sqlError(stmt, moerr.NewCatalogMiss(builder.ctx,
			"Updating non existing table %s", stmt.QualifiedName()))
	}
	if t.IsView() {
		return nil, sqlError(stmt, moerr.NewNotSupported(builder.ctx, "Updating view %s", t.Name))
	}
	sc := scope.Open(nil)
	defer sc.Close()
	tv := sc.AddTableColumns(t, t.Name)
	p, err := builder.bindTargetRows(sc, tv, stmt.Sym)
	if err != nil {
		return nil, err
	}
	pivots := sc.Pivot()

	rows := ir.NewReverse(p)
	updates := make([]*ir.Stmt, 0, len(stmt.List))
	for _, assign := range stmt.List {
		c := builder.cat.BindColumn(t, assign.Str)
		if c == nil {
			return nil, sqlError(assign, moerr.NewCatalogMiss(builder.ctx,
				"Updating non existing column %s.%s", t.Name, assign.Str))
		}
		v, err := builder.bindValue(sc, assign.Sym, nil, pivots)
		if err != nil {
			return nil, err
		}
		if v, err = builder.columnValue(c, v); err != nil {
			return nil, sqlError(assign, err)
		}
		var values *ir.Stmt
		if v.NrCols == 0 {
			values = ir.NewConst(rows, v)
		} else {
			values = ir.NewJoin(rows, v, ir.CmpEqual)
		}
		updates = append(updates, ir.NewUpdate(c, p, values))
	}
	return ir.NewList(updates), nil
}

// bindDelete removes the rows the WHERE condition selects, a DELETE
// without one clears the table.
func (builder *QueryBuilder) bindDelete(stmt *tree.Symbol) (*ir.Stmt, error) {
	t := builder.bindTable(stmt.Names)
	if t == nil {
		return nil, sqlError(stmt, moerr.NewCatalogMiss(builder.ctx,
			"Deleting from non existing table %s", stmt.QualifiedName()))
	}
	if t.IsView() {
		return nil, sqlError(stmt, moerr.NewNotSupported(builder.ctx, "Deleting from view %s", t.Name))
	}
	deletes := make([]*ir.Stmt, 0, len(t.Columns))
	if stmt.Sym == nil {
		for _, c := range t.Columns {
			deletes = append(deletes, ir.NewDelete(c, nil))
		}
		return ir.NewList(deletes), nil
	}

	sc := scope.Open(nil)
	defer sc.Close()
	tv := sc.AddTableColumns(t, t.Name)
	p, err := builder.bindTargetRows(sc, tv, stmt.Sym)
	if err != nil {
		return nil, err
	}
	rows := ir.NewReverse(p)
	for _, c := range t.Columns {
		deletes = append(deletes, ir.NewDelete(c, rows))
	}
	return ir.NewList(deletes), nil
}

// bindTargetRows builds the pivot of the single table of an UPDATE or
// DELETE.
func (builder *QueryBuilder) bindTargetRows(sc *scope.Scope, tv *ir.TVar, where *tree.Symbol) (*ir.Stmt, error) {
	var cond *ir.Stmt
	var err error
	if where != nil {
		if cond, err = builder.bindLogical(sc, where, nil); err != nil {
			return nil, err
		}
	}
	pivots, err := builder.buildPivot(sc, cond)
	if err != nil {
		return nil, sqlError(where, err)
	}
	p := scope.FindPivot(pivots, tv)
	if p == nil {
		return nil, builder.semanticError(where, "Subset %s not found", tv)
	}
	return p, nil
}
