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
	"bytes"

	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

func (builder *QueryBuilder) viewCreator() (ViewCreator, error) {
	vc, ok := builder.cat.(ViewCreator)
	if !ok {
		return nil, moerr.NewNotSupported(builder.ctx, "CREATE VIEW on a read only catalog")
	}
	return vc, nil
}

// bindCreateView compiles the view query, registers the view and its
// columns in the catalog and keeps the compiled plan of every column.
func (builder *QueryBuilder) bindCreateView(stmt *tree.Symbol) (*ir.Stmt, error) {
	name := stmt.Names[len(stmt.Names)-1]
	if builder.bindTable(stmt.Names) != nil {
		return nil, builder.semanticError(stmt, "Create View name %s allready in use", name)
	}
	s := builder.schema
	if len(stmt.Names) > 1 {
		if s = builder.cat.BindSchema(stmt.Names[len(stmt.Names)-2]); s == nil {
			return nil, sqlError(stmt, moerr.NewCatalogMiss(builder.ctx, "Schema %s unknown", stmt.Names[len(stmt.Names)-2]))
		}
	}
	vc, err := builder.viewCreator()
	if err != nil {
		return nil, sqlError(stmt, err)
	}
	names := make([]string, len(stmt.List))
	for i, c := range stmt.List {
		names[i] = c.LastName()
	}

	sc := scope.Open(nil)
	defer sc.Close()
	res, cnames, err := builder.bindView(sc, name, stmt.Select, names)
	if err != nil {
		return nil, sqlError(stmt, err)
	}

	var def bytes.Buffer
	if err = tree.Encode(&def, tree.NewSelect(stmt.Select)); err != nil {
		return nil, moerr.NewInternalError(builder.ctx, "encode view %s: %v", name, err)
	}
	t, err := vc.CreateTable(builder.ctx, s, name, catalog.TableView)
	if err != nil {
		return nil, sqlError(stmt, err)
	}
	t.Query = stmt.Str
	t.Definition = def.String()
	return builder.defineView(vc, t, res, cnames)
}

// DefineView compiles the query of a view the catalog knows without
// columns, a view loaded from a catalog file, and creates its columns.
func (builder *QueryBuilder) DefineView(t *catalog.Table, sn *tree.SelectNode, names []string) (*ir.Stmt, error) {
	if !t.IsView() {
		return nil, moerr.NewInvalidInput(builder.ctx, "%s is not a view", t.Name)
	}
	if len(t.Columns) > 0 {
		return nil, moerr.NewInvalidInput(builder.ctx, "view %s is already defined", t.Name)
	}
	vc, err := builder.viewCreator()
	if err != nil {
		return nil, err
	}
	if err = tree.Validate(builder.ctx, tree.NewSelect(sn)); err != nil {
		return nil, err
	}
	sc := scope.Open(nil)
	defer sc.Close()
	res, cnames, err := builder.bindView(sc, t.Name, sn, names)
	if err != nil {
		return nil, err
	}
	return builder.defineView(vc, t, res, cnames)
}

// bindView compiles the view query and names its columns, by names when
// given.
func (builder *QueryBuilder) bindView(sc *scope.Scope, name string, sn *tree.SelectNode, names []string) (*selectResult, []string, error) {
	res, err := builder.bindSelect(sc, sn, derivedBlock)
	if err != nil {
		return nil, nil, err
	}
	if len(names) > 0 && len(names) != res.nsel {
		return nil, nil, moerr.NewWrongValueCount(builder.ctx, name)
	}
	cnames := make([]string, res.nsel)
	for i, c := range res.cols[:res.nsel] {
		cnames[i] = ir.ColumnName(c)
		if len(names) > 0 {
			cnames[i] = names[i]
		}
		if cnames[i] == "" {
			return nil, nil, moerr.NewSemantic(builder.ctx, "column %d of view %s needs a name", i+1, name)
		}
	}
	return res, cnames, nil
}

func (builder *QueryBuilder) defineView(vc ViewCreator, t *catalog.Table, res *selectResult, cnames []string) (*ir.Stmt, error) {
	for i, c := range res.cols[:res.nsel] {
		if _, err := vc.CreateViewColumn(builder.ctx, t, cnames[i], ir.TailType(c), c.Dup()); err != nil {
			c.Destroy()
			return nil, err
		}
	}
	logutil2.Info(builder.ctx, "view defined",
		zap.String("view", t.Name),
		zap.Int("columns", res.nsel))
	return ir.NewCreateView(t, res.stmt()), nil
}
