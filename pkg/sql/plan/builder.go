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

	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/scope"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// ViewCreator is the write side of the catalog CREATE VIEW needs.
type ViewCreator interface {
	CreateTable(ctx context.Context, s *catalog.Schema, name string, kind catalog.TableKind) (*catalog.Table, error)
	CreateViewColumn(ctx context.Context, t *catalog.Table, name string, tpe *catalog.SubType, plan catalog.Plan) (*catalog.Column, error)
}

// QueryBuilder compiles syntax trees into statement DAGs. A builder is
// used by one goroutine at a time.
type QueryBuilder struct {
	ctx    context.Context
	cat    catalog.Reader
	schema *catalog.Schema
	params *config.CompilerParameters
}

func NewQueryBuilder(ctx context.Context, cat catalog.Reader, params *config.CompilerParameters) (*QueryBuilder, error) {
	if params == nil {
		params = config.NewDefaultParameters()
	}
	s := cat.BindSchema(params.DefaultSchema)
	if s == nil {
		return nil, moerr.NewCatalogMiss(ctx, "Schema %s unknown", params.DefaultSchema)
	}
	return &QueryBuilder{
		ctx:    ctx,
		cat:    cat,
		schema: s,
		params: params,
	}, nil
}

func (builder *QueryBuilder) GetContext() context.Context {
	return builder.ctx
}

// WithContext returns a builder sharing the catalog that logs to ctx.
func (builder *QueryBuilder) WithContext(ctx context.Context) *QueryBuilder {
	b := *builder
	b.ctx = ctx
	return &b
}

// Build compiles one statement. A query is wrapped in an output node, the
// DML statements return the list of their column updates.
func (builder *QueryBuilder) Build(stmt *tree.Symbol) (*ir.Stmt, error) {
	if err := tree.Validate(builder.ctx, stmt); err != nil {
		return nil, err
	}
	logutil2.Debug(builder.ctx, "build statement", zap.Stringer("token", stmt.Token))
	switch stmt.Token {
	case tree.SELECT:
		return builder.buildQuery(stmt)
	case tree.INSERT:
		return builder.bindInsert(stmt)
	case tree.UPDATE:
		return builder.bindUpdate(stmt)
	case tree.DELETE:
		return builder.bindDelete(stmt)
	case tree.CREATE_VIEW:
		return builder.bindCreateView(stmt)
	}
	return nil, moerr.NewNotSupported(builder.ctx, "statement %s", stmt.Token)
}

func (builder *QueryBuilder) buildQuery(stmt *tree.Symbol) (*ir.Stmt, error) {
	sc := scope.Open(nil)
	defer sc.Close()
	res, err := builder.bindSelect(sc, stmt.Select, outerBlock)
	if err != nil {
		return nil, err
	}
	return ir.NewOutput(res.stmt()), nil
}

// sqlError attaches the position of sym to err unless a deeper symbol
// already did.
func sqlError(sym *tree.Symbol, err error) error {
	me, ok := err.(*moerr.Error)
	if !ok || me.Detail() != "" || sym == nil || sym.Line == 0 {
		return err
	}
	return me.WithDetail("line %d, column %d", sym.Line, sym.Col)
}

func (builder *QueryBuilder) semanticError(sym *tree.Symbol, msg string, args ...any) error {
	return sqlError(sym, moerr.NewSemantic(builder.ctx, msg, args...))
}

// bindTable finds a table by possibly schema qualified name.
func (builder *QueryBuilder) bindTable(names []string) *catalog.Table {
	s := builder.schema
	name := names[len(names)-1]
	if len(names) > 1 {
		if s = builder.cat.BindSchema(names[len(names)-2]); s == nil {
			return nil
		}
	}
	return builder.cat.BindTable(s, name)
}
