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

package compile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/optimize"
	"github.com/matrixorigin/batsql/pkg/sql/plan"
	"github.com/matrixorigin/batsql/pkg/sql/sequence"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
	v2 "github.com/matrixorigin/batsql/pkg/util/metric/v2"
)

// newStatementID is replaced in tests.
var newStatementID = func() string {
	return uuid.New().String()
}

// Compile turns statements into instruction listings against one catalog.
// Statements are compiled one at a time, a CREATE VIEW is visible to the
// statements after it.
type Compile struct {
	ctx     context.Context
	cat     *catalog.Catalog
	params  *config.CompilerParameters
	builder *plan.QueryBuilder
}

// New is used to new an object of compile
func New(ctx context.Context, cat *catalog.Catalog, params *config.CompilerParameters) (*Compile, error) {
	if params == nil {
		params = config.NewDefaultParameters()
	}
	ctx = config.WithParameterUnit(ctx, config.NewParameterUnit(params))
	builder, err := plan.NewQueryBuilder(ctx, cat, params)
	if err != nil {
		return nil, err
	}
	return &Compile{
		ctx:     ctx,
		cat:     cat,
		params:  params,
		builder: builder,
	}, nil
}

// Compile runs one statement through plan, optimize, rel2bin and the
// sequencer and returns its instructions.
func (c *Compile) Compile(stmt *tree.Symbol) (lines []string, err error) {
	start := time.Now()
	ctx := logutil2.WithStatement(c.ctx, newStatementID(), stmt.Line)
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(ctx, e)
		}
		c.account(ctx, stmt, start, lines, err)
	}()

	t := time.Now()
	root, err := c.builder.WithContext(ctx).Build(stmt)
	if err != nil {
		return nil, err
	}
	v2.PlanDurationHistogram.Observe(time.Since(t).Seconds())

	s := root.Dup()
	if s, err = phase(ctx, v2.OptimizeDurationHistogram, optimize.Optimize, s); err != nil {
		return nil, err
	}
	if s, err = phase(ctx, v2.Rel2BinDurationHistogram, optimize.Rel2Bin, s); err != nil {
		return nil, err
	}
	defer s.Destroy()

	t = time.Now()
	lines, err = sequence.Dump(ctx, s)
	v2.SequenceDurationHistogram.Observe(time.Since(t).Seconds())
	return lines, err
}

func phase(ctx context.Context, h prometheus.Observer,
	fn func(context.Context, *ir.Stmt) (*ir.Stmt, error), s *ir.Stmt) (*ir.Stmt, error) {
	t := time.Now()
	defer func() {
		h.Observe(time.Since(t).Seconds())
	}()
	return fn(ctx, s)
}

func (c *Compile) account(ctx context.Context, stmt *tree.Symbol, start time.Time, lines []string, err error) {
	v2.TotalDurationHistogram.Observe(time.Since(start).Seconds())
	if err != nil {
		v2.StatementCounter(stmt.Token.String(), "error").Inc()
		code := moerr.ErrInternal
		if me, ok := err.(*moerr.Error); ok {
			code = me.ErrorCode()
		}
		v2.CompileErrorCounter(code).Inc()
		logutil2.Error(ctx, "compile failed",
			zap.Stringer("token", stmt.Token),
			zap.Error(err))
		return
	}
	v2.StatementCounter(stmt.Token.String(), "ok").Inc()
	logutil2.Debug(ctx, "statement compiled",
		zap.Stringer("token", stmt.Token),
		zap.Int("instructions", len(lines)),
		zap.Duration("duration", time.Since(start)))
}

// CompileViews compiles the queries of the views the catalog was loaded
// with. A view may use a view defined after it, views are retried until
// a round defines none.
func (c *Compile) CompileViews() error {
	var pending []*catalog.Table
	for _, s := range c.cat.Schemas() {
		for _, t := range s.Tables {
			if t.IsView() && len(t.Columns) == 0 {
				pending = append(pending, t)
			}
		}
	}
	for len(pending) > 0 {
		var (
			failed []*catalog.Table
			errs   error
		)
		for _, t := range pending {
			if err := c.defineView(t); err != nil {
				failed = append(failed, t)
				errs = multierr.Append(errs, err)
			}
		}
		if len(failed) == len(pending) {
			return errs
		}
		pending = failed
	}
	return nil
}

func (c *Compile) defineView(t *catalog.Table) (err error) {
	ctx := logutil2.WithStatement(c.ctx, newStatementID(), 0)
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(ctx, e)
		}
	}()
	sym, err := tree.DecodeString(ctx, t.Definition)
	if err != nil {
		return err
	}
	if sym.Token != tree.SELECT {
		return moerr.NewBadView(ctx, t.Schema.Name, t.Name)
	}
	s, err := c.builder.WithContext(ctx).DefineView(t, sym.Select, nil)
	if err != nil {
		return err
	}
	s.Destroy()
	return nil
}
