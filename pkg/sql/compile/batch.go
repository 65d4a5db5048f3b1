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
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

// Unit is a stream of statements compiled in order against its own catalog.
type Unit struct {
	Name  string
	Stmts []*tree.Symbol
}

// Listing holds the instructions of one unit, one entry per statement.
// The entry of a failed statement is nil.
type Listing struct {
	Name  string
	Stmts [][]string
	Err   error
}

// CatalogLoader returns a fresh catalog for every call, units never share one.
type CatalogLoader func(ctx context.Context) (*catalog.Catalog, error)

// Batch compiles units concurrently on params.Workers goroutines. The
// listings keep the order of units, the error combines the errors of all
// of them.
func Batch(ctx context.Context, params *config.CompilerParameters, load CatalogLoader, units []Unit) ([]Listing, error) {
	if params == nil {
		params = config.NewDefaultParameters()
	}
	pool, err := ants.NewPool(params.Workers)
	if err != nil {
		return nil, moerr.NewBadConfig(ctx, "workers %d: %v", params.Workers, err)
	}
	defer pool.Release()

	listings := make([]Listing, len(units))
	var wg sync.WaitGroup
	for i := range units {
		i := i
		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()
			listings[i] = compileUnit(ctx, params, load, units[i])
		})
		if err != nil {
			wg.Done()
			listings[i] = Listing{
				Name: units[i].Name,
				Err:  moerr.NewInternalError(ctx, "submit %s: %v", units[i].Name, err),
			}
		}
	}
	wg.Wait()

	var errs error
	for _, l := range listings {
		errs = multierr.Append(errs, l.Err)
	}
	return listings, errs
}

func compileUnit(ctx context.Context, params *config.CompilerParameters, load CatalogLoader, u Unit) Listing {
	l := Listing{Name: u.Name}
	cat, err := load(ctx)
	if err != nil {
		l.Err = err
		return l
	}
	c, err := New(ctx, cat, params)
	if err != nil {
		l.Err = err
		return l
	}
	if err = c.CompileViews(); err != nil {
		l.Err = err
		return l
	}
	l.Stmts = make([][]string, len(u.Stmts))
	for i, stmt := range u.Stmts {
		lines, err := c.Compile(stmt)
		if err != nil {
			l.Err = multierr.Append(l.Err, err)
			continue
		}
		l.Stmts[i] = lines
	}
	logutil2.Info(ctx, "unit compiled",
		zap.String("unit", u.Name),
		zap.Int("statements", len(u.Stmts)),
		zap.Int("errors", len(multierr.Errors(l.Err))))
	return l
}
