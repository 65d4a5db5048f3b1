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

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/config"
	"github.com/matrixorigin/batsql/pkg/logutil"
	"github.com/matrixorigin/batsql/pkg/sql/compile"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

type rootOptions struct {
	catalog string
	config  string
	metrics bool
	params  *config.CompilerParameters
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "batsql",
		Short: "Compile SQL syntax trees into column algebra programs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.Context())
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "toml catalog definition")
	cmd.PersistentFlags().StringVar(&opts.config, "config", "", "toml compiler configuration")
	cmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "write the compile metrics to stderr when done")
	_ = cmd.MarkPersistentFlagRequired("catalog")

	cmd.AddCommand(newCompileCommand(opts), newCatalogCommand(opts))
	return cmd
}

func (opts *rootOptions) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	params := config.NewDefaultParameters()
	if opts.config != "" {
		var err error
		if params, err = config.LoadConfigFromFile(ctx, opts.config); err != nil {
			return err
		}
	}
	logutil.SetupMOLogger(&params.Log)
	opts.params = params
	return nil
}

func (opts *rootOptions) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	return catalog.LoadFile(ctx, opts.catalog)
}

func newCompileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <statements.yaml>...",
		Short: "Compile yaml statement files, - reads stdin",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			units, err := readUnits(ctx, cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			listings, err := compile.Batch(ctx, opts.params, opts.loadCatalog, units)
			writeListings(cmd.OutOrStdout(), cmd.ErrOrStderr(), listings)
			if opts.metrics {
				if merr := writeMetrics(cmd.ErrOrStderr()); merr != nil {
					return merr
				}
			}
			return err
		},
	}
}

func readUnits(ctx context.Context, stdin io.Reader, paths []string) ([]compile.Unit, error) {
	units := make([]compile.Unit, 0, len(paths))
	for _, p := range paths {
		var (
			stmts []*tree.Symbol
			err   error
		)
		if p == "-" {
			stmts, err = tree.Decode(ctx, stdin)
		} else {
			stmts, err = decodeFile(ctx, p)
		}
		if err != nil {
			return nil, err
		}
		units = append(units, compile.Unit{Name: p, Stmts: stmts})
	}
	return units, nil
}

func decodeFile(ctx context.Context, path string) ([]*tree.Symbol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, moerr.NewInvalidInput(ctx, "statement file %s: %v", path, err)
	}
	defer f.Close()
	return tree.Decode(ctx, f)
}

// writeListings prints the instructions of every statement. Several
// units are separated by a comment line naming the unit.
func writeListings(out, errOut io.Writer, listings []compile.Listing) {
	for _, l := range listings {
		if len(listings) > 1 {
			fmt.Fprintf(out, "# %s\n", l.Name)
		}
		for _, lines := range l.Stmts {
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
		}
		if l.Err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", l.Name, l.Err)
		}
	}
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the catalog objects in id order after compiling its views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cat, err := opts.loadCatalog(ctx)
			if err != nil {
				return err
			}
			c, err := compile.New(ctx, cat, opts.params)
			if err != nil {
				return err
			}
			if err = c.CompileViews(); err != nil {
				return err
			}
			writeCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}
}

func writeCatalog(out io.Writer, cat *catalog.Catalog) {
	cat.Objects(func(obj catalog.Object) bool {
		switch o := obj.(type) {
		case *catalog.Schema:
			fmt.Fprintf(out, "%d schema %s\n", o.ID, o.Name)
		case *catalog.Table:
			fmt.Fprintf(out, "%d %s %s.%s\n", o.ID, o.Kind, o.Schema.Name, o.Name)
		case *catalog.Column:
			fmt.Fprintf(out, "%d column %s.%s %s\n", o.ID, o.Table.Name, o.Name, o.Type)
		case *catalog.Key:
			fmt.Fprintf(out, "%d key %s\n", o.ID, o.Name)
		}
		return true
	})
}
