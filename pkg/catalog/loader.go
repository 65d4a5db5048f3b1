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

package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/logutil/logutil2"
)

type columnDef struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Digits  int    `toml:"digits"`
	Scale   int    `toml:"scale"`
	Null    *bool  `toml:"null"`
	Default string `toml:"default"`
}

type keyDef struct {
	Name    string   `toml:"name"`
	Kind    string   `toml:"kind"`
	Columns []string `toml:"columns"`
	// References names the referenced key as table.key or schema.table.key.
	References string `toml:"references"`
}

type tableDef struct {
	Name    string      `toml:"name"`
	Kind    string      `toml:"kind"`
	Columns []columnDef `toml:"column"`
	Keys    []keyDef    `toml:"key"`
	Query   string      `toml:"query"`
	AST     string      `toml:"ast"`
}

type schemaDef struct {
	Name   string     `toml:"name"`
	Auth   string     `toml:"auth"`
	Tables []tableDef `toml:"table"`
}

type catalogDef struct {
	Schemas []schemaDef `toml:"schema"`
}

// LoadFile reads a toml catalog definition from path.
func LoadFile(ctx context.Context, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, moerr.NewInvalidInput(ctx, "catalog file %s: %v", path, err)
	}
	defer f.Close()
	return Load(ctx, f)
}

// Load reads a toml catalog definition:
//
//	[[schema]]
//	name = "sys"
//	  [[schema.table]]
//	  name = "emp"
//	    [[schema.table.column]]
//	    name = "id"
//	    type = "INT"
//
// Views carry query and ast instead of columns, their columns are created
// when the view query is compiled. Foreign keys are resolved after every
// table is loaded.
func Load(ctx context.Context, r io.Reader) (*Catalog, error) {
	var def catalogDef
	if _, err := toml.NewDecoder(r).Decode(&def); err != nil {
		return nil, moerr.NewInvalidInput(ctx, "catalog definition: %v", err)
	}
	c := New()
	type pendingKey struct {
		schema *Schema
		table  *Table
		def    keyDef
	}
	var foreign []pendingKey
	for _, sd := range def.Schemas {
		s, err := c.CreateSchema(ctx, sd.Name, sd.Auth)
		if err != nil {
			return nil, err
		}
		for _, td := range sd.Tables {
			kind, err := parseTableKind(ctx, td.Kind)
			if err != nil {
				return nil, err
			}
			t, err := c.CreateTable(ctx, s, td.Name, kind)
			if err != nil {
				return nil, err
			}
			if kind == TableView {
				if len(td.Columns) > 0 || len(td.Keys) > 0 {
					return nil, moerr.NewInvalidInput(ctx, "view %s.%s declares columns", s.Name, t.Name)
				}
				if td.AST == "" {
					return nil, moerr.NewBadView(ctx, s.Name, t.Name)
				}
				t.Query = td.Query
				t.Definition = td.AST
				continue
			}
			for _, cd := range td.Columns {
				tpe := c.BindType(cd.Type, cd.Digits, cd.Scale)
				if tpe == nil {
					return nil, moerr.NewCatalogMiss(ctx, "Type: %s unknown", cd.Type)
				}
				null := cd.Null == nil || *cd.Null
				if _, err = c.CreateColumn(ctx, t, cd.Name, tpe, null, cd.Default); err != nil {
					return nil, err
				}
			}
			for _, kd := range td.Keys {
				kk, err := parseKeyKind(ctx, kd.Kind)
				if err != nil {
					return nil, err
				}
				if kk == ForeignKey {
					foreign = append(foreign, pendingKey{s, t, kd})
					continue
				}
				if _, err = c.CreateKey(ctx, t, kd.Name, kk, kd.Columns, nil); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, fk := range foreign {
		ref, err := c.resolveKey(ctx, fk.schema, fk.def.References)
		if err != nil {
			return nil, err
		}
		if _, err = c.CreateKey(ctx, fk.table, fk.def.Name, ForeignKey, fk.def.Columns, ref); err != nil {
			return nil, err
		}
	}
	logutil2.Debug(ctx, "catalog loaded",
		zap.Int("schemas", len(c.schemas)),
		zap.Int("objects", c.Len()))
	return c, nil
}

func (c *Catalog) resolveKey(ctx context.Context, s *Schema, name string) (*Key, error) {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 2:
	case 3:
		s = c.BindSchema(parts[0])
		if s == nil {
			return nil, moerr.NewCatalogMiss(ctx, "Schema: %s unknown", parts[0])
		}
		parts = parts[1:]
	default:
		return nil, moerr.NewInvalidInput(ctx, "key reference %q", name)
	}
	t := c.BindTable(s, parts[0])
	if t == nil {
		return nil, moerr.NewCatalogMiss(ctx, "Table: %s.%s unknown", s.Name, parts[0])
	}
	k := c.BindKey(t, parts[1])
	if k == nil {
		return nil, moerr.NewCatalogMiss(ctx, "Key: %s.%s unknown", t.Name, parts[1])
	}
	return k, nil
}
