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
	"strings"

	"github.com/google/btree"

	"github.com/matrixorigin/batsql/pkg/common/moerr"
)

type TableKind uint8

const (
	TableBase TableKind = iota
	TableSystem
	TableView
	TableSession
	TableTemp
)

var tableKindNames = [...]string{"base", "system", "view", "session", "temp"}

func (k TableKind) String() string {
	if int(k) < len(tableKindNames) {
		return tableKindNames[k]
	}
	return "unknown"
}

func parseTableKind(ctx context.Context, s string) (TableKind, error) {
	if s == "" {
		return TableBase, nil
	}
	for i, name := range tableKindNames {
		if strings.EqualFold(name, s) {
			return TableKind(i), nil
		}
	}
	return TableBase, moerr.NewInvalidInput(ctx, "table kind %s", s)
}

type KeyKind uint8

const (
	PrimaryKey KeyKind = iota
	UniqueKey
	ForeignKey
)

var keyKindNames = [...]string{"primary", "unique", "foreign"}

func (k KeyKind) String() string {
	if int(k) < len(keyKindNames) {
		return keyKindNames[k]
	}
	return "unknown"
}

func parseKeyKind(ctx context.Context, s string) (KeyKind, error) {
	for i, name := range keyKindNames {
		if strings.EqualFold(name, s) {
			return KeyKind(i), nil
		}
	}
	return PrimaryKey, moerr.NewInvalidInput(ctx, "key kind %s", s)
}

// Plan is the compiled relation behind a view column.
type Plan interface {
	PlanID() uint32
}

// Object is any catalog entity with an id.
type Object interface {
	GetID() int64
	GetName() string
}

type Schema struct {
	ID     int64
	Name   string
	Auth   string
	Tables []*Table
}

func (s *Schema) GetID() int64    { return s.ID }
func (s *Schema) GetName() string { return s.Name }

type Table struct {
	ID      int64
	Name    string
	Schema  *Schema
	Kind    TableKind
	Columns []*Column
	PKey    *Key
	Keys    []*Key
	// Query is the defining query text of a view.
	Query string
	// Definition is the YAML syntax tree of the view query.
	Definition string
}

func (t *Table) GetID() int64    { return t.ID }
func (t *Table) GetName() string { return t.Name }

func (t *Table) IsView() bool {
	return t.Kind == TableView
}

type Column struct {
	ID      int64
	Name    string
	Table   *Table
	Type    *SubType
	Null    bool
	Default string
	ColNr   int
	// Plan is set on view columns once the view query is compiled.
	Plan Plan
}

func (c *Column) GetID() int64    { return c.ID }
func (c *Column) GetName() string { return c.Name }

type Key struct {
	ID      int64
	Name    string
	Kind    KeyKind
	Table   *Table
	Columns []*Column
	// Ref is the referenced key of a foreign key.
	Ref *Key
}

func (k *Key) GetID() int64    { return k.ID }
func (k *Key) GetName() string { return k.Name }

type objectItem struct {
	id  int64
	obj Object
}

func (i objectItem) Less(than btree.Item) bool {
	return i.id < than.(objectItem).id
}

// Reader is the read side of the catalog used by the compiler.
type Reader interface {
	BindSchema(name string) *Schema
	BindTable(s *Schema, name string) *Table
	BindColumn(t *Table, name string) *Column
	BindKey(t *Table, name string) *Key
	BindType(name string, digits, scale int) *SubType
	BindFunc(name string, t1, t2, t3 *SubType) *Func
	BindFuncResult(name string, t1, t2, t3, res *SubType) *Func
	BindAggr(name string, t *SubType) *Aggr
}

// Catalog holds the schemas and the built-in signature tables. It is
// populated before compilation starts and read during it.
type Catalog struct {
	*builtins

	schemas []*Schema
	ids     *btree.BTree
	nextID  int64
}

var _ Reader = (*Catalog)(nil)

func New() *Catalog {
	return &Catalog{
		builtins: newBuiltins(),
		ids:      btree.New(8),
		nextID:   1,
	}
}

func (c *Catalog) register(obj Object) int64 {
	id := c.nextID
	c.nextID++
	c.ids.ReplaceOrInsert(objectItem{id: id, obj: obj})
	return id
}

// ByID resolves any entity by id.
func (c *Catalog) ByID(id int64) Object {
	item := c.ids.Get(objectItem{id: id})
	if item == nil {
		return nil
	}
	return item.(objectItem).obj
}

// Objects walks every entity in id order until fn returns false.
func (c *Catalog) Objects(fn func(Object) bool) {
	c.ids.Ascend(func(i btree.Item) bool {
		return fn(i.(objectItem).obj)
	})
}

func (c *Catalog) Len() int {
	return c.ids.Len()
}

func (c *Catalog) Schemas() []*Schema {
	return c.schemas
}

func (c *Catalog) CreateSchema(ctx context.Context, name, auth string) (*Schema, error) {
	if c.BindSchema(name) != nil {
		return nil, moerr.NewInvalidInput(ctx, "schema %s already exists", name)
	}
	s := &Schema{Name: name, Auth: auth}
	s.ID = c.register(s)
	c.schemas = append(c.schemas, s)
	return s, nil
}

func (c *Catalog) CreateTable(ctx context.Context, s *Schema, name string, kind TableKind) (*Table, error) {
	if c.BindTable(s, name) != nil {
		return nil, moerr.NewInvalidInput(ctx, "table %s.%s already exists", s.Name, name)
	}
	t := &Table{Name: name, Schema: s, Kind: kind}
	t.ID = c.register(t)
	s.Tables = append(s.Tables, t)
	return t, nil
}

func (c *Catalog) CreateColumn(ctx context.Context, t *Table, name string, tpe *SubType, null bool, def string) (*Column, error) {
	if tpe == nil {
		return nil, moerr.NewInvalidInput(ctx, "column %s.%s without type", t.Name, name)
	}
	if c.BindColumn(t, name) != nil {
		return nil, moerr.NewInvalidInput(ctx, "column %s.%s already exists", t.Name, name)
	}
	col := &Column{
		Name:    name,
		Table:   t,
		Type:    tpe,
		Null:    null,
		Default: def,
		ColNr:   len(t.Columns),
	}
	col.ID = c.register(col)
	t.Columns = append(t.Columns, col)
	return col, nil
}

// CreateViewColumn adds a column whose rows are computed by plan.
func (c *Catalog) CreateViewColumn(ctx context.Context, t *Table, name string, tpe *SubType, plan Plan) (*Column, error) {
	if !t.IsView() {
		return nil, moerr.NewInvalidInput(ctx, "%s is not a view", t.Name)
	}
	col, err := c.CreateColumn(ctx, t, name, tpe, true, "")
	if err != nil {
		return nil, err
	}
	col.Plan = plan
	return col, nil
}

// CreateKey adds a key over the named columns. A foreign key needs ref and
// the same number of columns as ref.
func (c *Catalog) CreateKey(ctx context.Context, t *Table, name string, kind KeyKind, cols []string, ref *Key) (*Key, error) {
	if c.BindKey(t, name) != nil {
		return nil, moerr.NewInvalidInput(ctx, "key %s.%s already exists", t.Name, name)
	}
	k := &Key{Name: name, Kind: kind, Table: t}
	for _, cname := range cols {
		col := c.BindColumn(t, cname)
		if col == nil {
			return nil, moerr.NewCatalogMiss(ctx, "Column: %s.%s unknown", t.Name, cname)
		}
		k.Columns = append(k.Columns, col)
	}
	switch kind {
	case ForeignKey:
		if ref == nil {
			return nil, moerr.NewInvalidInput(ctx, "foreign key %s without referenced key", name)
		}
		if len(ref.Columns) != len(k.Columns) {
			return nil, moerr.NewInvalidInput(ctx, "foreign key %s has %d columns, referenced key %s has %d",
				name, len(k.Columns), ref.Name, len(ref.Columns))
		}
		k.Ref = ref
	case PrimaryKey:
		if t.PKey != nil {
			return nil, moerr.NewInvalidInput(ctx, "table %s has a primary key", t.Name)
		}
		t.PKey = k
	}
	k.ID = c.register(k)
	t.Keys = append(t.Keys, k)
	return k, nil
}

func (c *Catalog) BindSchema(name string) *Schema {
	for _, s := range c.schemas {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (c *Catalog) BindTable(s *Schema, name string) *Table {
	if s == nil {
		return nil
	}
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (c *Catalog) BindColumn(t *Table, name string) *Column {
	if t == nil {
		return nil
	}
	for _, col := range t.Columns {
		if col.Name == name {
			return col
		}
	}
	return nil
}

func (c *Catalog) BindKey(t *Table, name string) *Key {
	if t == nil {
		return nil
	}
	for _, k := range t.Keys {
		if k.Name == name {
			return k
		}
	}
	return nil
}
