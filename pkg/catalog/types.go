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
	"fmt"
	"strings"
)

// Type is one entry of the type table. SQLName is what queries use,
// Name is the column store type the instructions use.
type Type struct {
	SQLName string
	Name    string
	Digits  int
	Scale   int
	Radix   int
	// Nr is the position in the type table, a higher Nr is a wider type.
	Nr int
}

func (t *Type) String() string {
	return t.SQLName
}

// SubType is a Type instantiated with digits and scale.
type SubType struct {
	Type   *Type
	Digits int
	Scale  int
}

func (st *SubType) String() string {
	if st == nil || st.Type == nil {
		return "NULL"
	}
	switch {
	case st.Digits > 0 && st.Scale > 0:
		return fmt.Sprintf("%s(%d,%d)", st.Type.SQLName, st.Digits, st.Scale)
	case st.Digits > 0 && (st.Type.SQLName == "VARCHAR" || st.Type.SQLName == "CHAR" || st.Type.SQLName == "DECIMAL"):
		return fmt.Sprintf("%s(%d)", st.Type.SQLName, st.Digits)
	}
	return st.Type.SQLName
}

// Equal compares on the type entry, digits and scale are ignored.
func (st *SubType) Equal(o *SubType) bool {
	if st == nil || o == nil {
		return st == o
	}
	return st.Type == o.Type
}

// Func is a scalar function signature. Args lists up to three parameter types.
type Func struct {
	Name string
	Imp  string
	Args []*Type
	Res  *Type
	Nr   int
}

func (f *Func) String() string {
	names := make([]string, len(f.Args))
	for i, a := range f.Args {
		names[i] = a.SQLName
	}
	return fmt.Sprintf("%s(%s) %s", f.Name, strings.Join(names, ","), f.Res.SQLName)
}

// Aggr is an aggregate signature, a nil Arg is count(*).
type Aggr struct {
	Name string
	Imp  string
	Arg  *Type
	Res  *Type
	Nr   int
}

func (a *Aggr) String() string {
	if a.Arg == nil {
		return fmt.Sprintf("%s(*) %s", a.Name, a.Res.SQLName)
	}
	return fmt.Sprintf("%s(%s) %s", a.Name, a.Arg.SQLName, a.Res.SQLName)
}

type builtins struct {
	types []*Type
	funcs []*Func
	aggrs []*Aggr
}

func (b *builtins) addType(sqlname, name string, digits, scale, radix int) *Type {
	t := &Type{
		SQLName: sqlname,
		Name:    name,
		Digits:  digits,
		Scale:   scale,
		Radix:   radix,
		Nr:      len(b.types),
	}
	b.types = append(b.types, t)
	return t
}

func (b *builtins) addFunc(name, imp string, res *Type, args ...*Type) {
	b.funcs = append(b.funcs, &Func{
		Name: name,
		Imp:  imp,
		Args: args,
		Res:  res,
		Nr:   len(b.funcs),
	})
}

func (b *builtins) addAggr(name, imp string, arg, res *Type) {
	b.aggrs = append(b.aggrs, &Aggr{
		Name: name,
		Imp:  imp,
		Arg:  arg,
		Res:  res,
		Nr:   len(b.aggrs),
	})
}

// newBuiltins fills the type, function and aggregate tables. Types of one
// SQL name are listed by ascending digits and the table order is the
// widening order.
func newBuiltins() *builtins {
	b := &builtins{}

	bit := b.addType("BOOLEAN", "bit", 1, 0, 2)
	chr := b.addType("CHAR", "str", 0, 0, 0)
	str := b.addType("VARCHAR", "str", 0, 0, 0)
	bte := b.addType("TINYINT", "bte", 7, 0, 2)
	sht := b.addType("SMALLINT", "sht", 15, 0, 2)
	i32 := b.addType("INT", "int", 31, 0, 2)
	lng := b.addType("BIGINT", "lng", 63, 0, 2)
	d2 := b.addType("DECIMAL", "bte", 2, 0, 10)
	d4 := b.addType("DECIMAL", "sht", 4, 0, 10)
	d9 := b.addType("DECIMAL", "int", 9, 0, 10)
	d18 := b.addType("DECIMAL", "lng", 18, 0, 10)
	flt := b.addType("REAL", "flt", 24, 0, 2)
	dbl := b.addType("DOUBLE", "dbl", 53, 0, 2)
	dte := b.addType("DATE", "date", 0, 0, 0)
	tme := b.addType("TIME", "daytime", 7, 0, 0)
	tms := b.addType("TIMESTAMP", "timestamp", 7, 0, 0)
	b.addType("OID", "oid", 63, 0, 2)

	integers := []*Type{bte, sht, i32, lng}
	decimals := []*Type{d2, d4, d9, d18}
	floats := []*Type{flt, dbl}
	numerics := append(append(append([]*Type{}, integers...), decimals...), floats...)
	ordered := append(append([]*Type{}, numerics...), chr, str, dte, tme, tms)

	for _, t := range numerics {
		b.addFunc("+", "+", t, t, t)
		b.addFunc("-", "-", t, t, t)
		b.addFunc("*", "*", t, t, t)
		b.addFunc("/", "/", t, t, t)
		b.addFunc("%", "%", t, t, t)
		b.addFunc("abs", "abs", t, t)
		b.addFunc("-", "-", t, t)
	}
	for _, t := range ordered {
		b.addFunc("min", "min", t, t, t)
		b.addFunc("max", "max", t, t, t)
	}
	for _, t := range b.types {
		b.addFunc("ifthenelse", "ifthenelse", t, bit, t, t)
	}
	b.addFunc("not", "not", bit, bit)
	b.addFunc("and", "and", bit, bit, bit)
	b.addFunc("or", "or", bit, bit, bit)
	for _, t := range []*Type{chr, str} {
		b.addFunc("lower", "toLower", t, t)
		b.addFunc("upper", "toUpper", t, t)
		b.addFunc("length", "length", i32, t)
		b.addFunc("substring", "string", t, t, i32, i32)
		b.addFunc("concat", "+", t, t, t)
		b.addFunc("like", "like", bit, t, t)
	}

	// convert functions go from the narrow to the wide type.
	for i, from := range numerics {
		for _, to := range numerics[i+1:] {
			b.addFunc("convert", to.Name, to, from)
		}
		b.addFunc("convert", str.Name, str, from)
	}
	b.addFunc("convert", str.Name, str, chr)
	b.addFunc("convert", dte.Name, dte, str)
	b.addFunc("convert", tme.Name, tme, str)
	b.addFunc("convert", tms.Name, tms, str)
	b.addFunc("convert", tms.Name, tms, dte)
	b.addFunc("convert", bte.Name, bte, bit)

	b.addAggr("count", "count", nil, lng)
	for _, t := range b.types {
		b.addAggr("count", "count", t, lng)
	}
	for _, t := range integers {
		b.addAggr("sum", "sum", t, lng)
		b.addAggr("avg", "avg", t, dbl)
	}
	for _, t := range decimals {
		b.addAggr("sum", "sum", t, d18)
		b.addAggr("avg", "avg", t, dbl)
	}
	for _, t := range floats {
		b.addAggr("sum", "sum", t, dbl)
		b.addAggr("avg", "avg", t, dbl)
	}
	for _, t := range ordered {
		b.addAggr("min", "min", t, t)
		b.addAggr("max", "max", t, t)
	}
	return b
}

// BindType picks the first type named name whose digits can hold digits,
// digits 0 only matches an unconstrained type. Without such a type the
// widest type of that name is returned.
func (b *builtins) BindType(name string, digits, scale int) *SubType {
	var last *Type
	name = strings.ToUpper(name)
	for _, t := range b.types {
		if t.SQLName != name {
			continue
		}
		if (digits != 0 && t.Digits >= digits) || digits == t.Digits {
			return &SubType{Type: t, Digits: digits, Scale: scale}
		}
		last = t
	}
	if last == nil {
		return nil
	}
	return &SubType{Type: last, Digits: digits, Scale: scale}
}

func argsMatch(args []*Type, ts []*SubType) bool {
	n := 0
	for _, t := range ts {
		if t == nil {
			break
		}
		n++
	}
	if n != len(args) {
		return false
	}
	for i, a := range args {
		if ts[i].Type != a {
			return false
		}
	}
	return true
}

func (b *builtins) BindFunc(name string, t1, t2, t3 *SubType) *Func {
	for _, f := range b.funcs {
		if f.Name == name && argsMatch(f.Args, []*SubType{t1, t2, t3}) {
			return f
		}
	}
	return nil
}

func (b *builtins) BindFuncResult(name string, t1, t2, t3, res *SubType) *Func {
	if res == nil {
		return nil
	}
	for _, f := range b.funcs {
		if f.Name == name && f.Res == res.Type && argsMatch(f.Args, []*SubType{t1, t2, t3}) {
			return f
		}
	}
	return nil
}

func (b *builtins) BindAggr(name string, t *SubType) *Aggr {
	for _, a := range b.aggrs {
		if a.Name != name {
			continue
		}
		if t == nil && a.Arg == nil {
			return a
		}
		if t != nil && a.Arg == t.Type {
			return a
		}
	}
	return nil
}
