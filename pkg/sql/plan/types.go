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
	"math"

	"github.com/matrixorigin/batsql/pkg/catalog"
	"github.com/matrixorigin/batsql/pkg/common/moerr"
	"github.com/matrixorigin/batsql/pkg/sql/ir"
	"github.com/matrixorigin/batsql/pkg/sql/tree"
)

func typeDump(t *catalog.SubType) (string, int, int, string) {
	if t == nil || t.Type == nil {
		return "OID", 0, 0, "oid"
	}
	return t.Type.SQLName, t.Digits, t.Scale, t.Type.Name
}

func isNumeric(t *catalog.SubType) bool {
	return t != nil && t.Type != nil && t.Type.Radix != 0 && t.Type.SQLName != "BOOLEAN" && t.Type.SQLName != "OID"
}

// retypeAtom gives a literal the type ct when its value is representable
// in it, literals are not converted at run time.
func retypeAtom(s *ir.Stmt, ct *catalog.SubType) *ir.Stmt {
	if s.Kind != ir.StAtom || ct == nil {
		return nil
	}
	a := *s.Atom
	st := a.Type
	switch {
	case a.Null:
	case a.Kind == ir.IntAtom && isNumeric(ct):
		if ct.Type.Digits < 63 && ct.Type.Radix == 2 && ct.Type.SQLName != "REAL" && ct.Type.SQLName != "DOUBLE" {
			lim := int64(1) << uint(ct.Type.Digits)
			if a.Int >= lim || a.Int < -lim {
				return nil
			}
		}
	case a.Kind == ir.FloatAtom && isNumeric(ct) && (ct.Type.SQLName == "REAL" || ct.Type.SQLName == "DOUBLE" || ct.Type.SQLName == "DECIMAL"):
	case a.Kind == ir.StrAtom && st != nil && (ct.Type.SQLName == "CHAR" || ct.Type.SQLName == "VARCHAR"):
	default:
		return nil
	}
	a.Type = ct
	return ir.NewAtom(&a)
}

// checkTypes makes the tail of s of type ct, by retyping a literal or by a
// convert from the narrow to the wide type.
func (builder *QueryBuilder) checkTypes(ct *catalog.SubType, s *ir.Stmt) (*ir.Stmt, error) {
	st := ir.TailType(s)
	if st == nil || ct == nil || st.Equal(ct) {
		return s, nil
	}
	if n := retypeAtom(s, ct); n != nil {
		s.Destroy()
		return n, nil
	}
	if f := builder.cat.BindFuncResult("convert", st, nil, nil, ct); f != nil {
		return ir.NewConvert(s, f, ct), nil
	}
	sn, sd, ss, sname := typeDump(st)
	cn, cd, cs, cname := typeDump(ct)
	return nil, moerr.NewTypeMismatch(builder.ctx, "Types %s(%d,%d) (%s) and %s(%d,%d) (%s) are not equal",
		sn, sd, ss, sname, cn, cd, cs, cname)
}

// matchTypes converts whichever side of l and r is narrower.
func (builder *QueryBuilder) matchTypes(l, r *ir.Stmt) (*ir.Stmt, *ir.Stmt, error) {
	lt, rt := ir.TailType(l), ir.TailType(r)
	if lt == nil || rt == nil || lt.Equal(rt) {
		return l, r, nil
	}
	if r.Kind == ir.StAtom || (lt.Type.Nr > rt.Type.Nr && l.Kind != ir.StAtom) {
		nr, err := builder.checkTypes(lt, r)
		if err == nil {
			return l, nr, nil
		}
	}
	nl, err := builder.checkTypes(rt, l)
	if err != nil {
		return nil, nil, err
	}
	return nl, r, nil
}

// bindAtom types a literal of the syntax tree.
func (builder *QueryBuilder) bindAtom(sym *tree.Symbol) (*ir.Stmt, error) {
	if sym.Token == tree.NULL {
		return ir.NewAtom(ir.NewNullAtom(nil)), nil
	}
	a := sym.Atom
	switch a.Kind {
	case tree.IntAtom:
		name := "INT"
		if a.Int > math.MaxInt32 || a.Int < math.MinInt32 {
			name = "BIGINT"
		}
		return ir.NewAtom(ir.NewIntAtom(builder.cat.BindType(name, 0, 0), a.Int)), nil
	case tree.StringAtom:
		return ir.NewAtom(ir.NewStrAtom(builder.cat.BindType("VARCHAR", len(a.Str), 0), a.Str)), nil
	case tree.FloatAtom:
		return ir.NewAtom(ir.NewFloatAtom(builder.cat.BindType("DOUBLE", 0, 0), a.Float)), nil
	}
	var t *catalog.SubType
	if a.Type != "" {
		if t = builder.cat.BindType(a.Type, 0, 0); t == nil {
			return nil, sqlError(sym, moerr.NewCatalogMiss(builder.ctx, "Type %s unknown", a.Type))
		}
	}
	if a.Kind == tree.NullAtom {
		return ir.NewAtom(ir.NewNullAtom(t)), nil
	}
	return ir.NewAtom(ir.NewGeneralAtom(t, a.Str)), nil
}

// nullOf is a NULL literal of the tail type of s.
func nullOf(s *ir.Stmt) *ir.Stmt {
	return ir.NewAtom(ir.NewNullAtom(ir.TailType(s)))
}
