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

package ir

import "fmt"

type Kind uint8

const (
	StAtom Kind = iota
	StBaseTable
	StColumn
	StReverse
	StSelect
	StSelect2
	StLike
	StJoin
	StOuterJoin
	StSemijoin
	StDiff
	StIntersect
	StUnion
	StMark
	StCount
	StConst
	StGroup
	StDerive
	StUnique
	StOrder
	StReorder
	StLimit
	StUnop
	StBinop
	StTriop
	StConvert
	StAggr
	StExists
	StInsertColumn
	StInsert
	StUpdate
	StDelete
	StAlias
	StList
	StSet
	StSets
	StOrdered
	StOutput
	StCreateView
	StRelSelect
	StRelEqJoin

	kindCount
)

var kindNames = [...]string{
	StAtom:         "atom",
	StBaseTable:    "basetable",
	StColumn:       "column",
	StReverse:      "reverse",
	StSelect:       "select",
	StSelect2:      "select2",
	StLike:         "like",
	StJoin:         "join",
	StOuterJoin:    "outerjoin",
	StSemijoin:     "semijoin",
	StDiff:         "diff",
	StIntersect:    "intersect",
	StUnion:        "union",
	StMark:         "mark",
	StCount:        "count",
	StConst:        "const",
	StGroup:        "group",
	StDerive:       "derive",
	StUnique:       "unique",
	StOrder:        "order",
	StReorder:      "reorder",
	StLimit:        "limit",
	StUnop:         "unop",
	StBinop:        "binop",
	StTriop:        "triop",
	StConvert:      "convert",
	StAggr:         "aggr",
	StExists:       "exists",
	StInsertColumn: "insert_column",
	StInsert:       "insert",
	StUpdate:       "update",
	StDelete:       "delete",
	StAlias:        "alias",
	StList:         "list",
	StSet:          "set",
	StSets:         "sets",
	StOrdered:      "ordered",
	StOutput:       "output",
	StCreateView:   "create_view",
	StRelSelect:    "relselect",
	StRelEqJoin:    "releqjoin",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds lists every statement kind in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, kindCount)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// Cmp is the comparison of a select or join.
type Cmp uint8

const (
	CmpEqual Cmp = iota
	CmpNotEqual
	CmpLt
	CmpLte
	CmpGt
	CmpGte
	// CmpAll joins every pair, a cross product.
	CmpAll
)

var cmpNames = [...]string{"=", "!=", "<", "<=", ">", ">=", "all"}

func (c Cmp) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return "?"
}

// ParseCmp maps a comparison operator of the syntax tree.
func ParseCmp(op string) (Cmp, bool) {
	switch op {
	case "=":
		return CmpEqual, true
	case "<>", "!=":
		return CmpNotEqual, true
	case "<":
		return CmpLt, true
	case "<=":
		return CmpLte, true
	case ">":
		return CmpGt, true
	case ">=":
		return CmpGte, true
	}
	return CmpEqual, false
}

// Swap is the comparison with its operands exchanged, a < b is b > a.
func (c Cmp) Swap() Cmp {
	switch c {
	case CmpLt:
		return CmpGt
	case CmpLte:
		return CmpGte
	case CmpGt:
		return CmpLt
	case CmpGte:
		return CmpLte
	}
	return c
}

// Negate is the complement, a < b is not a >= b.
func (c Cmp) Negate() Cmp {
	switch c {
	case CmpEqual:
		return CmpNotEqual
	case CmpNotEqual:
		return CmpEqual
	case CmpLt:
		return CmpGte
	case CmpLte:
		return CmpGt
	case CmpGt:
		return CmpLte
	case CmpGte:
		return CmpLt
	}
	return c
}
