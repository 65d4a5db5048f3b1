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

import (
	"github.com/matrixorigin/batsql/pkg/catalog"
)

// TailType is the type of the values of s, nil stands for oid.
func TailType(s *Stmt) *catalog.SubType {
	switch s.Kind {
	case StConst, StJoin, StOuterJoin:
		return TailType(s.Op2)
	case StSelect, StSelect2, StLike, StUnique, StUnion, StSemijoin, StDiff,
		StIntersect, StMark, StAlias, StOrder, StReorder, StLimit, StExists,
		StInsertColumn:
		return TailType(s.Op1)
	case StOrdered:
		return TailType(s.Op2)
	case StRelSelect:
		if len(s.List) > 0 {
			return TailType(s.List[0])
		}
	case StRelEqJoin:
		return HeadType(s.Op2.List[0])
	case StColumn:
		return s.Column.Type
	case StReverse:
		return HeadType(s.Op1)
	case StAggr:
		return &catalog.SubType{Type: s.Aggr.Res}
	case StUnop, StBinop, StTriop:
		return &catalog.SubType{Type: s.Func.Res}
	case StConvert:
		return s.Type
	case StAtom:
		return s.Atom.Type
	case StInsert, StUpdate, StDelete:
		return s.Column.Type
	}
	return nil
}

// HeadType is the type of the head of s, nil stands for oid.
func HeadType(s *Stmt) *catalog.SubType {
	switch s.Kind {
	case StAggr, StUnop, StBinop, StTriop, StConvert, StUnique, StUnion, StAlias,
		StJoin, StOuterJoin, StSemijoin, StSelect, StSelect2, StLike, StDiff,
		StIntersect:
		if s.Kind == StAggr && s.Op2 == nil {
			return nil
		}
		if s.Kind == StTriop {
			return HeadType(s.List[0])
		}
		return HeadType(s.Op1)
	case StReverse:
		return TailType(s.Op1)
	case StAtom:
		return s.Atom.Type
	}
	return nil
}

// ColumnName is the name a result column of s gets.
func ColumnName(s *Stmt) string {
	switch s.Kind {
	case StJoin, StOuterJoin, StConst:
		return ColumnName(s.Op2)
	case StUnion, StSelect, StSelect2, StLike, StSemijoin, StDiff, StIntersect,
		StUnique, StMark, StOrder, StReorder, StLimit, StExists, StConvert,
		StInsertColumn, StUnop:
		return ColumnName(s.Op1)
	case StBinop:
		if s.Op1.Kind == StAtom {
			return ColumnName(s.Op2)
		}
		return ColumnName(s.Op1)
	case StTriop:
		return ColumnName(s.List[0])
	case StColumn:
		return s.Column.Name
	case StAggr:
		if s.Op1 == s.Op2 || s.Aggr.Arg == nil {
			return s.Aggr.Name + "_"
		}
		return s.Aggr.Name + "_" + ColumnName(s.Op1)
	case StAlias:
		return s.Name
	case StAtom:
		return "single_value"
	}
	return ""
}

// TableName is the name of the table variable a column of s comes from.
func TableName(s *Stmt) string {
	switch s.Kind {
	case StColumn:
		if s.H != nil && s.H.Name != "" {
			return s.H.Name
		}
		return s.Column.Table.Name
	case StJoin, StOuterJoin, StConst:
		return TableName(s.Op2)
	case StAlias:
		if s.H != nil {
			return s.H.String()
		}
		return TableName(s.Op1)
	case StAtom:
		return ""
	}
	if s.Op1 != nil {
		return TableName(s.Op1)
	}
	if len(s.List) > 0 {
		return TableName(s.List[0])
	}
	return ""
}

// BaseColumn finds the column whose head rows s is correlated with.
func BaseColumn(s *Stmt) *Stmt {
	switch s.Kind {
	case StColumn:
		return s
	case StJoin, StOuterJoin, StIntersect, StSelect, StSelect2, StLike, StAggr,
		StUnop, StConvert, StUnique, StMark, StAlias, StSemijoin, StDiff,
		StUnion, StOrder, StLimit, StExists:
		return BaseColumn(s.Op1)
	case StBinop:
		if s.Op1.NrCols == 0 {
			return BaseColumn(s.Op2)
		}
		return BaseColumn(s.Op1)
	case StTriop:
		for _, op := range s.List {
			if op.NrCols > 0 {
				return BaseColumn(op)
			}
		}
		return BaseColumn(s.List[0])
	case StReverse:
		return tailColumn(s.Op1)
	}
	return nil
}

// tailColumn follows the tail side of a relation.
func tailColumn(s *Stmt) *Stmt {
	switch s.Kind {
	case StJoin, StOuterJoin, StIntersect:
		return tailColumn(s.Op2)
	case StSelect, StSelect2, StUnique, StAlias:
		return tailColumn(s.Op1)
	case StColumn:
		return s
	case StReverse:
		return BaseColumn(s.Op1)
	}
	return BaseColumn(s)
}
