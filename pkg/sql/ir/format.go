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
	"bytes"
	"fmt"
	"strings"
)

// Format renders the DAG below s as an indented tree. A node shared by
// several parents is expanded once and referenced by id afterwards.
func Format(s *Stmt) string {
	var buf bytes.Buffer
	seen := make(map[uint32]struct{})
	format(&buf, s, 0, seen)
	return buf.String()
}

func format(buf *bytes.Buffer, s *Stmt, depth int, seen map[uint32]struct{}) {
	buf.WriteString(strings.Repeat("  ", depth))
	if _, ok := seen[s.id]; ok {
		fmt.Fprintf(buf, "^%s\n", s)
		return
	}
	seen[s.id] = struct{}{}
	buf.WriteString(s.String())
	if p := payload(s); p != "" {
		buf.WriteString(" ")
		buf.WriteString(p)
	}
	fmt.Fprintf(buf, " [%s,%s] nr=%d ref=%d\n", s.H, s.T, s.NrCols, s.refcnt)
	for _, c := range s.Children() {
		format(buf, c, depth+1, seen)
	}
}

func payload(s *Stmt) string {
	switch s.Kind {
	case StAtom:
		return s.Atom.Dump()
	case StBaseTable, StCreateView:
		return s.Table.Name
	case StColumn, StInsert, StUpdate, StDelete:
		return s.Column.Table.Name + "." + s.Column.Name
	case StSelect, StSelect2, StJoin, StOuterJoin:
		return s.Cmp.String()
	case StMark, StOrder, StReorder, StLimit:
		return fmt.Sprintf("%d", s.Flag)
	case StUnop, StBinop, StTriop, StConvert:
		return s.Func.Name
	case StAggr:
		return s.Aggr.Name
	case StAlias:
		return s.Name
	}
	return ""
}
