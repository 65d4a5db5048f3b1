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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindType(t *testing.T) {
	c := New()
	tests := []struct {
		name   string
		digits int
		want   string
		wantNm string
	}{
		{"INT", 0, "INT", "int"},
		{"int", 0, "INT", "int"},
		{"DECIMAL", 3, "DECIMAL", "sht"},
		{"DECIMAL", 9, "DECIMAL", "int"},
		{"DECIMAL", 10, "DECIMAL", "lng"},
		// wider than any decimal, the widest is taken
		{"DECIMAL", 30, "DECIMAL", "lng"},
		{"VARCHAR", 20, "VARCHAR", "str"},
		{"BOOLEAN", 0, "BOOLEAN", "bit"},
		{"REAL", 0, "REAL", "flt"},
	}
	for _, tt := range tests {
		st := c.BindType(tt.name, tt.digits, 0)
		require.NotNil(t, st, tt.name)
		require.Equal(t, tt.want, st.Type.SQLName)
		require.Equal(t, tt.wantNm, st.Type.Name)
		require.Equal(t, tt.digits, st.Digits)
	}
	require.Nil(t, c.BindType("BLOB", 0, 0))
}

func TestTypeRank(t *testing.T) {
	c := New()
	order := []string{"TINYINT", "SMALLINT", "INT", "BIGINT", "REAL", "DOUBLE"}
	prev := -1
	for _, name := range order {
		st := c.BindType(name, 0, 0)
		require.Greater(t, st.Type.Nr, prev, name)
		prev = st.Type.Nr
	}
	require.Less(t, c.BindType("CHAR", 0, 0).Type.Nr, c.BindType("VARCHAR", 0, 0).Type.Nr)
}

func TestBindFunc(t *testing.T) {
	c := New()
	i32 := c.BindType("INT", 0, 0)
	lng := c.BindType("BIGINT", 0, 0)
	str := c.BindType("VARCHAR", 0, 0)

	f := c.BindFunc("+", i32, i32, nil)
	require.NotNil(t, f)
	require.Equal(t, "+(INT,INT) INT", f.String())
	require.Nil(t, c.BindFunc("+", i32, lng, nil))
	require.Nil(t, c.BindFunc("+", i32, nil, nil))

	neg := c.BindFunc("-", i32, nil, nil)
	require.NotNil(t, neg)
	require.Len(t, neg.Args, 1)

	sub := c.BindFunc("substring", str, i32, i32)
	require.NotNil(t, sub)
	require.Equal(t, "string", sub.Imp)

	conv := c.BindFuncResult("convert", i32, nil, nil, lng)
	require.NotNil(t, conv)
	require.Equal(t, "lng", conv.Imp)
	require.Nil(t, c.BindFuncResult("convert", lng, nil, nil, i32))
	require.Nil(t, c.BindFuncResult("convert", str, nil, nil, i32))
	require.Nil(t, c.BindFuncResult("convert", i32, nil, nil, nil))
}

func TestBindAggr(t *testing.T) {
	c := New()
	star := c.BindAggr("count", nil)
	require.NotNil(t, star)
	require.Nil(t, star.Arg)
	require.Equal(t, "count(*) BIGINT", star.String())

	sum := c.BindAggr("sum", c.BindType("INT", 0, 0))
	require.NotNil(t, sum)
	require.Equal(t, "BIGINT", sum.Res.SQLName)

	avg := c.BindAggr("avg", c.BindType("DOUBLE", 0, 0))
	require.Equal(t, "DOUBLE", avg.Res.SQLName)

	require.Nil(t, c.BindAggr("sum", nil))
	require.Nil(t, c.BindAggr("sum", c.BindType("VARCHAR", 0, 0)))
	require.NotNil(t, c.BindAggr("max", c.BindType("VARCHAR", 0, 0)))
}

func TestSubTypeString(t *testing.T) {
	c := New()
	require.Equal(t, "DECIMAL(9,2)", c.BindType("DECIMAL", 9, 2).String())
	require.Equal(t, "INT", c.BindType("INT", 0, 0).String())
	var st *SubType
	require.Equal(t, "NULL", st.String())
	require.True(t, st.Equal(nil))
	require.True(t, c.BindType("INT", 0, 0).Equal(c.BindType("INT", 31, 0)))
}
