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

package logutil2

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/batsql/pkg/logutil"
)

func readRecords(t *testing.T, name string) []map[string]any {
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	var recs []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		rec := make(map[string]any)
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.NoError(t, sc.Err())
	return recs
}

func TestWithStatement(t *testing.T) {
	name := filepath.Join(t.TempDir(), "stmt.log")
	logutil.SetupMOLogger(&logutil.LogConfig{Level: "debug", Format: "json", Filename: name})
	t.Cleanup(func() {
		logutil.SetupMOLogger(&logutil.LogConfig{Level: "info", Format: "console"})
	})

	ctx := WithStatement(context.Background(), "c0ffee", 4)
	Debug(ctx, "bind")
	Infof(ctx, "pivots %d", 2)
	Errorf(WithStatement(ctx, "beef", 9), "rewrite %s", "failed")
	Info(context.Background(), "plain")

	recs := readRecords(t, name)
	require.Len(t, recs, 4)

	require.Equal(t, "bind", recs[0]["msg"])
	require.Equal(t, "c0ffee", recs[0]["stmt-id"])
	require.EqualValues(t, 4, recs[0]["line"])
	require.Equal(t, "DEBUG", recs[0]["level"])

	require.Equal(t, "pivots 2", recs[1]["msg"])
	require.Equal(t, "c0ffee", recs[1]["stmt-id"])

	// a nested statement context repeats the keys, the newest value is last
	require.Equal(t, "rewrite failed", recs[2]["msg"])
	require.Equal(t, "beef", recs[2]["stmt-id"])
	require.EqualValues(t, 9, recs[2]["line"])
	require.Contains(t, recs[2], "stacktrace")

	require.NotContains(t, recs[3], "stmt-id")
	require.NotContains(t, recs[3], "line")
}
