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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testCatalog = `
[[schema]]
name = "sys"

  [[schema.table]]
  name = "emp"
    [[schema.table.column]]
    name = "id"
    type = "INT"
    [[schema.table.column]]
    name = "age"
    type = "INT"
`

const testStatements = `
token: select
select:
  selection:
    - token: column
      names: [id]
  from:
    - token: table
      names: [emp]
  where:
    token: compare
    str: ">"
    list:
      - token: column
        names: [age]
      - token: atom
        atom: {kind: int, int: 17}
---
token: delete
names: [emp]
`

func writeFile(t *testing.T, dir, name, data string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	return p
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "catalog.toml", testCatalog)
	stmts := writeFile(t, dir, "q.yaml", testStatements)

	out, _, err := run(t, "", "compile", "--catalog", cat, stmts)
	require.NoError(t, err)
	require.Contains(t, out, "mil_select")
	require.Contains(t, out, "stream_flush(Output);")
	require.Contains(t, out, ".clear();")
	require.NotContains(t, out, "# "+stmts)
}

func TestCompileCommandStdin(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "catalog.toml", testCatalog)
	stmts := writeFile(t, dir, "q.yaml", testStatements)

	out, errOut, err := run(t, testStatements, "compile", "--catalog", cat, "--metrics", stmts, "-")
	require.NoError(t, err)
	require.Contains(t, out, "# "+stmts)
	require.Contains(t, out, "# -")
	require.Contains(t, errOut, "mo_sql_statement_total")
}

func TestCompileCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "catalog.toml", testCatalog)
	bad := writeFile(t, dir, "bad.yaml", "token: delete\nnames: [nope]\n")

	_, errOut, err := run(t, "", "compile", "--catalog", cat, bad)
	require.Error(t, err)
	require.Contains(t, errOut, bad+": ")

	_, _, err = run(t, "", "compile", bad)
	require.Error(t, err)

	_, _, err = run(t, "", "compile", "--catalog", filepath.Join(dir, "missing.toml"), bad)
	require.Error(t, err)

	conf := writeFile(t, dir, "bad.toml", "[log]\nformat = \"xml\"\n")
	_, _, err = run(t, "", "compile", "--catalog", cat, "--config", conf, bad)
	require.Error(t, err)
}

func TestCatalogCommand(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "catalog.toml", testCatalog)
	out, _, err := run(t, "", "catalog", "--catalog", cat)
	require.NoError(t, err)
	require.Equal(t, "1 schema sys\n2 base sys.emp\n3 column emp.id INT\n4 column emp.age INT\n", out)
}
