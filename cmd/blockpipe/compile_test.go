package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workspaceJSON = `{
  "id": "ws",
  "nodes": [
    {"ref": "tcp", "data": {"kind": "stage", "name": "tcp"}},
    {"ref": "xor", "data": {"kind": "stage", "name": "xor"}},
    {"ref": "key", "data": {"kind": "argument", "value": "secret"}}
  ],
  "edges": [
    {"from_node_ref": "tcp", "to_node_ref": "xor", "data": {}},
    {"from_node_ref": "xor", "to_node_ref": "key", "data": {"socket": "arg_0"}}
  ]
}`

const workspaceYAML = `
id: ws
nodes:
  - ref: udp
    data: {kind: stage, name: udp}
  - ref: port
    data: {kind: argument, key: port, value: "53"}
edges:
  - from_node_ref: udp
    to_node_ref: port
    data: {socket: arg_0}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, run func(*cobra.Command, []string) error, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := run(cmd, args)
	return out.String(), err
}

func resetFlags(t *testing.T) {
	t.Helper()
	compileFlags.compact = false
	compileFlags.catalog = ""
	catalogFlags.path = ""
	rootFlags.logLevel = "warn"
}

func TestCompileJSON(t *testing.T) {
	resetFlags(t)
	path := writeFile(t, "ws.json", workspaceJSON)

	out, err := execute(t, runCompile, "", path)
	require.NoError(t, err)
	assert.Equal(t, "tcp =>\nxor(\"secret\")\n", out)

	compileFlags.compact = true
	out, err = execute(t, runCompile, "", path)
	require.NoError(t, err)
	assert.Equal(t, "tcp=>xor(\"secret\")\n", out)
}

func TestCompileYAML(t *testing.T) {
	resetFlags(t)
	path := writeFile(t, "ws.yaml", workspaceYAML)

	out, err := execute(t, runCompile, "", path)
	require.NoError(t, err)
	assert.Equal(t, "udp(port = 53)\n", out)
}

func TestCompileStdin(t *testing.T) {
	resetFlags(t)
	out, err := execute(t, runCompile, workspaceJSON, "-")
	require.NoError(t, err)
	assert.Equal(t, "tcp =>\nxor(\"secret\")\n", out)
}

func TestCompileCustomCatalog(t *testing.T) {
	resetFlags(t)
	compileFlags.catalog = writeFile(t, "stages.yaml", `
stages:
  - name: tcp
  - name: xor
    args: [key, rounds]
`)
	path := writeFile(t, "ws.json", workspaceJSON)

	out, err := execute(t, runCompile, "", path)
	require.NoError(t, err)
	assert.Equal(t, "tcp =>\nxor(\"secret\")\n", out)
}

func TestCompileErrors(t *testing.T) {
	resetFlags(t)

	_, err := execute(t, runCompile, "", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = execute(t, runCompile, "", writeFile(t, "bad.json", "{"))
	assert.Error(t, err)

	cyclic := `{"nodes":[{"ref":"a","data":{"kind":"stage","name":"tee"}},{"ref":"b","data":{"kind":"stage","name":"tee"}}],
"edges":[{"from_node_ref":"a","to_node_ref":"b","data":{}},{"from_node_ref":"b","to_node_ref":"a","data":{}}]}`
	_, err = execute(t, runCompile, "", writeFile(t, "cycle.json", cyclic))
	assert.ErrorContains(t, err, "cycle")

	rootFlags.logLevel = "loud"
	_, err = execute(t, runCompile, "", writeFile(t, "ws.json", workspaceJSON))
	assert.Error(t, err)
}

func TestCatalogCommand(t *testing.T) {
	resetFlags(t)
	out, err := execute(t, runCatalog, "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 19)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, out, "stdin")
	assert.Regexp(t, `auth\s+auth\s+key,salt\s+-`, out)
	assert.Regexp(t, `stdout\s+stdio\s+-\s+sink`, out)
}
