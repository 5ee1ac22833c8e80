package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/blockpipe"
	"github.com/meikuraledutech/blockpipe/catalog"
	"github.com/meikuraledutech/blockpipe/internal/logging"
	"github.com/meikuraledutech/blockpipe/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	return newApp(memory.New(), catalog.Default(), logging.NewNop())
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func createWorkspace(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/workspaces", `{}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	var g blockpipe.Graph
	require.NoError(t, json.Unmarshal(body, &g))
	require.NotEmpty(t, g.ID)
	return g.ID
}

func addBlock(t *testing.T, app *fiber.App, wsID, body string) blockResponse {
	t.Helper()
	status, data := call(t, app, http.MethodPost, "/workspaces/"+wsID+"/blocks", body)
	require.Equal(t, http.StatusCreated, status, string(data))
	var resp blockResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestEditAndCompile(t *testing.T) {
	app := newTestApp(t)
	ws := createWorkspace(t, app)

	tcp := addBlock(t, app, ws, `{"stage":"tcp"}`)
	xor := addBlock(t, app, ws, `{"stage":"xor"}`)
	assert.Equal(t, []string{"arg_0"}, xor.Sockets)
	leaf := addBlock(t, app, ws, `{"key":"","value":"secret"}`)
	assert.Equal(t, "argument", leaf.Kind)

	status, _ := call(t, app, http.MethodPost, "/workspaces/"+ws+"/links",
		`{"from":"`+tcp.ID+`","to":"`+xor.ID+`"}`)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, http.MethodPost, "/workspaces/"+ws+"/links",
		`{"from":"`+xor.ID+`","to":"`+leaf.ID+`","socket":"arg_0"}`)
	require.Equal(t, http.StatusNoContent, status)

	status, text := call(t, app, http.MethodGet, "/workspaces/"+ws+"/compile", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tcp =>\nxor(\"secret\")\n", string(text))

	status, text = call(t, app, http.MethodGet, "/workspaces/"+ws+"/compile?compact=true", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `tcp=>xor("secret") `, string(text))

	status, _ = call(t, app, http.MethodPut, "/workspaces/"+ws+"/blocks/"+leaf.ID,
		`{"key":"k ey","value":"7"}`)
	require.Equal(t, http.StatusNoContent, status)
	_, text = call(t, app, http.MethodGet, "/workspaces/"+ws+"/compile", "")
	assert.Equal(t, "tcp =>\nxor(key = 7)\n", string(text))

	status, _ = call(t, app, http.MethodDelete, "/workspaces/"+ws+"/links/"+xor.ID, "")
	require.Equal(t, http.StatusNoContent, status)
	_, text = call(t, app, http.MethodGet, "/workspaces/"+ws+"/compile", "")
	assert.Equal(t, "tcp\nxor(key = 7)\n", string(text))

	status, _ = call(t, app, http.MethodDelete, "/workspaces/"+ws+"/blocks/"+tcp.ID, "")
	require.Equal(t, http.StatusNoContent, status)
	_, text = call(t, app, http.MethodGet, "/workspaces/"+ws+"/compile", "")
	assert.Equal(t, "xor(key = 7)\n", string(text))
}

func TestProbeAndFinalize(t *testing.T) {
	app := newTestApp(t)
	ws := createWorkspace(t, app)
	auth := addBlock(t, app, ws, `{"stage":"auth"}`)
	assert.Equal(t, []string{"arg_0", "arg_1"}, auth.Sockets)

	probe := `{"block":"` + auth.ID + `","socket":"arg_1","target":"dragged"}`
	status, data := call(t, app, http.MethodPost, "/workspaces/"+ws+"/probe", probe)
	require.Equal(t, http.StatusOK, status, string(data))
	var resp probeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.True(t, resp.Inserted)
	assert.Equal(t, []string{"arg_0", "arg_1", "arg_2"}, resp.Sockets)

	_, data = call(t, app, http.MethodPost, "/workspaces/"+ws+"/probe", probe)
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Inserted)
	assert.Equal(t, []string{"arg_0", "arg_1", "arg_2"}, resp.Sockets)

	status, data = call(t, app, http.MethodPost, "/workspaces/"+ws+"/finalize", `{"blocks":["`+auth.ID+`"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"removed":1}`, string(data))

	_, data = call(t, app, http.MethodPost, "/workspaces/"+ws+"/finalize", "")
	assert.JSONEq(t, `{"removed":0}`, string(data))

	status, data = call(t, app, http.MethodPost, "/workspaces/"+ws+"/probe",
		`{"block":"`+auth.ID+`","socket":"arg_1"}`)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Inserted)

	_, metrics := call(t, app, http.MethodGet, "/metrics", "")
	assert.Contains(t, string(metrics), "blockpipe_probe_insertions_total 1")
	assert.Contains(t, string(metrics), "blockpipe_finalized_sockets_total 1")
}

func TestWorkspaceDocument(t *testing.T) {
	app := newTestApp(t)
	doc := `{
		"id": "doc-1",
		"nodes": [
			{"ref": "in", "data": {"kind": "stage", "name": "stdin"}},
			{"ref": "out", "data": {"kind": "stage", "name": "stdout"}}
		],
		"edges": [{"from_node_ref": "in", "to_node_ref": "out", "data": {}}]
	}`
	status, data := call(t, app, http.MethodPost, "/workspaces", doc)
	require.Equal(t, http.StatusCreated, status, string(data))

	status, data = call(t, app, http.MethodGet, "/workspaces/doc-1", "")
	require.Equal(t, http.StatusOK, status)
	var g blockpipe.Graph
	require.NoError(t, json.Unmarshal(data, &g))
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	_, text := call(t, app, http.MethodGet, "/workspaces/doc-1/compile", "")
	assert.Equal(t, "stdin =>\nstdout\n", string(text))

	_, data = call(t, app, http.MethodGet, "/workspaces", "")
	assert.JSONEq(t, `["doc-1"]`, string(data))

	status, _ = call(t, app, http.MethodDelete, "/workspaces/doc-1", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, http.MethodGet, "/workspaces/doc-1", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestErrors(t *testing.T) {
	app := newTestApp(t)
	ws := createWorkspace(t, app)
	stdin := addBlock(t, app, ws, `{"stage":"stdin"}`)
	tcp := addBlock(t, app, ws, `{"stage":"tcp"}`)
	leaf := addBlock(t, app, ws, `{"value":"1"}`)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown stage", http.MethodPost, "/workspaces/" + ws + "/blocks", `{"stage":"warp"}`, 422},
		{"bad body", http.MethodPost, "/workspaces/" + ws + "/blocks", `{`, 400},
		{"unknown workspace", http.MethodGet, "/workspaces/missing/compile", "", 404},
		{"unknown workspace edit", http.MethodPost, "/workspaces/missing/blocks", `{"stage":"tcp"}`, 404},
		{"unknown socket", http.MethodPost, "/workspaces/" + ws + "/links",
			`{"from":"` + tcp.ID + `","to":"` + leaf.ID + `","socket":"arg_9"}`, 404},
		{"source only successor", http.MethodPost, "/workspaces/" + ws + "/links",
			`{"from":"` + tcp.ID + `","to":"` + stdin.ID + `"}`, 422},
		{"stage in socket", http.MethodPost, "/workspaces/" + ws + "/links",
			`{"from":"` + tcp.ID + `","to":"` + stdin.ID + `","socket":"arg_0"}`, 422},
		{"edit a stage as argument", http.MethodPut, "/workspaces/" + ws + "/blocks/" + tcp.ID, `{"key":"a"}`, 422},
		{"delete unknown block", http.MethodDelete, "/workspaces/" + ws + "/blocks/ghost", "", 404},
		{"cycle", http.MethodPost, "/workspaces", `{"nodes":[{"ref":"a","data":{"kind":"stage","name":"tee"}}],
			"edges":[{"from_node_ref":"a","to_node_ref":"a","data":{}}]}`, 422},
		{"unknown ref", http.MethodPost, "/workspaces", `{"nodes":[],
			"edges":[{"from_node_ref":"a","to_node_ref":"b","data":{}}]}`, 422},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
		})
	}
}

func TestCatalogAndSchema(t *testing.T) {
	app := newTestApp(t)

	status, data := call(t, app, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, status)
	var stages []blockpipe.StageDef
	require.NoError(t, json.Unmarshal(data, &stages))
	assert.Len(t, stages, 18)

	status, _ = call(t, app, http.MethodPost, "/schema", "")
	assert.Equal(t, http.StatusOK, status)
	createWorkspace(t, app)
	status, _ = call(t, app, http.MethodDelete, "/schema", "")
	assert.Equal(t, http.StatusOK, status)
	_, data = call(t, app, http.MethodGet, "/workspaces", "")
	assert.JSONEq(t, `[]`, string(data))
}
