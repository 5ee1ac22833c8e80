package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/meikuraledutech/blockpipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocks(t *testing.T) {
	k := newKeyedLocks()
	counts := map[string]*int{"a": new(int), "b": new(int)}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		id := "a"
		if i%2 == 1 {
			id = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock(id)
			defer unlock()
			*counts[id]++
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, *counts["a"])
	assert.Equal(t, 25, *counts["b"])
	assert.Equal(t, 0, k.len())
}

func TestConcurrentEditsKeepEveryBlock(t *testing.T) {
	app := newTestApp(t)
	ws := createWorkspace(t, app)

	const n = 16
	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/workspaces/"+ws+"/blocks", strings.NewReader(`{"stage":"tcp"}`))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if assert.NoError(t, err) {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()
	for _, status := range statuses {
		assert.Equal(t, http.StatusCreated, status)
	}

	status, data := call(t, app, http.MethodGet, "/workspaces/"+ws, "")
	require.Equal(t, http.StatusOK, status)
	var g blockpipe.Graph
	require.NoError(t, json.Unmarshal(data, &g))
	assert.Len(t, g.Nodes, n)
}
