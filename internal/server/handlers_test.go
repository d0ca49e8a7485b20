package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParam(t *testing.T) {
	assert.Nil(t, splitParam(""))
	assert.Equal(t, []string{"A"}, splitParam("A"))
	assert.Equal(t, []string{"A", "B"}, splitParam("A,B"))
	assert.Equal(t, []string{"A", "B"}, splitParam(" A , B ,"))
}

func TestSubgraphParams(t *testing.T) {
	srv := testServer(t)
	snap := srv.current.Load()
	require.NotNil(t, snap)

	// No filters returns the snapshot graph itself
	req := httptest.NewRequest("GET", "/api/query", nil)
	sub, err := srv.subgraph(snap, req)
	require.NoError(t, err)
	assert.Same(t, snap.Graph, sub)

	// A table filter narrows the view
	req = httptest.NewRequest("GET", "/api/query?tables=ETL_AUDIT_LOG&mode=impacted_by", nil)
	sub, err = srv.subgraph(snap, req)
	require.NoError(t, err)
	assert.NotSame(t, snap.Graph, sub)
	assert.Equal(t, 4, sub.NodeCount())

	// Unknown modes are rejected
	req = httptest.NewRequest("GET", "/api/query?mode=sideways", nil)
	_, err = srv.subgraph(snap, req)
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, 418, map[string]string{"k": "v"})

	require.Equal(t, 418, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v", body["k"])
}
