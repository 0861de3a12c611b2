package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upstarter/engram/internal/api/mcp"
)

func TestHandleRequest_ParseError(t *testing.T) {
	s := newTestServer(t)
	respJSON, err := s.HandleRequest(context.Background(), []byte("not json"))
	require.NoError(t, err)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(respJSON, &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, mcp.ErrCodeParseError, resp.Error.Code)
}

func TestHandleRequest_WrongJSONRPCVersion(t *testing.T) {
	s := newTestServer(t)
	req := mcp.JSONRPCRequest{JSONRPC: "1.0", Method: "initialize", ID: 1}
	reqJSON, err := json.Marshal(req)
	require.NoError(t, err)

	respJSON, err := s.HandleRequest(context.Background(), reqJSON)
	require.NoError(t, err)

	var resp mcp.JSONRPCResponse
	require.NoError(t, json.Unmarshal(respJSON, &resp))
	require.NotNil(t, resp.Error)
	require.Equal(t, mcp.ErrCodeInvalidRequest, resp.Error.Code)
}

func TestConsolidateTool_FindCandidates(t *testing.T) {
	s := newTestServer(t)

	contents := []string{
		"pattern: always validate input at the boundary",
		"pattern: validate input at every system boundary",
		"pattern: boundary validation of all external input",
	}
	for _, c := range contents {
		result := callTool(t, s, "remember", map[string]interface{}{
			"content":     c,
			"memory_type": "pattern",
			"confirmed":   true,
		})
		require.False(t, result.IsError)
	}

	candidates := callTool(t, s, "consolidate", map[string]interface{}{
		"threshold":   0.1,
		"min_cluster": 2,
	})
	require.False(t, candidates.IsError)
	require.Contains(t, candidates.Content[0].Text, "✓")
}

func TestConsolidateTool_MergeRequiresContent(t *testing.T) {
	s := newTestServer(t)
	result := callTool(t, s, "consolidate", map[string]interface{}{
		"ids": []string{"mem_000000000001", "mem_000000000002"},
	})
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "content is required")
}

func TestRememberTool_FallsBackToActiveProjectFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	spcDir := filepath.Join(home, ".spc")
	require.NoError(t, os.MkdirAll(spcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(spcDir, "active_project"), []byte(`{"name":"widget"}`), 0o644))

	s := newTestServer(t)
	result := callTool(t, s, "remember", map[string]interface{}{
		"content":   "fact: widgets ship on Tuesdays",
		"confirmed": true,
	})
	require.False(t, result.IsError)

	graphResult := callTool(t, s, "recall", map[string]interface{}{
		"query":   "widgets ship",
		"project": "widget",
	})
	require.False(t, graphResult.IsError)
	require.Contains(t, graphResult.Content[0].Text, "widgets ship on Tuesdays")
}

func TestEntityTool_RequiresNameAndType(t *testing.T) {
	s := newTestServer(t)
	result := callTool(t, s, "entity", map[string]interface{}{
		"entity_type": "goal",
	})
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "required")
}

func TestRelatedTool_RequiresID(t *testing.T) {
	s := newTestServer(t)
	result := callTool(t, s, "related", map[string]interface{}{})
	require.True(t, result.IsError)
}
