package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/pulse"
	"github.com/aretw0/pulse/pkg/domain"
	"github.com/aretw0/pulse/pkg/dsl"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	b := dsl.New()
	b.Add("flat").Constant(10).Channel("A", 1.0).Channel("B", "0.2")
	b.Add("scaled").Constant("d").Channel("A", "amp")
	loader, err := b.Build()
	require.NoError(t, err)

	eng, err := pulse.New("", pulse.WithLoader(loader))
	require.NoError(t, err)
	return NewServer(eng)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	StructuredContent json.RawMessage `json:"structuredContent"`
	IsError           bool            `json:"isError"`
	Content           []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func call(t *testing.T, s *Server, method string, params any) rpcResponse {
	t.Helper()
	p, err := json.Marshal(params)
	require.NoError(t, err)
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, p)

	out, err := json.Marshal(s.MCPServer().HandleMessage(context.Background(), json.RawMessage(msg)))
	require.NoError(t, err)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	return resp
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) toolResult {
	t.Helper()
	resp := call(t, s, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Nil(t, resp.Error)
	var res toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	return res
}

func TestToolsList(t *testing.T) {
	resp := call(t, newServer(t), "tools/list", map[string]any{})
	require.Nil(t, resp.Error)
	body := string(resp.Result)
	for _, name := range []string{"list_templates", "inspect_template", "sample_template"} {
		assert.Contains(t, body, name)
	}
}

func TestListTemplates(t *testing.T) {
	res := callTool(t, newServer(t), "list_templates", nil)
	require.False(t, res.IsError)
	var list TemplateList
	require.NoError(t, json.Unmarshal(res.StructuredContent, &list))
	assert.Equal(t, []string{"flat", "scaled"}, list.Templates)
}

func TestInspectTemplate(t *testing.T) {
	s := newServer(t)
	res := callTool(t, s, "inspect_template", map[string]any{"id": "scaled"})
	require.False(t, res.IsError)
	var in domain.Inspection
	require.NoError(t, json.Unmarshal(res.StructuredContent, &in))
	assert.Equal(t, []string{"amp", "d"}, in.Parameters)

	res = callTool(t, s, "inspect_template", map[string]any{"id": "ghost"})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, "template not found")
}

func TestSampleTemplate(t *testing.T) {
	s := newServer(t)
	res := callTool(t, s, "sample_template", map[string]any{"id": "flat", "rate": "10"})
	require.False(t, res.IsError, res.Content)
	var out SampleResult
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.Equal(t, 101, out.Samples)
	assert.Equal(t, "10", out.Duration)
	assert.Equal(t, 0.2, out.Values["B"][100])

	res = callTool(t, s, "sample_template", map[string]any{
		"id":         "scaled",
		"rate":       "1",
		"parameters": map[string]any{"d": 2, "amp": "1/4"},
	})
	require.False(t, res.IsError, res.Content)
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out))
	assert.Equal(t, []float64{0.25, 0.25, 0.25}, out.Values["A"])

	res = callTool(t, s, "sample_template", map[string]any{"id": "scaled", "rate": "1"})
	assert.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, "missing value for parameter(s) amp, d")
}

func TestResources(t *testing.T) {
	s := newServer(t)

	resp := call(t, s, "resources/read", map[string]any{"uri": TemplatesURI})
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), `[\"flat\",\"scaled\"]`)

	resp = call(t, s, "resources/read", map[string]any{"uri": TemplateURIPrefix + "flat"})
	require.Nil(t, resp.Error)
	assert.Contains(t, string(resp.Result), `\"kind\":\"constant\"`)
}
