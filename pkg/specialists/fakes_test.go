package specialists_test

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/pkg/llm"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeHTTPToolClient implements httptool.Client, keyed by server+tool so a
// test can program distinct responses per MCP server.
type fakeHTTPToolClient struct {
	responses map[string]map[string]interface{}
	calls     []string
}

func newFakeHTTPToolClient() *fakeHTTPToolClient {
	return &fakeHTTPToolClient{responses: make(map[string]map[string]interface{})}
}

func (f *fakeHTTPToolClient) on(server, tool string, payload map[string]interface{}) *fakeHTTPToolClient {
	f.responses[server+"/"+tool] = payload
	return f
}

func (f *fakeHTTPToolClient) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) map[string]interface{} {
	f.calls = append(f.calls, server+"/"+tool)
	if payload, ok := f.responses[server+"/"+tool]; ok {
		return payload
	}
	return map[string]interface{}{}
}

func (f *fakeHTTPToolClient) CallREST(ctx context.Context, baseURL, path string) map[string]interface{} {
	return map[string]interface{}{}
}

// fakeLLMClient returns a fixed response, or an error, for every Complete call.
type fakeLLMClient struct {
	response string
	err      error
}

func (f *fakeLLMClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f.response, f.err
}

var _ llm.Client = (*fakeLLMClient)(nil)
