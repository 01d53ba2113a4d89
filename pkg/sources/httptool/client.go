// Package httptool is the generic HTTP tool client (C2) used for every
// source that speaks neither client-go nor a REST API the other clients
// already model: Coroot, Gatus, AdGuard, Home Assistant, Tasmota,
// OPNsense, Cloudflare, Keep, Grafana, and the runbook catalog. It never
// surfaces an error to the caller — syncers rely on an empty result
// signaling "nothing to sync this cycle" (spec §4.2).
package httptool

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/gojq"
	"github.com/sony/gobreaker"
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/config"
	"github.com/charlieshreck/homelab-graph/internal/logging"
)

// Client is the capability-typed HTTP tool client.
type Client interface {
	// CallTool issues a JSON-RPC tools/call request against server's
	// `<base>/mcp` endpoint and returns the unwrapped structured payload.
	// Returns an empty map, never an error, on any failure.
	CallTool(ctx context.Context, server, tool string, args map[string]interface{}) map[string]interface{}
	// CallREST issues a plain GET against baseURL+path and decodes the
	// response body as JSON. Returns an empty map, never an error, on any
	// failure.
	CallREST(ctx context.Context, baseURL, path string) map[string]interface{}
}

// RESTClient implements Client over net/http.
type RESTClient struct {
	http     *http.Client
	servers  map[string]string
	breakers map[string]*gobreaker.CircuitBreaker
	log      *logrus.Logger
}

// NewRESTClient wires one named server endpoint per cfg.Servers.
func NewRESTClient(cfg config.HTTPToolsConfig, log *logrus.Logger) *RESTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &RESTClient{
		http:     &http.Client{Timeout: timeout},
		servers:  make(map[string]string),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		log:      log,
	}
	for _, s := range cfg.Servers {
		c.servers[s.Name] = s.BaseURL
		c.breakers[s.Name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "httptool-" + s.Name,
			MaxRequests: 1,
			Timeout:     20 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		})
	}
	return c
}

type jsonRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      int                    `json:"id"`
	Method  string                 `json:"method"`
	Params  jsonRPCParams          `json:"params"`
}

type jsonRPCParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (c *RESTClient) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) map[string]interface{} {
	baseURL, ok := c.servers[server]
	if !ok {
		c.log.WithFields(logging.NewFields().Component("httptool").Resource("server", server).Fields()).
			Warn("unknown tool server")
		return map[string]interface{}{}
	}

	reqBody, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  jsonRPCParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return map[string]interface{}{}
	}

	breaker, ok := c.breakers[server]
	if !ok {
		return map[string]interface{}{}
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/mcp", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json, text/event-stream")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("tool server %s returned %d", server, resp.StatusCode)
		}

		envelope, err := readEnvelope(resp)
		if err != nil {
			return nil, err
		}
		return unwrapToolResult(envelope)
	})
	if err != nil {
		c.log.WithFields(logging.NewFields().Component("httptool").Resource("tool", tool).Source(server).Error(err).Fields()).
			Warn("tool call failed, returning empty result")
		return map[string]interface{}{}
	}

	out, ok := result.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return out
}

func (c *RESTClient) CallREST(ctx context.Context, baseURL, path string) map[string]interface{} {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return map[string]interface{}{}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logging.NewFields().Component("httptool").Resource("url", baseURL+path).Error(err).Fields()).
			Warn("rest call failed, returning empty result")
		return map[string]interface{}{}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return map[string]interface{}{}
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return map[string]interface{}{}
	}
	return out
}

// readEnvelope extracts the JSON-RPC response body regardless of whether
// the server framed it as a plain JSON document or a single-frame
// text/event-stream response (`data: {json}`).
func readEnvelope(resp *http.Response) (map[string]interface{}, error) {
	contentType := resp.Header.Get("Content-Type")

	if strings.Contains(contentType, "text/event-stream") {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if strings.HasPrefix(line, "data:") {
				payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				var envelope map[string]interface{}
				if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
					return nil, err
				}
				return envelope, nil
			}
		}
		return nil, fmt.Errorf("no data frame in event-stream response")
	}

	var envelope map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// unwrapToolResult pulls `.result.content[0].text` out of the JSON-RPC
// envelope via gojq, then attempts to parse that text as a JSON object; if
// it isn't one, it is wrapped in a one-key "value" map, as a float64 when
// it parses as a number and as the literal string otherwise.
func unwrapToolResult(envelope map[string]interface{}) (map[string]interface{}, error) {
	query, err := gojq.Parse(".result.content[0].text")
	if err != nil {
		return nil, err
	}
	iter := query.Run(envelope)

	v, ok := iter.Next()
	if !ok {
		return map[string]interface{}{}, nil
	}
	if err, ok := v.(error); ok {
		return nil, err
	}

	text, ok := v.(string)
	if !ok {
		// content[0].text that is already a decoded object is returned
		// as is; any other non-string value (including null when the path
		// is absent) is wrapped under "value".
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
		return map[string]interface{}{"value": v}, nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed, nil
	}
	// Not valid JSON: treat it as a literal scalar.
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return map[string]interface{}{"value": f}, nil
	}
	return map[string]interface{}{"value": text}, nil
}
