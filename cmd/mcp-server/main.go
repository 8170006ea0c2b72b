package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sahilm/fuzzy"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/ads"
	"github.com/patrickwarner/adbridge/internal/observability"
)

type AdStateInput struct{}

// AdState mirrors the adbridge banner state response.
type AdState struct {
	Initialized        bool   `json:"initialized"`
	Phase              string `json:"phase"`
	Native             bool   `json:"native"`
	PlaceholderVisible bool   `json:"placeholder_visible"`
	Error              string `json:"error,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

type AdOperationInput struct {
	Operation string `json:"operation"`
}

type AppStateInput struct {
	IsActive bool `json:"is_active"`
}

type AppStateOutput struct {
	IsActive bool `json:"is_active"`
	Changed  bool `json:"changed"`
}

// BridgeServer exposes a running adbridge instance as MCP tools.
type BridgeServer struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewBridgeServer(baseURL string, timeout time.Duration, logger *zap.Logger) *BridgeServer {
	return &BridgeServer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (s *BridgeServer) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

// AdState implements the ad_state tool.
func (s *BridgeServer) AdState(ctx context.Context, req *mcp.CallToolRequest, _ AdStateInput) (*mcp.CallToolResult, AdState, error) {
	var out AdState
	if err := s.do(ctx, http.MethodGet, "/ads/state", nil, &out); err != nil {
		return nil, AdState{}, err
	}
	return nil, out, nil
}

// AdOperation implements the ad_operation tool. A rejected SDK call is not a
// tool error; it shows up in the Error and Kind fields.
func (s *BridgeServer) AdOperation(ctx context.Context, req *mcp.CallToolRequest, input AdOperationInput) (*mcp.CallToolResult, AdState, error) {
	op := ads.Op(strings.ToLower(strings.TrimSpace(input.Operation)))
	valid := false
	for _, known := range ads.Ops {
		if op == known {
			valid = true
			break
		}
	}
	if !valid {
		if guess := suggestOp(string(op)); guess != "" {
			return nil, AdState{}, fmt.Errorf("unknown operation %q, did you mean %q?", input.Operation, guess)
		}
		return nil, AdState{}, fmt.Errorf("unknown operation %q", input.Operation)
	}

	var out AdState
	if err := s.do(ctx, http.MethodPost, "/ads/"+string(op), nil, &out); err != nil {
		return nil, AdState{}, err
	}
	if out.Error != "" {
		s.logger.Info("banner operation rejected",
			zap.String("op", string(op)),
			zap.String("kind", out.Kind),
			zap.String("error", out.Error))
	}
	return nil, out, nil
}

// AppState implements the app_state tool.
func (s *BridgeServer) AppState(ctx context.Context, req *mcp.CallToolRequest, input AppStateInput) (*mcp.CallToolResult, AppStateOutput, error) {
	var out AppStateOutput
	body := map[string]bool{"is_active": input.IsActive}
	if err := s.do(ctx, http.MethodPost, "/app-state", body, &out); err != nil {
		return nil, AppStateOutput{}, err
	}
	return nil, out, nil
}

// suggestOp returns the closest operation name for a mistyped one.
func suggestOp(input string) string {
	if input == "" {
		return ""
	}
	matches := fuzzy.Find(input, opNames())
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func opNames() []string {
	names := make([]string, 0, len(ads.Ops))
	for _, op := range ads.Ops {
		names = append(names, string(op))
	}
	return names
}

func newMCPServer(bridge *BridgeServer) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adbridge",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ad_state",
		Description: "Read the banner lifecycle state: phase, platform and web placeholder visibility",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	}, bridge.AdState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ad_operation",
		Description: "Run a banner lifecycle operation and return the resulting state",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"operation": map[string]interface{}{
					"type":        "string",
					"enum":        opNames(),
					"description": "Lifecycle operation to run",
				},
			},
			"required": []string{"operation"},
		},
	}, bridge.AdOperation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "app_state",
		Description: "Report an app foreground/background transition to the screens listening for it",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"is_active": map[string]interface{}{
					"type":        "boolean",
					"description": "true when the app came to the foreground",
				},
			},
			"required": []string{"is_active"},
		},
	}, bridge.AppState)

	return server
}

func main() {
	// stdout carries the MCP stream, so logs go to stderr
	logger, err := observability.InitStderrLogger("adbridge-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	baseURL := os.Getenv("ADBRIDGE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8787"
	}
	logger.Info("Starting adbridge MCP server", zap.String("adbridge_url", baseURL))

	server := newMCPServer(NewBridgeServer(baseURL, 5*time.Second, logger))

	var logBuffer bytes.Buffer
	loggingTransport := &mcp.LoggingTransport{
		Transport: &mcp.StdioTransport{},
		Writer:    &logBuffer,
	}

	if err := server.Run(context.Background(), loggingTransport); err != nil {
		logger.Fatal("Server error", zap.Error(err), zap.String("mcp_logs", logBuffer.String()))
	}
}
