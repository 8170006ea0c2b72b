package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patrickwarner/adbridge/internal/observability"
)

// PluginName is the bridge namespace of the ad plugin.
const PluginName = "AdMob"

// BridgeClient forwards banner calls to the native host's plugin bridge.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// BridgeError is returned when the native side rejects a call.
type BridgeError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *BridgeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: bridge returned status %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("%s: bridge returned status %d: %s", e.Method, e.StatusCode, e.Message)
}

// bridgeResponse is the error envelope sent by the native side.
type bridgeResponse struct {
	Error string `json:"error"`
}

// NewBridgeClient creates a client for the plugin bridge at baseURL.
func NewBridgeClient(baseURL string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *BridgeClient {
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  logger,
		metrics: metrics,
	}
}

var _ BannerSDK = (*BridgeClient)(nil)

func (c *BridgeClient) Initialize(ctx context.Context, opts InitOptions) error {
	return c.call(ctx, MethodInitialize, opts)
}

func (c *BridgeClient) ShowBanner(ctx context.Context, opts BannerOptions) error {
	return c.call(ctx, MethodShowBanner, opts)
}

func (c *BridgeClient) HideBanner(ctx context.Context) error {
	return c.call(ctx, MethodHideBanner, nil)
}

func (c *BridgeClient) ResumeBanner(ctx context.Context) error {
	return c.call(ctx, MethodResumeBanner, nil)
}

func (c *BridgeClient) RemoveBanner(ctx context.Context) error {
	return c.call(ctx, MethodRemoveBanner, nil)
}

// call posts one plugin invocation and maps the answer to an error.
func (c *BridgeClient) call(ctx context.Context, method string, body any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		c.metrics.RecordBridgeLatency(method, time.Since(start))
		c.metrics.IncrementBridgeCalls(method, outcome)
	}()

	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			outcome = "failure"
			return fmt.Errorf("marshal %s options: %w", method, err)
		}
	}

	url := fmt.Sprintf("%s/plugins/%s/%s", c.baseURL, PluginName, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "failure"
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close bridge response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "rejected"
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var br bridgeResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &br) == nil && br.Error != "" {
			msg = br.Error
		}
		return &BridgeError{Method: method, StatusCode: resp.StatusCode, Message: msg}
	}

	c.logger.Debug("bridge call completed",
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)))
	return nil
}
