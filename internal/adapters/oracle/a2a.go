package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/panel/internal/a2a"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
)

// maxResponseBytes caps how much of a peer's answer is read.
const maxResponseBytes = 4 << 20

// A2AOracle sends each request as a JSON-RPC tasks/send call to the
// specialist server registered for the role.
type A2AOracle struct {
	client    *http.Client
	endpoint  string
	endpoints map[string]string
	headers   map[string]string
	logger    *logging.Logger
}

// A2AOption configures an A2AOracle.
type A2AOption func(*A2AOracle)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) A2AOption {
	return func(o *A2AOracle) {
		o.client = c
	}
}

// WithRoleEndpoint routes role to its own server.
func WithRoleEndpoint(role, endpoint string) A2AOption {
	return func(o *A2AOracle) {
		o.endpoints[role] = endpoint
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) A2AOption {
	return func(o *A2AOracle) {
		o.headers[key] = value
	}
}

// WithA2ALogger sets the logger.
func WithA2ALogger(l *logging.Logger) A2AOption {
	return func(o *A2AOracle) {
		o.logger = l
	}
}

// NewA2AOracle creates an oracle that posts to endpoint unless a role has
// its own endpoint.
func NewA2AOracle(endpoint string, opts ...A2AOption) *A2AOracle {
	o := &A2AOracle{
		// Deadlines come from the caller's context.
		client:    &http.Client{},
		endpoint:  endpoint,
		endpoints: make(map[string]string),
		headers:   make(map[string]string),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements core.Oracle.
func (o *A2AOracle) Name() string {
	return TransportA2A
}

// EndpointFor returns the RPC endpoint used for role.
func (o *A2AOracle) EndpointFor(role string) string {
	if ep, ok := o.endpoints[role]; ok && ep != "" {
		return ep
	}
	return o.endpoint
}

// Execute implements core.Oracle.
func (o *A2AOracle) Execute(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
	endpoint := o.EndpointFor(req.Role)
	if endpoint == "" {
		return nil, core.ErrOracle(core.CodeOracleRejected, fmt.Sprintf("no endpoint configured for role %q", req.Role)).
			WithDetail("role", req.Role)
	}

	rpcReq := a2a.NewTaskSendRequest(uuid.NewString(), uuid.NewString(), req.Prompt, map[string]any{
		"agent_role": req.Role,
		"round":      req.Round,
	})
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.ErrOracle(core.CodeOracleRejected, "building request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range o.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrOracle(core.CodeOracleUnavailable, "calling specialist server").
			WithCause(err).
			WithDetail("endpoint", endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrOracle(core.CodeOracleUnavailable, "reading response").WithCause(err)
	}
	if err := classifyStatus(resp.StatusCode, data); err != nil {
		o.logger.Warn("a2a: specialist server error",
			"role", req.Role,
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
		return nil, err
	}

	var rpcResp a2a.Response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, core.ErrParse("specialist server returned invalid JSON-RPC").WithCause(err)
	}
	if rpcResp.Error != nil {
		return nil, core.ErrOracle(core.CodeOracleUnavailable, rpcResp.Error.Message).
			WithCause(rpcResp.Error).
			WithDetail("rpc_code", rpcResp.Error.Code)
	}
	text, err := rpcResp.Result.Text()
	if err != nil {
		return nil, core.ErrParse("specialist server returned no text").WithCause(err)
	}

	o.logger.Debug("a2a: specialist answered",
		"role", req.Role,
		"round", req.Round,
		"bytes", len(text),
		"duration", time.Since(start),
	)
	return &core.OracleResult{Output: text, Duration: time.Since(start)}, nil
}

// classifyStatus maps HTTP failures onto domain errors: 429 is a rate limit,
// 5xx is retryable and any other 4xx is final.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := fmt.Sprintf("specialist server returned %d", status)
	if snippet := strings.TrimSpace(string(body)); snippet != "" {
		msg += ": " + core.Truncate(snippet, 200)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return core.ErrRateLimit(msg).WithDetail("status", status)
	case status >= 500:
		return core.ErrOracle(core.CodeOracleUnavailable, msg).WithDetail("status", status)
	default:
		err := core.ErrOracle(core.CodeOracleRejected, msg).WithDetail("status", status)
		err.Retryable = false
		return err
	}
}

// Ping checks GET /health on every distinct server.
func (o *A2AOracle) Ping(ctx context.Context) error {
	seen := make(map[string]bool)
	targets := append([]string{o.endpoint}, mapValues(o.endpoints)...)
	for _, ep := range targets {
		if ep == "" || seen[ep] {
			continue
		}
		seen[ep] = true
		if err := o.ping(ctx, ep); err != nil {
			return err
		}
	}
	return nil
}

func (o *A2AOracle) ping(ctx context.Context, endpoint string) error {
	healthURL, err := HealthURL(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return core.ErrOracle(core.CodeOracleUnavailable, "health check failed").
			WithCause(err).
			WithDetail("endpoint", healthURL)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		return core.ErrOracle(core.CodeOracleUnavailable,
			fmt.Sprintf("health check returned %d", resp.StatusCode)).WithDetail("endpoint", healthURL)
	}
	return nil
}

// HealthURL derives the health endpoint of the server behind an RPC URL:
// http://host:8001/rpc becomes http://host:8001/health.
func HealthURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	base := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/rpc")
	u.Path = base + "/health"
	u.RawQuery = ""
	return u.String(), nil
}

func mapValues(m map[string]string) []string {
	return slices.Sorted(maps.Values(m))
}
