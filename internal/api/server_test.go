package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/panel/internal/a2a"
	"github.com/hugo-lorenzo-mato/panel/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/events"
	"github.com/hugo-lorenzo-mato/panel/internal/service"
	"github.com/hugo-lorenzo-mato/panel/internal/service/workflow"
	"github.com/hugo-lorenzo-mato/panel/internal/testutil"
)

const testDocument = "Setup was easy and the battery lasts for days. Great value for the price."

type testEnv struct {
	server  *Server
	oracle  *testutil.MockOracle
	metrics *service.MetricsCollector
	bus     *events.EventBus
	store   core.ReportStore
}

func testDefaults() core.WorkflowConfig {
	cfg := core.DefaultWorkflowConfig()
	cfg.PerCallTimeout = 2 * time.Second
	cfg.PerCallMaxRetries = 0
	cfg.RetryDelay = time.Millisecond
	cfg.Advise = false
	return cfg
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()
	env := &testEnv{
		oracle:  testutil.NewMockOracle(),
		metrics: service.NewMetricsCollector(),
		bus:     events.New(64),
	}
	t.Cleanup(env.bus.Close)

	for _, role := range core.DefaultRoles {
		env.oracle.WithVerdict(role, core.SentimentPositive, 0.8)
	}
	engine, err := workflow.NewOrchestrator(env.oracle,
		workflow.WithMetrics(env.metrics),
		workflow.WithEventBus(env.bus),
	)
	require.NoError(t, err)

	opts := []ServerOption{
		WithDefaults(testDefaults()),
		WithMetrics(env.metrics),
		WithEventBus(env.bus),
		WithVersion("test"),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}
	if withStore {
		st, err := store.NewJSONReportStore(t.TempDir())
		require.NoError(t, err)
		env.store = st
		opts = append(opts, WithStore(st))
	}
	env.server = NewServer(engine, opts...)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestListRoles(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/v1/roles", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[RolesResponse](t, rec)
	assert.Equal(t, core.DefaultRoles, body.Defaults)
	names := make([]string, 0, len(body.Roles))
	for _, r := range body.Roles {
		names = append(names, r.Name)
	}
	assert.Contains(t, names, core.RoleBusinessAdvisor)
	assert.Contains(t, names, core.RoleTechnical)
}

func TestAnalysisLifecycle(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/api/v1/analyses", CreateAnalysisRequest{Document: testDocument})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.StoredReport](t, rec)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/analyses/"+created.ID, rec.Header().Get("Location"))
	require.NotNil(t, created.Report)
	assert.Equal(t, core.SentimentPositive, created.Report.FinalSentiment)
	assert.True(t, created.Report.ConsensusReached)
	assert.Len(t, created.Report.Rounds, 1)
	assert.Equal(t, core.DefaultRoles, created.Roles)

	rec = env.do(t, http.MethodGet, "/api/v1/analyses/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[core.StoredReport](t, rec)
	assert.Equal(t, created.DocumentDigest, got.DocumentDigest)

	rec = env.do(t, http.MethodGet, "/api/v1/analyses?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[ListAnalysesResponse](t, rec)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, created.ID, list.Reports[0].ID)

	rec = env.do(t, http.MethodDelete, "/api/v1/analyses/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analyses/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, core.CodeReportNotFound, decode[errorResponse](t, rec).Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/analyses/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAnalysis_Overrides(t *testing.T) {
	env := newTestEnv(t, false)
	rounds := 0
	rec := env.do(t, http.MethodPost, "/api/v1/analyses", CreateAnalysisRequest{
		Document: testDocument,
		Config: &ConfigOverrides{
			Roles:               []string{core.RoleQuality, core.RoleTechnical},
			MaxDiscussionRounds: &rounds,
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.StoredReport](t, rec)

	assert.Equal(t, []string{core.RoleQuality, core.RoleTechnical}, created.Roles)
	assert.Equal(t, 1, env.oracle.CallCount(core.RoleQuality))
	assert.Equal(t, 0, env.oracle.CallCount(core.RoleBusiness))
}

func TestCreateAnalysis_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{"empty document", CreateAnalysisRequest{Document: "   "}, core.CodeEmptyDocument},
		{"unknown role", CreateAnalysisRequest{Document: testDocument, Config: &ConfigOverrides{Roles: []string{"qualty"}}}, core.CodeUnknownRole},
		{"bad duration", CreateAnalysisRequest{Document: testDocument, Config: &ConfigOverrides{PerCallTimeout: "soon"}}, core.CodeInvalidTimeout},
		{"unknown field", `{"document": "x", "colour": "red"}`, core.CodeInvalidConfig},
		{"empty roles", `{"document": "The battery lasts for days.", "config": {"roles": []}}`, core.CodeNoRoles},
		{"empty body", "", core.CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			rec := env.do(t, http.MethodPost, "/api/v1/analyses", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, rec).Code)
			assert.Empty(t, env.oracle.Calls(), "rejected input must not reach the oracle")
		})
	}
}

func TestUnknownRole_SuggestsAlternatives(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/api/v1/analyses", CreateAnalysisRequest{
		Document: testDocument,
		Config:   &ConfigOverrides{Roles: []string{"technicl"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "did you mean")
}

func TestListAnalyses_BadLimit(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/v1/analyses?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreRoutes_WithoutStore(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{"/api/v1/analyses", "/api/v1/analyses/abc"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/api/v1/analyses", CreateAnalysisRequest{Document: testDocument})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[service.MetricsSnapshot](t, rec)
	assert.Equal(t, 1, snap.Analyses.Completed)
	assert.Len(t, snap.Roles, len(core.DefaultRoles))
}

func TestHTTPStatusForDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
		ok   bool
	}{
		{core.ErrValidation(core.CodeNoRoles, "x"), http.StatusBadRequest, true},
		{core.ErrNotFound("report", "x"), http.StatusNotFound, true},
		{core.ErrRateLimit("x"), http.StatusTooManyRequests, true},
		{core.ErrTimeout("x"), http.StatusGatewayTimeout, true},
		{core.ErrState(core.CodeStoreFailed, "x"), http.StatusInternalServerError, true},
		{errors.New("plain"), 0, false},
	}
	for _, tt := range tests {
		got, ok := httpStatusForDomainError(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.Equal(t, tt.ok, ok, tt.err.Error())
	}
}

func TestRPC_TasksSend(t *testing.T) {
	env := newTestEnv(t, true)
	req := a2a.NewTaskSendRequest("req-1", "task-1", testDocument, nil)

	rec := env.do(t, http.MethodPost, "/rpc", req)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[a2a.Response](t, rec)

	require.Nil(t, resp.Error)
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, "completed", resp.Result.Status.State)
	text, err := resp.Result.Text()
	require.NoError(t, err)

	var report core.ConsensusReport
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.Equal(t, core.SentimentPositive, report.FinalSentiment)

	id, _ := resp.Result.Metadata["report_id"].(string)
	_, err = env.store.Get(context.Background(), id)
	assert.NoError(t, err, "rpc analyses are persisted")
}

func TestRPC_Errors(t *testing.T) {
	unknownRole := a2a.NewTaskSendRequest("r", "t", testDocument, map[string]any{
		"config": map[string]any{"roles": []string{"nobody"}},
	})
	badMethod := a2a.NewTaskSendRequest("r", "t", testDocument, nil)
	badMethod.Method = "tasks/cancel"
	noText := a2a.NewTaskSendRequest("r", "t", "", nil)
	badMeta := a2a.NewTaskSendRequest("r", "t", testDocument, map[string]any{
		"config": map[string]any{"colour": "red"},
	})

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"parse error", "{not json", a2a.CodeParseError},
		{"method not found", badMethod, a2a.CodeMethodNotFound},
		{"no text", noText, a2a.CodeInvalidParams},
		{"unknown role", unknownRole, a2a.CodeInvalidParams},
		{"bad config metadata", badMeta, a2a.CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false)
			rec := env.do(t, http.MethodPost, "/rpc", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[a2a.Response](t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Result)
		})
	}
}

func TestAgentCard(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/.well-known/agent.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	card := decode[a2a.AgentCard](t, rec)
	assert.Equal(t, "panel", card.Name)
	assert.Equal(t, "http://example.com/rpc", card.URL)
	require.Len(t, card.Skills, 1)

	env.server = NewServer(env.server.engine, WithPublicURL("https://panel.example.org/"))
	card = decode[a2a.AgentCard](t, env.do(t, http.MethodGet, "/.well-known/agent.json", nil))
	assert.Equal(t, "https://panel.example.org/rpc", card.URL)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSSE_StreamsEvents(t *testing.T) {
	env := newTestEnv(t, false)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/events?analysis=a-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	readEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := readEvent()
	require.Equal(t, "connected", name)

	env.bus.Publish(events.NewStateChangedEvent("other", core.StateDispatch, core.StateEvaluate, 0))
	env.bus.Publish(events.NewStateChangedEvent("a-1", core.StateDispatch, core.StateEvaluate, 0))

	name, data := readEvent()
	assert.Equal(t, events.TypeStateChanged, name)
	var ev events.StateChangedEvent
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "a-1", ev.Analysis, "events for other analyses are filtered out")
	assert.Equal(t, core.StateEvaluate, ev.To)
}
