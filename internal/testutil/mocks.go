package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
)

// OracleFunc answers one oracle request.
type OracleFunc func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error)

// MockOracle implements core.Oracle with scripted per-role answers.
type MockOracle struct {
	name        string
	defaultFunc OracleFunc
	roleFuncs   map[string]OracleFunc
	roundFuncs  map[string]map[int]OracleFunc
	pingFunc    func(context.Context) error
	minLatency  time.Duration
	maxLatency  time.Duration
	rng         *rand.Rand
	calls       []MockCall
	mu          sync.Mutex
}

// MockCall records a call to the mock.
type MockCall struct {
	Role      string
	Round     int
	Prompt    string
	Prior     *core.PriorContext
	Timestamp time.Time
}

// NewMockOracle creates a mock that answers neutral(0.5) for every role.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		name:       "mock",
		roleFuncs:  make(map[string]OracleFunc),
		roundFuncs: make(map[string]map[int]OracleFunc),
		rng:        rand.New(rand.NewSource(1)),
		defaultFunc: func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
			return Answer(VerdictJSON(core.SentimentNeutral, 0.5, "mock default")), nil
		},
	}
}

// Name returns the mock name.
func (m *MockOracle) Name() string {
	return m.name
}

// Ping mocks availability check.
func (m *MockOracle) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// Execute records the call, waits for the configured latency and answers.
func (m *MockOracle) Execute(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{
		Role:      req.Role,
		Round:     req.Round,
		Prompt:    req.Prompt,
		Prior:     req.Prior,
		Timestamp: time.Now(),
	})
	fn := m.defaultFunc
	if byRound, ok := m.roundFuncs[req.Role]; ok {
		if f, ok := byRound[req.Round]; ok {
			fn = f
		} else if f, ok := m.roleFuncs[req.Role]; ok {
			fn = f
		}
	} else if f, ok := m.roleFuncs[req.Role]; ok {
		fn = f
	}
	latency := m.minLatency
	if m.maxLatency > m.minLatency {
		latency += time.Duration(m.rng.Int63n(int64(m.maxLatency - m.minLatency)))
	}
	m.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return fn(ctx, req)
}

// WithFunc sets the answer used for roles without a specific script.
func (m *MockOracle) WithFunc(fn OracleFunc) *MockOracle {
	m.defaultFunc = fn
	return m
}

// WithRoleFunc scripts every round of one role.
func (m *MockOracle) WithRoleFunc(role string, fn OracleFunc) *MockOracle {
	m.roleFuncs[role] = fn
	return m
}

// WithRoundFunc scripts one round of one role.
func (m *MockOracle) WithRoundFunc(role string, round int, fn OracleFunc) *MockOracle {
	if m.roundFuncs[role] == nil {
		m.roundFuncs[role] = make(map[int]OracleFunc)
	}
	m.roundFuncs[role][round] = fn
	return m
}

// WithVerdict makes role answer the given verdict in every round.
func (m *MockOracle) WithVerdict(role string, s core.Sentiment, confidence float64) *MockOracle {
	return m.WithRoleFunc(role, fixed(VerdictJSON(s, confidence, fmt.Sprintf("%s thinks %s", role, s))))
}

// WithRoundVerdict makes role answer the given verdict in one round.
func (m *MockOracle) WithRoundVerdict(role string, round int, s core.Sentiment, confidence float64) *MockOracle {
	return m.WithRoundFunc(role, round, fixed(VerdictJSON(s, confidence, fmt.Sprintf("%s round %d", role, round))))
}

// WithRoleError makes every call for role fail with err.
func (m *MockOracle) WithRoleError(role string, err error) *MockOracle {
	return m.WithRoleFunc(role, func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
		return nil, err
	})
}

// WithLatency adds a random delay in [lo, hi) before every answer. The
// delay sequence is seeded so runs are reproducible.
func (m *MockOracle) WithLatency(lo, hi time.Duration) *MockOracle {
	m.minLatency = lo
	m.maxLatency = hi
	return m
}

// WithPingFunc sets a custom ping function.
func (m *MockOracle) WithPingFunc(fn func(context.Context) error) *MockOracle {
	m.pingFunc = fn
	return m
}

// Calls returns recorded calls.
func (m *MockOracle) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// CallCount returns the number of calls made for role, or all calls when
// role is empty.
func (m *MockOracle) CallCount(role string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if role == "" {
		return len(m.calls)
	}
	count := 0
	for _, c := range m.calls {
		if c.Role == role {
			count++
		}
	}
	return count
}

// Reset clears recorded calls.
func (m *MockOracle) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func fixed(output string) OracleFunc {
	return func(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
		return Answer(output), nil
	}
}

// Answer wraps output in an OracleResult.
func Answer(output string) *core.OracleResult {
	return &core.OracleResult{Output: output, Duration: time.Millisecond}
}

// VerdictJSON renders the JSON answer a well-behaved specialist returns.
func VerdictJSON(s core.Sentiment, confidence float64, reasoning string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"sentiment":  s,
		"confidence": confidence,
		"reasoning":  reasoning,
		"topics":     []string{"mock"},
	})
	return string(b)
}
