package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/panel/internal/core"
	"github.com/hugo-lorenzo-mato/panel/internal/logging"
)

// DefaultBreakerThreshold is the number of consecutive failures before a
// role's circuit opens.
const DefaultBreakerThreshold = 5

// BreakerOracle stops calling a role whose oracle keeps failing. After
// threshold consecutive transport failures or timeouts the role's circuit
// opens and calls fail fast with CIRCUIT_OPEN. Once cooldown has passed a
// single trial call goes through; success closes the circuit, failure opens
// it again. A BreakerOracle is meant to live for one analysis; BreakerScope
// builds one per analysis.
type BreakerOracle struct {
	next      core.Oracle
	threshold int
	cooldown  time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu     sync.Mutex
	states map[string]*breakerState
}

type breakerState struct {
	failures int
	openedAt time.Time
	open     bool
	trial    bool
}

// NewBreakerOracle wraps next. A threshold <= 0 uses DefaultBreakerThreshold.
func NewBreakerOracle(next core.Oracle, threshold int, cooldown time.Duration, logger *logging.Logger) *BreakerOracle {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BreakerOracle{
		next:      next,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
		states:    make(map[string]*breakerState),
	}
}

// Name returns the wrapped transport name.
func (b *BreakerOracle) Name() string { return b.next.Name() }

// Ping delegates to the wrapped oracle.
func (b *BreakerOracle) Ping(ctx context.Context) error { return b.next.Ping(ctx) }

// Execute forwards req unless the role's circuit is open.
func (b *BreakerOracle) Execute(ctx context.Context, req core.OracleRequest) (*core.OracleResult, error) {
	if err := b.allow(req.Role); err != nil {
		return nil, err
	}
	res, err := b.next.Execute(ctx, req)
	b.record(req.Role, err)
	return res, err
}

// IsOpen reports whether role's circuit is open.
func (b *BreakerOracle) IsOpen(role string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[role]
	return ok && st.open
}

func (b *BreakerOracle) allow(role string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state(role)
	if !st.open {
		return nil
	}
	if !st.trial && b.now().Sub(st.openedAt) >= b.cooldown {
		st.trial = true
		return nil
	}
	err := core.ErrOracle(core.CodeCircuitOpen,
		fmt.Sprintf("oracle for role %s failed %d times in a row; retrying after %s", role, st.failures, b.cooldown))
	err.Retryable = false
	return err
}

func (b *BreakerOracle) record(role string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state(role)
	if !countsAsFailure(err) {
		if err == nil || st.trial {
			// The oracle answered; anything short of a transport failure closes the circuit.
			*st = breakerState{}
		}
		return
	}

	st.failures++
	if st.trial || st.failures >= b.threshold {
		if !st.open {
			b.logger.Warn("oracle circuit opened", "role", role, "failures", st.failures, "error", err)
		}
		st.open = true
		st.trial = false
		st.openedAt = b.now()
	}
}

func (b *BreakerOracle) state(role string) *breakerState {
	st, ok := b.states[role]
	if !ok {
		st = &breakerState{}
		b.states[role] = st
	}
	return st
}

func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch core.GetCategory(err) {
	case core.ErrCatOracle, core.ErrCatTimeout, core.ErrCatInternal:
		return true
	default:
		return false
	}
}
