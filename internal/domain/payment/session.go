package payment

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orders is the slice of the order service the session manager needs: marking
// an order financially confirmed on strong success.
type Orders interface {
	MarkPaid(ctx context.Context, orderID int64) error
}

// ErrSessionNotFound is returned for an unknown or already-finished session.
var ErrSessionNotFound = errors.New("payment session not found")

// Result is the observable state after applying an event to a session.
type Result struct {
	State   State
	Outcome Outcome
	// ClearCart tells the client to clear its cart. Only terminal success
	// (strong or weak) sets it; cancellation leaves the cart intact for
	// retry.
	ClearCart bool
}

type session struct {
	id      string
	orderID int64
	machine *Machine
	timer   *time.Timer
}

// Manager owns the in-flight payment sessions. Machines stay pure; the
// manager runs the real timers for Schedule effects and applies terminal
// outcomes to the order service. Sessions are in-memory only: an abandoned
// session simply leaves its order PENDING for the back office to resolve.
type Manager struct {
	orders  Orders
	latency time.Duration
	lg      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session

	// after is swapped out in tests to observe scheduling without real time.
	after func(d time.Duration, fn func()) *time.Timer
}

// NewManager creates a session manager. latency is the simulated provider
// delay for auto-advancing states.
func NewManager(orders Orders, latency time.Duration, lg *zap.Logger) *Manager {
	return &Manager{
		orders:   orders,
		latency:  latency,
		lg:       lg,
		sessions: make(map[string]*session),
		after:    time.AfterFunc,
	}
}

// Start opens a session for an existing PENDING order and submits the flow,
// returning the session id and the first interactive state.
func (m *Manager) Start(ctx context.Context, orderID int64, method Method) (string, Result, error) {
	s := &session{
		id:      uuid.New().String(),
		orderID: orderID,
		machine: NewMachine(method, m.latency),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	res, err := m.Advance(ctx, s.id, Event{Type: EventSubmit})
	if err != nil {
		m.mu.Lock()
		delete(m.sessions, s.id)
		m.mu.Unlock()
		return "", Result{}, err
	}
	return s.id, res, nil
}

// Advance applies one event to a session. Terminal outcomes remove the
// session; a Schedule effect arms a timer that will deliver TimerElapsed.
func (m *Manager) Advance(ctx context.Context, sessionID string, ev Event) (Result, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return Result{}, ErrSessionNotFound
	}

	eff, err := s.machine.Apply(ev)
	if err != nil {
		m.mu.Unlock()
		return Result{}, err
	}

	// Any transition invalidates a pending timer: either we advanced past
	// the auto state, or the user cancelled out of it.
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	if eff.Schedule > 0 {
		id := s.id
		s.timer = m.after(eff.Schedule, func() {
			if _, err := m.Advance(context.Background(), id, Event{Type: EventTimerElapsed}); err != nil &&
				!errors.Is(err, ErrSessionNotFound) {
				m.lg.Warn("payment timer advance failed",
					zap.String("session_id", id), zap.Error(err))
			}
		})
	}

	state := s.machine.State()
	if eff.Outcome != "" {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	res := Result{State: state, Outcome: eff.Outcome}

	switch eff.Outcome {
	case OutcomeConfirmed:
		// Strong success: the order becomes financially confirmed.
		if err := m.orders.MarkPaid(ctx, s.orderID); err != nil {
			return Result{}, errors.Wrap(err, "mark order paid")
		}
		res.ClearCart = true
		m.lg.Info("payment confirmed",
			zap.Int64("order_id", s.orderID),
			zap.String("method", string(s.machine.Method())))
	case OutcomeAccepted:
		// Weak success: order stays PENDING awaiting offline reconciliation,
		// but checkout is done so the cart clears.
		res.ClearCart = true
		m.lg.Info("payment accepted pending reconciliation",
			zap.Int64("order_id", s.orderID),
			zap.String("method", string(s.machine.Method())))
	case OutcomeCancelled:
		m.lg.Info("payment cancelled",
			zap.Int64("order_id", s.orderID),
			zap.String("method", string(s.machine.Method())))
	}

	return res, nil
}

// Cancel abandons a session, tearing down its timer. The order stays PENDING.
func (m *Manager) Cancel(ctx context.Context, sessionID string) (Result, error) {
	return m.Advance(ctx, sessionID, Event{Type: EventCancel})
}
