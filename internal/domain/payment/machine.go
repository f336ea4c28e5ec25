package payment

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// State is a node in a payment flow.
type State string

const (
	StateInit              State = "INIT"
	StateFormEntry         State = "FORM_ENTRY"
	StateValidating        State = "VALIDATING"
	StateAccountSelect     State = "ACCOUNT_SELECT"
	StateReview            State = "REVIEW"
	StateProcessing        State = "PROCESSING"
	StateInstructionsShown State = "INSTRUCTIONS_SHOWN"
	StateSurchargeShown    State = "SURCHARGE_SHOWN"
	StateSuccess           State = "SUCCESS"
	StateConfirmed         State = "CONFIRMED"
	StateCancelled         State = "CANCELLED"
)

// EventType identifies a user or timer action driving the machine.
type EventType string

const (
	// EventSubmit starts the flow from INIT.
	EventSubmit EventType = "submit"
	// EventCardDetails carries card fields (card flow only).
	EventCardDetails EventType = "card_details"
	// EventSelectSource picks a wallet funding source.
	EventSelectSource EventType = "select_source"
	// EventConfirm confirms the current screen.
	EventConfirm EventType = "confirm"
	// EventTimerElapsed signals simulated provider latency has passed.
	EventTimerElapsed EventType = "timer_elapsed"
	// EventCancel abandons the flow; allowed from any non-terminal state.
	EventCancel EventType = "cancel"
)

// Event is one input to a machine.
type Event struct {
	Type   EventType
	Card   *CardDetails
	Source string
}

// Outcome is the terminal result of a flow.
type Outcome string

const (
	// OutcomeConfirmed is strong success: the order can be marked PAID.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeAccepted is weak success: the order is accepted but stays
	// PENDING awaiting offline reconciliation.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeCancelled means the user abandoned the flow; the PENDING order
	// is left untouched.
	OutcomeCancelled Outcome = "cancelled"
)

// Effect tells the driver what to do after a transition. Schedule > 0 asks
// for a TimerElapsed event after the given simulated latency; a non-empty
// Outcome means the machine reached a terminal state.
type Effect struct {
	Schedule time.Duration
	Outcome  Outcome
}

var (
	// ErrInvalidEvent means the event is not accepted in the current state.
	ErrInvalidEvent = errors.New("event not valid in current state")
	// ErrTerminal means the machine already finished.
	ErrTerminal = errors.New("payment flow already finished")
	// ErrBadInput means the event was accepted in this state but its payload
	// failed validation. The state does not change.
	ErrBadInput = errors.New("invalid payment input")
)

// CardDetails are the simulated card form fields. Validation is syntactic
// only: this is a demonstration protocol, not an issuer integration.
type CardDetails struct {
	Holder string
	Number string
	Expiry string
	CVV    string
}

// Validate checks the fields are well-formed: non-empty holder, 13-19 digit
// number, MM/YY expiry, 3-4 digit CVV.
func (c CardDetails) Validate() error {
	if strings.TrimSpace(c.Holder) == "" {
		return errors.New("card holder required")
	}
	number := strings.ReplaceAll(c.Number, " ", "")
	if !allDigits(number) || len(number) < 13 || len(number) > 19 {
		return errors.New("card number must be 13-19 digits")
	}
	if len(c.Expiry) != 5 || c.Expiry[2] != '/' ||
		!allDigits(c.Expiry[:2]) || !allDigits(c.Expiry[3:]) {
		return errors.New("expiry must be MM/YY")
	}
	if !allDigits(c.CVV) || len(c.CVV) < 3 || len(c.CVV) > 4 {
		return errors.New("cvv must be 3-4 digits")
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Machine runs one payment flow for one order.
type Machine struct {
	method  Method
	state   State
	latency time.Duration
	source  string
}

// NewMachine creates a machine in INIT for the given method. latency is the
// simulated provider delay used by auto-advancing states.
func NewMachine(method Method, latency time.Duration) *Machine {
	return &Machine{method: method, state: StateInit, latency: latency}
}

// Method returns the machine's payment method.
func (m *Machine) Method() Method { return m.method }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Source returns the selected wallet funding source, if any.
func (m *Machine) Source() string { return m.source }

// Terminal reports whether the machine reached a terminal state.
func (m *Machine) Terminal() bool {
	switch m.state {
	case StateSuccess, StateConfirmed, StateCancelled:
		return true
	default:
		return false
	}
}

// Apply processes one event. It returns ErrInvalidEvent for events the
// current state does not accept and ErrTerminal once the flow has finished.
func (m *Machine) Apply(ev Event) (Effect, error) {
	if m.Terminal() {
		return Effect{}, ErrTerminal
	}

	// Cancellation is a normal exit, reachable from every non-terminal state.
	if ev.Type == EventCancel {
		m.state = StateCancelled
		return Effect{Outcome: OutcomeCancelled}, nil
	}

	next, ok := flows[m.method].transition(m.state, ev.Type)
	if !ok {
		return Effect{}, errors.Wrapf(ErrInvalidEvent, "%s in %s", ev.Type, m.state)
	}

	// Card fields gate the FORM_ENTRY -> VALIDATING transition.
	if ev.Type == EventCardDetails {
		if ev.Card == nil {
			return Effect{}, errors.Wrap(ErrBadInput, "card details required")
		}
		if err := ev.Card.Validate(); err != nil {
			return Effect{}, errors.Wrap(ErrBadInput, err.Error())
		}
	}

	// Wallet review requires a funding source to have been picked.
	if ev.Type == EventSelectSource {
		if !validSource(ev.Source) {
			return Effect{}, errors.Wrapf(ErrBadInput, "unknown funding source %q", ev.Source)
		}
		m.source = ev.Source
	}

	m.state = next
	return m.effectFor(next), nil
}

// effectFor maps an entered state to its driver effect.
func (m *Machine) effectFor(s State) Effect {
	switch s {
	case StateValidating, StateProcessing:
		return Effect{Schedule: m.latency}
	case StateSuccess:
		return Effect{Outcome: OutcomeConfirmed}
	case StateConfirmed:
		return Effect{Outcome: OutcomeAccepted}
	default:
		return Effect{}
	}
}

// Wallet funding sources the simulated provider offers.
const (
	SourceBalance    = "balance"
	SourceLinkedCard = "linked_card"
)

func validSource(s string) bool {
	return s == SourceBalance || s == SourceLinkedCard
}
