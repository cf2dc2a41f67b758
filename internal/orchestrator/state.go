package orchestrator

import (
	"fmt"
	"time"

	"porkvision/internal/audit"
)

// State is the position of one analysis request in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Action is what the driver must do after a transition.
type Action int

const (
	// ActionSend issues the next engine call.
	ActionSend Action = iota
	// ActionWait sleeps for Decision.Delay, then sends.
	ActionWait
	// ActionDone stops with a result.
	ActionDone
	// ActionFail stops with Decision.Kind.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionSend:
		return "send"
	case ActionWait:
		return "wait"
	case ActionDone:
		return "done"
	case ActionFail:
		return "fail"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Event is the outcome of one attempt. Failed is false for a reply that
// extracted and validated cleanly.
type Event struct {
	Failed bool
	Kind   audit.ErrorKind
}

// Succeeded is the event for a validated reply.
func Succeeded() Event { return Event{} }

// FailedWith is the event for a classified failure.
func FailedWith(kind audit.ErrorKind) Event { return Event{Failed: true, Kind: kind} }

// Decision is the result of a transition.
type Decision struct {
	From, To     State
	Action       Action
	ToolsEnabled bool
	Delay        time.Duration
	Kind         audit.ErrorKind
}

// Machine is the per-request retry and degrade state machine. It is not
// safe for concurrent use; each analysis owns one.
type Machine struct {
	state        State
	toolsEnabled bool
	downgraded   bool
	retries      int
	maxRetries   int
	baseDelay    time.Duration
}

// NewMachine returns a machine in StateIdle.
func NewMachine(toolsEnabled bool, maxRetries int, baseDelay time.Duration) *Machine {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Machine{
		toolsEnabled: toolsEnabled,
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// ToolsEnabled reports whether the next call may use the search tool.
func (m *Machine) ToolsEnabled() bool { return m.toolsEnabled }

// Downgraded reports whether the tool fallback has fired.
func (m *Machine) Downgraded() bool { return m.downgraded }

// Retries returns how many backoff retries have been spent.
func (m *Machine) Retries() int { return m.retries }

// Start leaves Idle for the first call.
func (m *Machine) Start() Decision {
	if m.state != StateIdle {
		panic(fmt.Sprintf("orchestrator: Start called in state %s", m.state))
	}
	m.state = StateSending
	return Decision{From: StateIdle, To: StateSending, Action: ActionSend, ToolsEnabled: m.toolsEnabled}
}

// Transition applies the outcome of the call made in StateSending.
//
// A quota failure with tools on drops the tools and resends at once; this
// happens at most once. A quota failure without tools waits 2^n * baseDelay
// for the n-th retry while n is below the ceiling. Every other failure, and
// quota past the ceiling, is terminal.
func (m *Machine) Transition(ev Event) Decision {
	if m.state != StateSending {
		panic(fmt.Sprintf("orchestrator: Transition called in state %s", m.state))
	}
	d := Decision{From: StateSending}

	switch {
	case !ev.Failed:
		m.state = StateSuccess
		d.Action = ActionDone

	case ev.Kind.Retryable() && m.toolsEnabled && !m.downgraded:
		m.toolsEnabled = false
		m.downgraded = true
		d.Action = ActionSend

	case ev.Kind.Retryable() && m.retries < m.maxRetries:
		d.Delay = m.baseDelay * time.Duration(1<<m.retries)
		m.retries++
		d.Action = ActionWait

	default:
		m.state = StateFailure
		d.Action = ActionFail
		d.Kind = ev.Kind
	}

	d.To = m.state
	d.ToolsEnabled = m.toolsEnabled
	return d
}

// Abandon moves a pending request to Failure when the caller gives up.
func (m *Machine) Abandon(kind audit.ErrorKind) Decision {
	from := m.state
	if m.state != StateSuccess && m.state != StateFailure {
		m.state = StateFailure
	}
	return Decision{From: from, To: m.state, Action: ActionFail, Kind: kind, ToolsEnabled: m.toolsEnabled}
}
