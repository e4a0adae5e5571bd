package via

// The order lifecycle is an explicit state machine so the rotation policy is
// testable without network calls. Transitions are driven only by the batch
// threshold and by the upstream expiry signal.

// State is the lifecycle state of an order session.
type State int

const (
	// StateNone means no order has been created yet.
	StateNone State = iota
	// StateActive means the current order handle is usable.
	StateActive
	// StateExpired means the upstream reported the order as completed or
	// canceled; the handle must not be reused.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Session tracks one order handle and how many pairs it has served.
// Handles live only for the duration of a fetch run and are never persisted.
type Session struct {
	state       State
	handle      string
	pairsServed int
	batchSize   int
}

// NewSession creates an empty session that rotates after batchSize pairs.
// A non-positive batchSize disables the soft rotation threshold.
func NewSession(batchSize int) *Session {
	return &Session{batchSize: batchSize}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Handle returns the active order handle, if any.
func (s *Session) Handle() (string, bool) {
	if s.state != StateActive {
		return "", false
	}
	return s.handle, true
}

// NeedsRotation reports whether a new order must be created before the next
// probe: no active handle, the upstream expired it, or the soft batch
// threshold was reached.
func (s *Session) NeedsRotation() bool {
	if s.state != StateActive {
		return true
	}
	return s.batchSize > 0 && s.pairsServed >= s.batchSize
}

// Activate installs a freshly created order handle.
func (s *Session) Activate(handle string) {
	s.state = StateActive
	s.handle = handle
	s.pairsServed = 0
}

// MarkServed counts one pair processed against the batch threshold.
func (s *Session) MarkServed() {
	if s.state == StateActive {
		s.pairsServed++
	}
}

// Expire records the upstream expiry signal.
func (s *Session) Expire() {
	s.state = StateExpired
	s.handle = ""
}

// PairsServed returns how many pairs the active handle has served.
func (s *Session) PairsServed() int {
	return s.pairsServed
}
