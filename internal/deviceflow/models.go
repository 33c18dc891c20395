package deviceflow

// Authorization is the user token yielded by a resolved device code
type Authorization struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	DisplayName string `json:"displayName"`
	ExpiresIn   int    `json:"expires_in"` // Token lifetime in seconds
}

// State is the position of an Attempt in the polling state machine
type State int

const (
	StateIdle State = iota
	StatePolling
	StateResolved
	StateExpired
	StateDenied
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateResolved:
		return "resolved"
	case StateExpired:
		return "expired"
	case StateDenied:
		return "denied"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling can happen from this state
func (s State) Terminal() bool {
	return s != StateIdle && s != StatePolling
}

// OutcomeKind tags the result of a single poll
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeSlowDown
	OutcomeResolved
	OutcomeTerminal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeSlowDown:
		return "slow_down"
	case OutcomeResolved:
		return "resolved"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Outcome is the interpretation of one token poll. Authorization is set for
// OutcomeResolved and Err for every other kind.
type Outcome struct {
	Kind          OutcomeKind
	Authorization *Authorization
	Err           error
}
