package transactions

import "time"

// IsolationLevel is the transaction isolation level.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
	Serializable
)

func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "read uncommitted"
	case ReadCommitted:
		return "read committed"
	case RepeatableRead:
		return "repeatable read"
	case Serializable:
		return "serializable"
	default:
		return "unknown"
	}
}

// DefaultTimeout is the timeout WithTransaction uses when the Manager was
// not given another default.
const DefaultTimeout = time.Minute

// MaxTimeout caps every scope's timeout when the Manager was not given
// another maximum. A zero timeout means "no timeout" and gets this cap.
const MaxTimeout = 10 * time.Minute

// Options configures a transaction scope. Timeout zero means the manager's
// maximum; a negative Timeout is rejected.
type Options struct {
	Isolation IsolationLevel
	Timeout   time.Duration
}
