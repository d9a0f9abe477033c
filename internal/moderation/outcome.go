package moderation

// Outcome is the terminal state reached while moderating one message.
type Outcome int

const (
	// OutcomeIgnored means the message needed no action.
	OutcomeIgnored Outcome = iota
	// OutcomeDeleteFailed means a violation was found but the delete call failed.
	OutcomeDeleteFailed
	// OutcomeViolationDeleted means the message was deleted and the sender's count raised.
	OutcomeViolationDeleted
	// OutcomeViolationDeletedAndRemoved means the sender was also removed from the group.
	OutcomeViolationDeletedAndRemoved
)

// String returns the outcome name used in logs and traces.
func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDeleteFailed:
		return "delete-failed"
	case OutcomeViolationDeleted:
		return "violation-deleted"
	case OutcomeViolationDeletedAndRemoved:
		return "violation-deleted-and-removed"
	default:
		return "unknown"
	}
}
