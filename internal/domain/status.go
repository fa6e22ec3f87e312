package domain

import "fmt"

// Status is the lifecycle state of a money movement record
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusCompleted Status = "Completed"
	StatusRejected  Status = "Rejected"
	StatusFlagged   Status = "Flagged"
	StatusCancelled Status = "Cancelled"
	// StatusDeleted is never persisted; it marks a record removed by a transition.
	StatusDeleted Status = "Deleted"
)

// Event is a request to move a record between states
type Event string

const (
	EventCreate   Event = "create"
	EventApprove  Event = "approve"
	EventReject   Event = "reject"
	EventFlag     Event = "flag"
	EventResubmit Event = "resubmit"
	EventRestore  Event = "restore"
	EventDelete   Event = "delete"
	EventCancel   Event = "cancel"
	EventWithdraw Event = "withdraw"
)

// TransitionTable maps an event and a source state to the target state.
// Anything missing from the table is an illegal transition.
type TransitionTable map[Event]map[Status]Status

// Next returns the state reached by applying ev to from.
func (t TransitionTable) Next(from Status, ev Event) (Status, error) {
	if to, ok := t[ev][from]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: cannot %s a record in status %s", ErrInvalidTransition, ev, from)
}

// Allows reports whether ev is legal from the given state.
func (t TransitionTable) Allows(from Status, ev Event) bool {
	_, ok := t[ev][from]
	return ok
}

// CollectionTransitions is the normal lifecycle of a Collection.
// Approve is legal from Approved so retried requests settle as no-ops.
var CollectionTransitions = TransitionTable{
	EventApprove: {
		StatusPending:  StatusApproved,
		StatusApproved: StatusApproved,
	},
	EventReject: {
		StatusPending:  StatusRejected,
		StatusApproved: StatusRejected,
		StatusFlagged:  StatusRejected,
	},
	EventFlag: {
		StatusPending:  StatusFlagged,
		StatusApproved: StatusFlagged,
	},
	EventResubmit: {
		StatusFlagged: StatusPending,
	},
	EventRestore: {
		StatusRejected: StatusPending,
	},
	EventDelete: {
		StatusPending:  StatusDeleted,
		StatusRejected: StatusDeleted,
		StatusFlagged:  StatusDeleted,
	},
}

// CollectionOverrideTransitions extends CollectionTransitions for actors
// holding the administrative override capability.
var CollectionOverrideTransitions = TransitionTable{
	EventRestore: {
		StatusApproved: StatusPending,
		StatusFlagged:  StatusPending,
		StatusRejected: StatusPending,
	},
	EventDelete: {
		StatusApproved: StatusDeleted,
	},
}

// TransactionTransitions is the lifecycle of a peer transfer.
var TransactionTransitions = TransitionTable{
	EventApprove: {
		StatusPending:   StatusCompleted,
		StatusCompleted: StatusCompleted,
	},
	EventReject: {
		StatusPending:   StatusRejected,
		StatusCompleted: StatusRejected,
		StatusFlagged:   StatusRejected,
	},
	EventCancel: {
		StatusPending:   StatusPending,
		StatusCompleted: StatusPending,
		StatusFlagged:   StatusPending,
		StatusRejected:  StatusPending,
	},
	EventFlag: {
		StatusPending:   StatusFlagged,
		StatusCompleted: StatusFlagged,
	},
	EventResubmit: {
		StatusFlagged: StatusPending,
	},
	EventWithdraw: {
		StatusPending: StatusCancelled,
		StatusFlagged: StatusCancelled,
	},
}

// ExpenseTransitions is the lifecycle of an expense claim.
var ExpenseTransitions = TransitionTable{
	EventApprove: {
		StatusPending:  StatusApproved,
		StatusApproved: StatusApproved,
	},
	EventReject: {
		StatusPending:  StatusRejected,
		StatusApproved: StatusRejected,
		StatusFlagged:  StatusRejected,
	},
	EventFlag: {
		StatusPending:  StatusFlagged,
		StatusApproved: StatusFlagged,
	},
	EventResubmit: {
		StatusFlagged: StatusPending,
	},
	EventRestore: {
		StatusRejected: StatusPending,
	},
}

// ExpenseOverrideTransitions lets administrators unapprove expenses.
var ExpenseOverrideTransitions = TransitionTable{
	EventRestore: {
		StatusApproved: StatusPending,
		StatusFlagged:  StatusPending,
		StatusRejected: StatusPending,
	},
}
