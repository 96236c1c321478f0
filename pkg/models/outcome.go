package models

// OutcomeKind names the operation a TransferOutcome belongs to
type OutcomeKind string

const (
	OutcomeCopy   OutcomeKind = "copy"
	OutcomeMove   OutcomeKind = "move"
	OutcomeDelete OutcomeKind = "delete"
)

// OutcomeStatus is the per-unit result
type OutcomeStatus string

const (
	StatusOK      OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
)

// TransferOutcome is emitted once per unit of a copy, move or sync.
// Source and Destination are always set, even on failure.
type TransferOutcome struct {
	Kind        OutcomeKind
	Status      OutcomeStatus
	Source      string
	Destination string
	Bytes       int64
	Err         error
}

// Succeeded reports whether the unit completed
func (o TransferOutcome) Succeeded() bool {
	return o.Status == StatusOK
}

// NewOutcome builds an outcome whose status follows err
func NewOutcome(kind OutcomeKind, source, destination string, bytes int64, err error) TransferOutcome {
	status := StatusOK
	if err != nil {
		status = StatusFailure
		bytes = 0
	}
	return TransferOutcome{
		Kind:        kind,
		Status:      status,
		Source:      source,
		Destination: destination,
		Bytes:       bytes,
		Err:         err,
	}
}
