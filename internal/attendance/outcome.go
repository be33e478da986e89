package attendance

// OutcomeKind enumerates the possible results of a check-in attempt.
type OutcomeKind string

const (
	// OutcomeRecorded means the check-in was accepted and a record created.
	OutcomeRecorded OutcomeKind = "recorded"
	// OutcomeAlreadyRecorded means a record for (member, day) already exists.
	// Idempotent no-op signal, not an error.
	OutcomeAlreadyRecorded OutcomeKind = "already_recorded"
	// OutcomeWindowClosed means the attendance window was not open.
	OutcomeWindowClosed OutcomeKind = "window_closed"
)

// Outcome is the structured result of RecordCheckIn, rendered as human text
// by the transport collaborator.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// Status is set only for OutcomeRecorded: "present" or "late".
	Status string `json:"status,omitempty"`
}

// Recorded reports whether the attempt created a new record.
func (o Outcome) Recorded() bool {
	return o.Kind == OutcomeRecorded
}
