package draft

import "time"

// DraftGeneratedEvent is raised when generation produces a complete draft
type DraftGeneratedEvent struct {
	MenuName    string
	Prompt      string
	GeneratedAt time.Time
}

func (e DraftGeneratedEvent) EventName() string {
	return "draft.generated"
}

func (e DraftGeneratedEvent) OccurredAt() time.Time {
	return e.GeneratedAt
}

// DraftSubmittedEvent is raised when the backend accepts the draft
type DraftSubmittedEvent struct {
	MenuName    string
	SubmittedAt time.Time
}

func (e DraftSubmittedEvent) EventName() string {
	return "draft.submitted"
}

func (e DraftSubmittedEvent) OccurredAt() time.Time {
	return e.SubmittedAt
}

// DraftResetEvent is raised when the user discards the staged draft
type DraftResetEvent struct {
	MenuName string
	ResetAt  time.Time
}

func (e DraftResetEvent) EventName() string {
	return "draft.reset"
}

func (e DraftResetEvent) OccurredAt() time.Time {
	return e.ResetAt
}
