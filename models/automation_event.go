package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies an automated action in the event ledger
type EventType string

const (
	EventTypeBidSealedNotification EventType = "BID_SEALED_NOTIFICATION"
	EventTypeAutoComplianceCheck   EventType = "AUTO_COMPLIANCE_CHECK"
	EventTypeTenderCreated         EventType = "TENDER_CREATED"
	EventTypeDailyReport           EventType = "DAILY_REPORT"
)

// SystemSubjectID is the sentinel subject for system-wide events such as the
// daily report.
const SystemSubjectID = "SYSTEM"

// Gated reports whether at most one event of this type may exist per subject.
// Gated types are enforced by a storage-level unique constraint; all other
// types are plain log entries and may recur.
func (t EventType) Gated() bool {
	return t == EventTypeAutoComplianceCheck
}

// AutomationEvent records that an automated action was attempted for a
// subject. Recording means attempted, not succeeded: the payload may carry an
// error detail, but the entry exists either way.
type AutomationEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	SubjectID string          `json:"subjectId" db:"subject_id"`
	EventType EventType       `json:"eventType" db:"event_type"`
	Payload   json.RawMessage `json:"payload" db:"payload"` // JSONB, event-type specific detail
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AutomationEvent model
func (AutomationEvent) TableName() string {
	return "automation_events"
}

// NewAutomationEvent creates an event with a fresh id and UTC timestamp
func NewAutomationEvent(subjectID string, eventType EventType) *AutomationEvent {
	return &AutomationEvent{
		ID:        uuid.New(),
		SubjectID: subjectID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// WithPayload sets the structured detail for the event
func (e *AutomationEvent) WithPayload(payload interface{}) *AutomationEvent {
	if data, err := json.Marshal(payload); err == nil {
		e.Payload = data
	}
	return e
}
