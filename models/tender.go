package models

import (
	"fmt"
	"time"
)

// TenderStatus represents the lifecycle state of a tender
type TenderStatus string

const (
	// TenderStatusOpen is the only status produced at creation time
	TenderStatusOpen TenderStatus = "OPEN"
)

// Tender represents a published procurement tender. UpdateHash is a SHA-256
// fingerprint over "tenderId:description:requirements" proving the recorded
// content has not been altered after publication.
//
// TenderID is caller-supplied and deliberately not unique at the storage
// layer: duplicate creations coexist, and sweeps key their idempotency on the
// tender id rather than on the row.
type Tender struct {
	TenderID      string       `json:"tenderId" db:"tender_id"`
	Description   string       `json:"description" db:"description"`
	Requirements  string       `json:"requirements" db:"requirements"`
	Budget        *float64     `json:"budget,omitempty" db:"budget"`
	Deadline      *time.Time   `json:"deadline,omitempty" db:"deadline"`
	UpdateContent string       `json:"updateContent" db:"update_content"`
	UpdatedBy     string       `json:"updatedBy" db:"updated_by"`
	UpdateHash    string       `json:"updateHash" db:"update_hash"`
	Timestamp     time.Time    `json:"timestamp" db:"timestamp"`
	Status        TenderStatus `json:"status" db:"status"`
}

// TableName returns the table name for the Tender model
func (Tender) TableName() string {
	return "tenders"
}

// NewTender creates an OPEN tender with a UTC creation timestamp
func NewTender(tenderID, description, requirements, updateHash string) *Tender {
	return &Tender{
		TenderID:      tenderID,
		Description:   description,
		Requirements:  requirements,
		UpdateContent: fmt.Sprintf("Tender created: %s. Requirements: %s", description, requirements),
		UpdatedBy:     "system",
		UpdateHash:    updateHash,
		Timestamp:     time.Now().UTC(),
		Status:        TenderStatusOpen,
	}
}

// WithBudget sets the optional budget
func (t *Tender) WithBudget(budget float64) *Tender {
	t.Budget = &budget
	return t
}

// WithDeadline sets the optional submission deadline
func (t *Tender) WithDeadline(deadline time.Time) *Tender {
	utc := deadline.UTC()
	t.Deadline = &utc
	return t
}

// HashInput returns the canonical string the update hash is computed over.
// The hash is a pure function of these three fields, so identical inputs
// always reproduce the same hash.
func HashInput(tenderID, description, requirements string) string {
	return fmt.Sprintf("%s:%s:%s", tenderID, description, requirements)
}
