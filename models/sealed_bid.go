package models

import (
	"time"

	"github.com/google/uuid"
)

// BidStatus represents the lifecycle state of a sealed bid
type BidStatus string

const (
	// BidStatusSealed is the only status produced at submission time.
	// Sealed bids are append-only and never transition.
	BidStatusSealed BidStatus = "SEALED"
)

// SealedBid represents a tamper-evident record of a submitted bid document.
// BidHash is the SHA3-512 digest of EncryptedPayload; the original plaintext
// is never persisted.
type SealedBid struct {
	TenderID         string    `json:"tenderId" db:"tender_id"`
	BidderID         string    `json:"bidderId" db:"bidder_id"`
	BidHash          string    `json:"bidHash" db:"bid_hash"`
	IV               []byte    `json:"-" db:"iv"`
	EncryptedPayload []byte    `json:"-" db:"encrypted_payload"`
	Timestamp        time.Time `json:"timestamp" db:"timestamp"`
	Status           BidStatus `json:"status" db:"status"`
}

// TableName returns the table name for the SealedBid model
func (SealedBid) TableName() string {
	return "sealed_bids"
}

// NewSealedBid creates a SealedBid with a freshly generated bidder id and a
// UTC capture timestamp. One bidder id is assigned per submission, so a
// resubmission of the same document yields a new id.
func NewSealedBid(tenderID, bidHash string, iv, encryptedPayload []byte) *SealedBid {
	return &SealedBid{
		TenderID:         tenderID,
		BidderID:         uuid.New().String(),
		BidHash:          bidHash,
		IV:               iv,
		EncryptedPayload: encryptedPayload,
		Timestamp:        time.Now().UTC(),
		Status:           BidStatusSealed,
	}
}

// AuditEntry is the audit-log projection of a sealed bid: the ciphertext and
// iv are operational secrets of the owning bidder and are never exposed here.
type AuditEntry struct {
	TenderID  string    `json:"tenderId"`
	BidHash   string    `json:"bidHash"`
	Timestamp time.Time `json:"timestamp"`
	BidderID  string    `json:"bidderId"`
	Status    BidStatus `json:"status"`
}

// AuditEntry returns the payload-free projection of the bid
func (b *SealedBid) AuditEntry() AuditEntry {
	return AuditEntry{
		TenderID:  b.TenderID,
		BidHash:   b.BidHash,
		Timestamp: b.Timestamp,
		BidderID:  b.BidderID,
		Status:    b.Status,
	}
}
