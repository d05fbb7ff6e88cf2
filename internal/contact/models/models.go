package models

import (
	"errors"
	"time"
)

// ErrConsentRequired is returned when a record is built without consent.
var ErrConsentRequired = errors.New("consent is required to store a submission")

// SubmissionRequest is the boundary form as decoded from JSON. Both "consent"
// and "consent_given" are accepted; the serverless front end sends the latter.
type SubmissionRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Message      string `json:"message"`
	Consent      *bool  `json:"consent,omitempty"`
	ConsentGiven *bool  `json:"consent_given,omitempty"`
	CSRFToken    string `json:"csrf_token"`
	SessionToken string `json:"-"`

	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// ConsentValue merges the two consent spellings. An explicit false on either
// wins over true.
func (r SubmissionRequest) ConsentValue() *bool {
	switch {
	case r.Consent == nil:
		return r.ConsentGiven
	case r.ConsentGiven == nil:
		return r.Consent
	default:
		v := *r.Consent && *r.ConsentGiven
		return &v
	}
}

// Submission is one stored contact attempt. Name and Message hold sanitized
// text; the client address is only present as IPHash.
type Submission struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
	ConsentGiven    bool      `json:"consent_given"`
	IPHash          string    `json:"ip_address_hash"`
	UserAgent       string    `json:"user_agent"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	RetentionExpiry time.Time `json:"retention_expiry"`
}

// NewSubmission builds a record ready for storage. The store assigns ID.
func NewSubmission(name, email, message string, consent bool, ipHash, userAgent string, now, expiry time.Time) (*Submission, error) {
	if !consent {
		return nil, ErrConsentRequired
	}
	now = now.UTC()
	return &Submission{
		Name:            name,
		Email:           email,
		Message:         message,
		Timestamp:       now,
		ConsentGiven:    true,
		IPHash:          ipHash,
		UserAgent:       userAgent,
		CreatedAt:       now,
		UpdatedAt:       now,
		RetentionExpiry: expiry.UTC(),
	}, nil
}

// SubmissionResult is returned to the transport after a stored submission.
type SubmissionResult struct {
	SubmissionID    string
	Message         string
	RetentionExpiry time.Time
	Record          *Submission
}

// ExportResult carries a data portability response.
type ExportResult struct {
	ExportID string
	Format   string
	Data     []*Submission
	Message  string
}

// ErasureResult carries a right-to-erasure response.
type ErasureResult struct {
	DeletionID   string
	DeletedCount int
	Message      string
}
