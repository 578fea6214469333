package entity

import (
	"time"

	"github.com/oksasatya/phq9-intake/internal/domain/phq9"
)

// Assessment is the raw PHQ-9 submission. Written once, never updated.
type Assessment struct {
	ID            int64
	UserID        string
	Responses     phq9.Responses
	TotalScore    int
	DoctorsNotes  string
	PatientsNotes string
	SubmittedAt   time.Time
}

// DSM5Result is derived from exactly one Assessment and stored alongside it.
type DSM5Result struct {
	ID             int64
	AssessmentID   int64
	UserID         string
	Severity       phq9.Severity
	Item9Positive  bool
	MDDCriteriaMet bool
	CreatedAt      time.Time
}

// AssessmentRecord pairs a submission with its derived result for reads.
type AssessmentRecord struct {
	Assessment Assessment
	Result     DSM5Result
}
