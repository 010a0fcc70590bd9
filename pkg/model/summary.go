package model

import (
	"time"

	"github.com/google/uuid"
)

type SummaryID string

// NewSummaryID generates a new unique SummaryID
func NewSummaryID() SummaryID {
	return SummaryID(uuid.New().String())
}

// Summary is the persisted output of the daily community summary job. The
// newest CreatedAt acts as the watermark for the next run's input window.
type Summary struct {
	ID          SummaryID `firestore:"id" json:"id"`
	CreatedAt   time.Time `firestore:"created_at" json:"created_at"`
	SummaryText string    `firestore:"summary_text" json:"summary_text"`
	Sources     []PostID  `firestore:"sources" json:"sources"`
}
