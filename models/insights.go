package models

import (
	"time"

	"github.com/google/uuid"
)

// Insight is a free text note attached to exactly one profile. Insights are
// only ever added or removed, never edited.
type Insight struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	ProfileID uuid.UUID `json:"profileID"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type InsightInput struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (in InsightInput) Validate() error {
	if blank(in.Text) {
		return invalid("insight text is required")
	}
	if in.Timestamp.IsZero() {
		return invalid("insight timestamp is required")
	}
	return nil
}

type InsightsResponse struct {
	Insights []Insight `json:"insights"`
}
