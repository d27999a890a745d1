package analysis

import "time"

// Input carries everything a detector may inspect. Optional fields are
// omitted when empty; detectors must tolerate any subset being present.
type Input struct {
	// Content is the free-text body under analysis (review text, claim, caption).
	Content string `json:"content"`

	// Rating is the numeric star/score rating attached to the content, if any.
	Rating *float64 `json:"rating,omitempty"`

	// URL points at the content's origin page, if known.
	URL string `json:"url,omitempty"`

	// MediaRef references an associated media asset (image/video id or URL).
	MediaRef string `json:"media_ref,omitempty"`

	// Account describes the authoring account, if known.
	Account *AccountContext `json:"account,omitempty"`

	// History holds prior records from the same account or subject,
	// oldest first.
	History []HistoricalRecord `json:"history,omitempty"`
}

// AccountContext is the authoring account as seen at submission time.
type AccountContext struct {
	ID          string    `json:"id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	ReviewCount int       `json:"review_count,omitempty"`
	Verified    bool      `json:"verified,omitempty"`
}

// HistoricalRecord is one prior piece of content from the same source.
type HistoricalRecord struct {
	Content   string    `json:"content,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	PostedAt  time.Time `json:"posted_at,omitempty"`
	SubjectID string    `json:"subject_id,omitempty"`
}
