package model

// Quote is a published, rateable quote. MessageID is the numeric form of the
// chat message id the quote was taken from.
type Quote struct {
	MessageID int64  `json:"message_id"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Candidate is a quote waiting in limbo for an approve/reject decision.
// Its id stays in string form as delivered by the ingester.
type Candidate struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}
