package model

type RatingEntry struct {
	RaterID int64 `json:"rater_id"`
	Score   int   `json:"score"`
}

// RatingRecord holds every rating for one quote. Version is 0 until the record
// is first written and increments on every successful write.
type RatingRecord struct {
	MessageID int64         `json:"message_id"`
	Ratings   []RatingEntry `json:"ratings"`
	Version   int64         `json:"version"`
}

// Tally folds the ratings into a count per score.
func (r *RatingRecord) Tally() map[int]int {
	counts := make(map[int]int)
	if r == nil {
		return counts
	}
	for _, e := range r.Ratings {
		counts[e.Score]++
	}
	return counts
}
