package predictionlog

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Feedback is a user's judgement of a recommendation.
type Feedback struct {
	Timestamp        time.Time      `json:"timestamp"`
	RequestID        string         `json:"request_id,omitempty"`
	RecommendedPrice float64        `json:"recommended_price"`
	SuggestedPrice   *float64       `json:"suggested_price,omitempty"`
	Helpful          *bool          `json:"helpful,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Validate checks the feedback values.
func (f Feedback) Validate() error {
	if math.IsNaN(f.RecommendedPrice) || math.IsInf(f.RecommendedPrice, 0) {
		return fmt.Errorf("recommended price %v is not a finite number", f.RecommendedPrice)
	}
	if f.SuggestedPrice != nil && (math.IsNaN(*f.SuggestedPrice) || *f.SuggestedPrice < 0) {
		return fmt.Errorf("suggested price %v is invalid", *f.SuggestedPrice)
	}
	return nil
}

// FeedbackStats aggregates all stored feedback. Errors compare recommended
// prices with the prices users suggested instead.
type FeedbackStats struct {
	Count           int     `json:"count"`
	Helpful         int     `json:"helpful"`
	NotHelpful      int     `json:"not_helpful"`
	WithSuggestion  int     `json:"with_suggestion"`
	MeanAbsError    float64 `json:"mean_abs_error"`
	MeanAbsPctError float64 `json:"mean_abs_pct_error"`
}

// FeedbackStore persists feedback. Only some Store backends implement it.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb Feedback) error
	FeedbackStats(ctx context.Context) (FeedbackStats, error)
}
