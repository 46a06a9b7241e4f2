package metrics

import "time"

// PredictionEvent describes the outcome of one recommendation request.
type PredictionEvent struct {
	Policy    string
	Method    string
	Transport string
	Success   bool
	// ErrorKind is empty on success.
	ErrorKind     string
	Confidence    float64
	SimilarRoutes int
	Duration      time.Duration
	Time          time.Time
}

// PredictionSink records recommendation outcomes.
type PredictionSink interface {
	RecordPrediction(PredictionEvent) error
}

// DatasetEvent describes a dataset (re)load.
type DatasetEvent struct {
	Source string
	Routes int
	// Dropped counts rows rejected during parsing.
	Dropped int
	Time    time.Time
}

// DatasetRecorder is implemented by sinks that track dataset loads.
type DatasetRecorder interface {
	RecordDataset(DatasetEvent) error
}

// FeedbackEvent describes one piece of user feedback on a recommendation.
type FeedbackEvent struct {
	Helpful *bool
	// AbsError is |suggested - recommended| when a suggestion was given.
	AbsError *float64
	Time     time.Time
}

// FeedbackRecorder is implemented by sinks that track feedback.
type FeedbackRecorder interface {
	RecordFeedback(FeedbackEvent) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordPrediction(PredictionEvent) error { return nil }
func (NopSink) RecordDataset(DatasetEvent) error       { return nil }
func (NopSink) RecordFeedback(FeedbackEvent) error     { return nil }
