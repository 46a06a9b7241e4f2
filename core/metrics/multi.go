package metrics

import "errors"

// MultiSink fans events out to several sinks. Every sink is called even if a
// previous one failed; the errors are joined.
type MultiSink struct {
	Sinks []PredictionSink
}

// NewMultiSink returns a MultiSink forwarding to sinks.
func NewMultiSink(sinks ...PredictionSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordPrediction(ev PredictionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordDataset(ev DatasetEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(DatasetRecorder); ok {
			if err := r.RecordDataset(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordFeedback(ev FeedbackEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FeedbackRecorder); ok {
			if err := r.RecordFeedback(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
