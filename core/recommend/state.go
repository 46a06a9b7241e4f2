package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/evaluate"
	"github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/predictionlog"
)

// State describes the data and model currently backing the service.
type State struct {
	Trained          bool                         `json:"trained"`
	ModelType        string                       `json:"model_type,omitempty"`
	LastTrainingDate *string                      `json:"lastTrainingDate"`
	SamplesCount     int                          `json:"samplesCount"`
	FeedbackCount    int                          `json:"feedbackCount"`
	Metrics          map[string]float64           `json:"metrics,omitempty"`
	Features         []string                     `json:"features,omitempty"`
	Policy           string                       `json:"policy"`
	Dataset          dataset.Stats                `json:"dataset"`
	Feedback         *predictionlog.FeedbackStats `json:"feedback,omitempty"`
	// Errors lists the artifacts that could not be loaded.
	Errors []string `json:"errors,omitempty"`
}

// State loads the dataset, the model and the feedback statistics. Missing
// artifacts are reported in State.Errors rather than failing the call.
func (s *Service) State(ctx context.Context) State {
	st := State{Policy: s.policy.Name()}
	if routes, err := s.source.Load(ctx); err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("dataset: %v", err))
	} else {
		st.Dataset = dataset.Describe(routes)
	}
	if m, err := s.models.Load(ctx); err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("model: %v", err))
	} else {
		md := m.Metadata
		st.Trained = true
		st.ModelType = md.ModelType
		st.SamplesCount = md.NSamples
		st.Metrics = md.Metrics
		st.Features = md.Features
		if md.TrainingDate != "" {
			t := md.TrainingDate
			st.LastTrainingDate = &t
		}
	}
	if fs, ok := s.store.(predictionlog.FeedbackStore); ok {
		if stats, err := fs.FeedbackStats(ctx); err != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("feedback: %v", err))
		} else {
			st.Feedback = &stats
			st.FeedbackCount = stats.Count
		}
	}
	return st
}

// FeedbackRequest is a user's judgement of a previous recommendation.
type FeedbackRequest struct {
	RequestID              string         `json:"requestId"`
	OriginalRecommendation Value          `json:"originalRecommendation"`
	UserSuggestedPrice     Value          `json:"userSuggestedPrice"`
	IsHelpful              *bool          `json:"isHelpful"`
	Metadata               map[string]any `json:"metadata"`
}

// Feedback stores fb. It fails with ErrFeedbackUnsupported when the
// prediction log cannot hold feedback and with ErrInputConversion on bad
// values.
func (s *Service) Feedback(ctx context.Context, req FeedbackRequest) error {
	fs, ok := s.store.(predictionlog.FeedbackStore)
	if !ok {
		return ErrFeedbackUnsupported
	}
	rec, err := req.OriginalRecommendation.Float()
	if err != nil {
		return fmt.Errorf("%w: originalRecommendation: %v", ErrInputConversion, err)
	}
	fb := predictionlog.Feedback{
		Timestamp:        s.now(),
		RequestID:        req.RequestID,
		RecommendedPrice: rec,
		Helpful:          req.IsHelpful,
		Metadata:         req.Metadata,
	}
	if req.UserSuggestedPrice.IsSet() {
		sp, err := req.UserSuggestedPrice.Float()
		if err != nil {
			return fmt.Errorf("%w: userSuggestedPrice: %v", ErrInputConversion, err)
		}
		fb.SuggestedPrice = &sp
	}
	if err := fb.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInputConversion, err)
	}
	if err := fs.SaveFeedback(ctx, fb); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}

	ev := metrics.FeedbackEvent{Helpful: fb.Helpful, Time: fb.Timestamp}
	if fb.SuggestedPrice != nil {
		d := math.Abs(*fb.SuggestedPrice - fb.RecommendedPrice)
		ev.AbsError = &d
	}
	if r, ok := s.sink.(metrics.FeedbackRecorder); ok {
		if err := r.RecordFeedback(ev); err != nil {
			s.logger.Warnf("record feedback metrics: %v", err)
		}
	}
	s.logger.Infof("feedback stored for request %q", req.RequestID)
	return nil
}

// Evaluate replays the dataset through the active policy.
func (s *Service) Evaluate(ctx context.Context, opts evaluate.Options) (evaluate.Report, error) {
	routes, err := s.source.Load(ctx)
	if err != nil {
		return evaluate.Report{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	m, err := s.models.Load(ctx)
	if err != nil {
		return evaluate.Report{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	rep, err := evaluate.Run(ctx, s.policy, routes, m, opts, s.now())
	if err != nil && !errors.Is(err, context.Canceled) {
		monitoring.CaptureException(err, map[string]string{"operation": "evaluate"})
	}
	return rep, err
}
