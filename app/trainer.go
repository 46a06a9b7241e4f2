package app

import (
	"context"
	"fmt"
	"time"

	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/infra/logger"
)

// ModelSaver persists a fitted model.
type ModelSaver interface {
	Save(m prediction.Model) error
}

// Trainer refits the linear model on the current dataset and replaces the
// stored artifacts. Requests served afterwards load the new model.
type Trainer struct {
	src      coredataset.Source
	store    ModelSaver
	features []string
	log      logger.Logger
	now      func() time.Time
}

// NewTrainer returns a Trainer. A nil features slice selects
// prediction.DefaultFeatures.
func NewTrainer(src coredataset.Source, store ModelSaver, features []string, log logger.Logger) *Trainer {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Trainer{src: src, store: store, features: features, log: log, now: time.Now}
}

// Train loads the dataset, fits and saves the model.
func (t *Trainer) Train(ctx context.Context) (prediction.FitReport, error) {
	ds, err := t.src.Load(ctx)
	if err != nil {
		return prediction.FitReport{}, fmt.Errorf("load dataset: %w", err)
	}
	m, rep, err := prediction.FitLinear(ds, t.features, t.now())
	if err != nil {
		return prediction.FitReport{}, err
	}
	if err := t.store.Save(m); err != nil {
		return prediction.FitReport{}, fmt.Errorf("save model: %w", err)
	}
	t.log.Infof("model trained on %d routes: r2=%.3f rmse=%.1f mae=%.1f", rep.Samples, rep.R2, rep.RMSE, rep.MAE)
	return rep, nil
}
