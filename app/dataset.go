package app

import (
	"context"
	"time"

	coredataset "github.com/kilianp07/freightrec/core/dataset"
	coremetrics "github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/infra/logger"
)

// instrumentedSource reports the size of every loaded dataset.
type instrumentedSource struct {
	coredataset.Source
	name string
	rec  coremetrics.DatasetRecorder
	log  logger.Logger
}

// instrument wraps src so that each successful Load emits a DatasetEvent when
// sink records datasets. Otherwise src is returned unchanged.
func instrument(src coredataset.Source, name string, sink coremetrics.PredictionSink, log logger.Logger) coredataset.Source {
	rec, ok := sink.(coremetrics.DatasetRecorder)
	if !ok {
		return src
	}
	return &instrumentedSource{Source: src, name: name, rec: rec, log: log}
}

func (s *instrumentedSource) Load(ctx context.Context) (model.Dataset, error) {
	ds, err := s.Source.Load(ctx)
	if err != nil {
		return nil, err
	}
	ev := coremetrics.DatasetEvent{Source: s.name, Routes: len(ds), Time: time.Now()}
	if dc, ok := s.Source.(coredataset.DropCounter); ok {
		ev.Dropped = dc.Dropped()
	}
	if err := s.rec.RecordDataset(ev); err != nil {
		s.log.Warnf("record dataset metrics: %v", err)
	}
	return ds, nil
}
