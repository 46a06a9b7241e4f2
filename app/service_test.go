package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/config"
	"github.com/kilianp07/freightrec/core/arbiter"
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/factory"
	coremetrics "github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/recommend"
	"github.com/kilianp07/freightrec/infra/logger"
	"github.com/kilianp07/freightrec/infra/modelstore"
)

var (
	origin = model.Coordinate{Lat: -25.5163, Lng: -54.5854}
	dest   = model.Coordinate{Lat: -23.5505, Lng: -46.6333}
)

// writeDataset writes n corridor shipments with a price rising with distance,
// plus one unparsable row.
func writeDataset(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Frete Carreteiro;Data Saída;ORIGEN;DESTINO;KM\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d;15/%02d/2024;%v,%v;%v,%v;%d\n", 4000+40*i, i%12+1, origin.Lat, origin.Lng, dest.Lat, dest.Lng, 1000+10*i)
	}
	b.WriteString("n/a;15/03/2024;-25.5,-54.5;-23.5,-46.6;1000\n")
	p := filepath.Join(t.TempDir(), "routes.csv")
	require.NoError(t, os.WriteFile(p, []byte(b.String()), 0o600))
	return p
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Dataset: factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": writeDataset(t, 20)}},
		Model:   config.ModelConfig{Dir: filepath.Join(t.TempDir(), "model")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	t.Cleanup(monitoring.Reset)
	return cfg
}

func TestNew_TrainThenRecommend(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx := context.Background()
	_, err = svc.Models.Load(ctx)
	assert.ErrorIs(t, err, modelstore.ErrUnavailable)

	rep, err := svc.Trainer.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, rep.Samples)

	m, err := svc.Models.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "linear", m.Metadata.ModelType)

	resp := svc.Recommender.Recommend(ctx, recommend.NewRequest(origin, dest, 1000, 3))
	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, string(arbiter.MethodGeographic), resp.Method)
	require.NotNil(t, resp.RecommendedPrice)
	assert.Equal(t, 4380.0, *resp.RecommendedPrice)

	st := svc.Recommender.State(ctx)
	assert.True(t, st.Trained)
	assert.Equal(t, 20, st.SamplesCount)
}

func TestNew_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.Type = "parquet"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "parquet")

	cfg = testConfig(t)
	cfg.LogLevel = "loud"
	_, err = New(cfg)
	assert.ErrorContains(t, err, "log level")

	cfg = testConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "statsd"}}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "metrics sinks")
}

type fakeSaver struct {
	saved []prediction.Model
	err   error
}

func (f *fakeSaver) Save(m prediction.Model) error {
	f.saved = append(f.saved, m)
	return f.err
}

type failingSource struct{}

func (failingSource) Load(context.Context) (model.Dataset, error) {
	return nil, coredataset.ErrUnavailable
}

func TestTrainer(t *testing.T) {
	ctx := context.Background()
	src, err := coredataset.New(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": writeDataset(t, 12)}})
	require.NoError(t, err)

	saver := &fakeSaver{}
	rep, err := NewTrainer(src, saver, nil, nil).Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, rep.Samples)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, prediction.DefaultFeatures, saver.saved[0].Metadata.Features)

	saver.err = errors.New("disk full")
	_, err = NewTrainer(src, saver, nil, logger.NopLogger{}).Train(ctx)
	assert.ErrorContains(t, err, "disk full")

	_, err = NewTrainer(failingSource{}, saver, nil, nil).Train(ctx)
	assert.ErrorIs(t, err, coredataset.ErrUnavailable)

	// Too few routes for the number of features.
	small, err := coredataset.New(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": writeDataset(t, 3)}})
	require.NoError(t, err)
	_, err = NewTrainer(small, saver, nil, nil).Train(ctx)
	assert.ErrorContains(t, err, "need more than")
}

type datasetSink struct {
	coremetrics.NopSink
	events []coremetrics.DatasetEvent
}

func (d *datasetSink) RecordDataset(ev coremetrics.DatasetEvent) error {
	d.events = append(d.events, ev)
	return nil
}

type predictionOnlySink struct{}

func (predictionOnlySink) RecordPrediction(coremetrics.PredictionEvent) error { return nil }

func TestInstrument(t *testing.T) {
	src, err := coredataset.New(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": writeDataset(t, 4)}})
	require.NoError(t, err)

	sink := &datasetSink{}
	wrapped := instrument(src, "csv", sink, logger.NopLogger{})
	ds, err := wrapped.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds, 4)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "csv", sink.events[0].Source)
	assert.Equal(t, 4, sink.events[0].Routes)
	assert.Equal(t, 1, sink.events[0].Dropped)

	_, err = instrument(failingSource{}, "x", sink, logger.NopLogger{}).Load(context.Background())
	assert.Error(t, err)
	assert.Len(t, sink.events, 1)

	assert.Same(t, src, instrument(src, "csv", predictionOnlySink{}, nil))
}
