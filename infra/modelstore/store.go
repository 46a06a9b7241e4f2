// Package modelstore reads and writes the three model artifacts: the
// regressor, the feature scaler and the metadata record.
package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilianp07/freightrec/core/prediction"
)

// Artifact file names inside a model directory.
const (
	ModelFile    = "model.json"
	ScalerFile   = "scaler.json"
	MetadataFile = "metadata.json"
)

// ErrUnavailable reports missing or unreadable artifacts.
var ErrUnavailable = errors.New("model artifacts unavailable")

type regressorFile struct {
	Type         string    `json:"type"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// Dir is a model directory. Every Load reads the artifacts again.
type Dir string

// Load reads and validates the artifacts.
func (d Dir) Load(ctx context.Context) (prediction.Model, error) {
	if err := ctx.Err(); err != nil {
		return prediction.Model{}, err
	}
	var (
		rf   regressorFile
		sc   prediction.Scaler
		meta prediction.Metadata
	)
	if err := d.read(ModelFile, &rf); err != nil {
		return prediction.Model{}, err
	}
	if err := d.read(ScalerFile, &sc); err != nil {
		return prediction.Model{}, err
	}
	if err := d.read(MetadataFile, &meta); err != nil {
		return prediction.Model{}, err
	}

	var reg prediction.Regressor
	switch rf.Type {
	case "linear", "":
		reg = prediction.LinearRegressor{Intercept: rf.Intercept, Coefficients: rf.Coefficients}
	default:
		return prediction.Model{}, fmt.Errorf("%w: unsupported regressor type %q", prediction.ErrInvalidModel, rf.Type)
	}
	m := prediction.Model{Regressor: reg, Scaler: sc, Metadata: meta}
	if err := m.Validate(); err != nil {
		return prediction.Model{}, err
	}
	return m, nil
}

func (d Dir) read(name string, out any) error {
	p := filepath.Join(string(d), name)
	b, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", prediction.ErrInvalidModel, name, err)
	}
	return nil
}

// Save writes m into the directory, creating it if needed. Only linear
// regressors can be persisted.
func (d Dir) Save(m prediction.Model) error {
	lin, ok := m.Regressor.(prediction.LinearRegressor)
	if !ok {
		return fmt.Errorf("%w: cannot persist regressor %T", prediction.ErrInvalidModel, m.Regressor)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(string(d), 0o755); err != nil {
		return err
	}
	files := []struct {
		name string
		v    any
	}{
		{ModelFile, regressorFile{Type: "linear", Intercept: lin.Intercept, Coefficients: lin.Coefficients}},
		{ScalerFile, m.Scaler},
		{MetadataFile, m.Metadata},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(string(d), f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

// writeJSON replaces path atomically so that concurrent readers never see a
// partial artifact.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
