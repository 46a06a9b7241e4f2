// Package predictionlog persists every recommendation served, and the
// feedback users give on them, for later evaluation and retraining.
package predictionlog

import (
	"context"
	"fmt"
	"time"
)

// Query is the request part of a record.
type Query struct {
	OriginLat  float64 `json:"origin_lat"`
	OriginLng  float64 `json:"origin_lng"`
	DestLat    float64 `json:"dest_lat"`
	DestLng    float64 `json:"dest_lng"`
	DistanceKm float64 `json:"distance_km"`
	Month      int     `json:"month"`
}

// Record captures one recommendation and its outcome.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	Transport  string    `json:"transport,omitempty"`
	Policy     string    `json:"policy"`
	Query      Query     `json:"query"`
	Success    bool      `json:"success"`
	Method     string    `json:"method,omitempty"`
	Price      *float64  `json:"price"`
	Confidence float64   `json:"confidence"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
}

// Filter selects records. Zero fields match everything.
type Filter struct {
	Start     time.Time
	End       time.Time
	Method    string
	RequestID string
}

func (f Filter) match(r Record) bool {
	if !f.Start.IsZero() && r.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && r.Timestamp.After(f.End) {
		return false
	}
	if f.Method != "" && r.Method != f.Method {
		return false
	}
	if f.RequestID != "" && r.RequestID != f.RequestID {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, f Filter) ([]Record, error)
	Close() error
}

// Config selects and tunes a Store backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 3
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "rotating", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("prediction_log: path is required for backend %s", c.Backend)
		}
		return nil
	}
	return fmt.Errorf("prediction_log: unknown backend %q", c.Backend)
}

// New opens the configured backend. Backend "none" returns a Nop store.
func New(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return Nop{}, nil
}

// Nop discards records.
type Nop struct{}

func (Nop) Append(context.Context, Record) error            { return nil }
func (Nop) Query(context.Context, Filter) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                    { return nil }
