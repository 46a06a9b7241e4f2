package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
)

// CSVConfig describes a delimiter-separated export of past shipments.
type CSVConfig struct {
	Path              string `json:"path"`
	Delimiter         string `json:"delimiter"`
	PriceColumn       string `json:"price_column"`
	DateColumn        string `json:"date_column"`
	OriginColumn      string `json:"origin_column"`
	DestinationColumn string `json:"destination_column"`
	DistanceColumn    string `json:"distance_column"`
}

// SetDefaults fills the column names used by the freight spreadsheets.
func (c *CSVConfig) SetDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = ";"
	}
	if c.PriceColumn == "" {
		c.PriceColumn = "Frete Carreteiro"
	}
	if c.DateColumn == "" {
		c.DateColumn = "Data Saída"
	}
	if c.OriginColumn == "" {
		c.OriginColumn = "ORIGEN"
	}
	if c.DestinationColumn == "" {
		c.DestinationColumn = "DESTINO"
	}
	if c.DistanceColumn == "" {
		c.DistanceColumn = "KM"
	}
}

// Validate checks the configuration.
func (c CSVConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("csv dataset: path is required")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("csv dataset: delimiter %q must be a single character", c.Delimiter)
	}
	return nil
}

// CSVSource reads routes from a file on every Load.
type CSVSource struct {
	cfg     CSVConfig
	log     logger.Logger
	dropped atomic.Int64
}

// NewCSVSource validates cfg and returns a source. The file is not opened
// until Load.
func NewCSVSource(cfg CSVConfig, log logger.Logger) (*CSVSource, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CSVSource{cfg: cfg, log: logger.OrNop(log)}, nil
}

// Load implements dataset.Source.
func (s *CSVSource) Load(ctx context.Context) (model.Dataset, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coredataset.ErrUnavailable, err)
	}
	defer func() { _ = f.Close() }()
	ds, stats, err := s.read(ctx, f)
	if err != nil {
		return nil, err
	}
	s.dropped.Store(int64(stats.dropped))
	s.log.Infof("loaded %d routes from %s (%d rows dropped)", len(ds), s.cfg.Path, stats.dropped)
	return ds, nil
}

// Dropped returns the number of rows skipped by the last successful Load.
func (s *CSVSource) Dropped() int { return int(s.dropped.Load()) }

type readStats struct {
	rows    int
	dropped int
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) (model.Dataset, readStats, error) {
	var st readStats
	cr := csv.NewReader(r)
	cr.Comma, _ = utf8.DecodeRuneInString(s.cfg.Delimiter)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, st, fmt.Errorf("%w: read header: %v", coredataset.ErrUnavailable, err)
	}
	idx, err := s.columns(header)
	if err != nil {
		return nil, st, err
	}

	var ds model.Dataset
	for {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, st, fmt.Errorf("%w: line %d: %v", coredataset.ErrUnavailable, st.rows+2, err)
		}
		st.rows++
		route, err := s.route(rec, idx)
		if err != nil {
			st.dropped++
			s.log.Debugf("csv line %d dropped: %v", st.rows+1, err)
			continue
		}
		ds = append(ds, route)
	}
	return ds, st, nil
}

type columnIndex struct{ price, date, origin, dest, km int }

func (s *CSVSource) columns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		pos[h] = i
	}
	var idx columnIndex
	var missing []string
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{s.cfg.PriceColumn, &idx.price},
		{s.cfg.DateColumn, &idx.date},
		{s.cfg.OriginColumn, &idx.origin},
		{s.cfg.DestinationColumn, &idx.dest},
		{s.cfg.DistanceColumn, &idx.km},
	} {
		i, ok := pos[c.name]
		if !ok {
			missing = append(missing, c.name)
			continue
		}
		*c.dst = i
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: missing columns %s", coredataset.ErrUnavailable, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (s *CSVSource) route(rec []string, idx columnIndex) (model.HistoricalRoute, error) {
	field := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	price, err := parseNumber(field(idx.price))
	if err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("price: %w", err)
	}
	km, err := parseNumber(field(idx.km))
	if err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("distance: %w", err)
	}
	dep, err := parseDate(field(idx.date))
	if err != nil {
		return model.HistoricalRoute{}, err
	}
	origin, err := model.ParseCoordinate(field(idx.origin))
	if err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("origin: %w", err)
	}
	dest, err := model.ParseCoordinate(field(idx.dest))
	if err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("destination: %w", err)
	}
	return model.NewHistoricalRoute(origin, dest, km, price, dep)
}
