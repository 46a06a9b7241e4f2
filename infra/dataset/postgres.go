package dataset

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
)

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresConfig selects a routes table.
type PostgresConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SetDefaults fills zero values.
func (c *PostgresConfig) SetDefaults() {
	if c.Table == "" {
		c.Table = "freight_routes"
	}
}

// Validate checks the configuration.
func (c PostgresConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("postgres dataset: dsn is required")
	}
	if !identifier.MatchString(c.Table) {
		return fmt.Errorf("postgres dataset: invalid table name %q", c.Table)
	}
	return nil
}

// PostgresSource reads routes with one query per Load.
type PostgresSource struct {
	db      Querier
	query   string
	log     logger.Logger
	dropped atomic.Int64
}

// NewPostgresSourceWithQuerier returns a source over an existing connection.
func NewPostgresSourceWithQuerier(db Querier, table string, log logger.Logger) *PostgresSource {
	if table == "" {
		table = "freight_routes"
	}
	return &PostgresSource{
		db: db,
		query: "SELECT origin_lat, origin_lng, destination_lat, destination_lng, distance_km, price, departure_date FROM " +
			table + " ORDER BY id",
		log: logger.OrNop(log),
	}
}

// NewPostgresSource opens a connection pool for cfg.
func NewPostgresSource(cfg PostgresConfig, log logger.Logger) (*PostgresSource, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dataset: create pool: %w", err)
	}
	return NewPostgresSourceWithQuerier(pool, cfg.Table, log), nil
}

// Load implements dataset.Source.
func (s *PostgresSource) Load(ctx context.Context) (model.Dataset, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coredataset.ErrUnavailable, err)
	}
	defer rows.Close()

	var (
		ds      model.Dataset
		dropped int
	)
	for rows.Next() {
		var (
			o, d      model.Coordinate
			km, price float64
			dep       time.Time
		)
		if err := rows.Scan(&o.Lat, &o.Lng, &d.Lat, &d.Lng, &km, &price, &dep); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", coredataset.ErrUnavailable, err)
		}
		if err := o.Validate(); err != nil {
			dropped++
			continue
		}
		if err := d.Validate(); err != nil {
			dropped++
			continue
		}
		r, err := model.NewHistoricalRoute(o, d, km, price, dep)
		if err != nil {
			dropped++
			continue
		}
		ds = append(ds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", coredataset.ErrUnavailable, err)
	}
	s.dropped.Store(int64(dropped))
	s.log.Infof("loaded %d routes from postgres (%d rows dropped)", len(ds), dropped)
	return ds, nil
}

// Dropped returns the number of rows skipped by the last successful Load.
func (s *PostgresSource) Dropped() int { return int(s.dropped.Load()) }
