package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/kilianp07/freightrec/auth"
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/model"
)

// HTTPConfig points at a shipment history endpoint returning a JSON array
// of shipments. Auth enables OAuth2 client credentials.
type HTTPConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Auth    auth.Conf     `json:"auth"`
}

// SetDefaults fills zero values.
func (c *HTTPConfig) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c HTTPConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http dataset: invalid url %q", c.URL)
	}
	return c.Auth.Validate()
}

// shipment is one element of the endpoint's response.
type shipment struct {
	OriginLat  float64 `json:"origin_lat"`
	OriginLng  float64 `json:"origin_lng"`
	DestLat    float64 `json:"destination_lat"`
	DestLng    float64 `json:"destination_lng"`
	DistanceKm float64 `json:"distance_km"`
	Price      float64 `json:"price"`
	Departure  string  `json:"departure_date"`
}

// HTTPSource fetches the dataset with one GET per Load.
type HTTPSource struct {
	cfg     HTTPConfig
	client  *http.Client
	creds   *auth.ClientCred
	log     logger.Logger
	dropped atomic.Int64
}

// NewHTTPSource validates cfg and returns a source.
func NewHTTPSource(cfg HTTPConfig, log logger.Logger) (*HTTPSource, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &HTTPSource{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: logger.OrNop(log)}
	if cfg.Auth.Enabled() {
		s.creds = auth.NewClientCred(cfg.Auth)
	}
	return s, nil
}

// Load implements dataset.Source.
func (s *HTTPSource) Load(ctx context.Context) (model.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.creds != nil {
		if err := s.creds.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("%w: %v", coredataset.ErrUnavailable, err)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coredataset.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: unexpected status code: %d, body: %s", coredataset.ErrUnavailable, resp.StatusCode, body)
	}

	var rows []shipment
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", coredataset.ErrUnavailable, err)
	}

	var (
		ds      model.Dataset
		dropped int
	)
	for i, row := range rows {
		r, err := row.route()
		if err != nil {
			dropped++
			s.log.Debugf("shipment %d dropped: %v", i, err)
			continue
		}
		ds = append(ds, r)
	}
	s.dropped.Store(int64(dropped))
	s.log.Infof("loaded %d routes from %s (%d rows dropped)", len(ds), s.cfg.URL, dropped)
	return ds, nil
}

// Dropped returns the number of shipments skipped by the last Load.
func (s *HTTPSource) Dropped() int { return int(s.dropped.Load()) }

func (row shipment) route() (model.HistoricalRoute, error) {
	o := model.Coordinate{Lat: row.OriginLat, Lng: row.OriginLng}
	if err := o.Validate(); err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("origin: %w", err)
	}
	d := model.Coordinate{Lat: row.DestLat, Lng: row.DestLng}
	if err := d.Validate(); err != nil {
		return model.HistoricalRoute{}, fmt.Errorf("destination: %w", err)
	}
	dep, err := parseDate(row.Departure)
	if err != nil {
		return model.HistoricalRoute{}, err
	}
	return model.NewHistoricalRoute(o, d, row.DistanceKm, row.Price, dep)
}
