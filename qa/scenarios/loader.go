// Package scenarios replays YAML descriptions of datasets and price requests
// through the recommendation service and checks the outcome of each request.
package scenarios

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/freightrec/core/model"
	"github.com/kilianp07/freightrec/core/recommend"
)

// RouteDef describes Count identical historical shipments.
type RouteDef struct {
	Origin      string  `yaml:"origin"`
	Destination string  `yaml:"destination"`
	Km          float64 `yaml:"km"`
	Price       float64 `yaml:"price"`
	Date        string  `yaml:"date"`
	Count       int     `yaml:"count,omitempty"`
}

// ToModel expands the definition into routes.
func (r RouteDef) ToModel() ([]model.HistoricalRoute, error) {
	o, err := model.ParseCoordinate(r.Origin)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	d, err := model.ParseCoordinate(r.Destination)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	dep := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if r.Date != "" {
		if dep, err = time.Parse(time.DateOnly, r.Date); err != nil {
			return nil, err
		}
	}
	n := max(r.Count, 1)
	out := make([]model.HistoricalRoute, 0, n)
	for i := 0; i < n; i++ {
		hr, err := model.NewHistoricalRoute(o, d, r.Km, r.Price, dep)
		if err != nil {
			return nil, err
		}
		out = append(out, hr)
	}
	return out, nil
}

// Expected is the outcome checked for one request. Nil fields are not
// checked.
type Expected struct {
	Success    bool     `yaml:"success"`
	Method     string   `yaml:"method,omitempty"`
	Price      *float64 `yaml:"price,omitempty"`
	Confidence *float64 `yaml:"confidence,omitempty"`
	ErrorKind  string   `yaml:"error_kind,omitempty"`
}

// RequestDef is a request body as a host would send it, plus the expected
// outcome.
type RequestDef struct {
	Name     string         `yaml:"name"`
	Body     map[string]any `yaml:"body"`
	Expected Expected       `yaml:"expected"`
}

// Request converts the body through its JSON form so that numeric strings
// and decimal commas are handled as on the wire.
func (r RequestDef) Request() (recommend.Request, error) {
	var req recommend.Request
	b, err := json.Marshal(r.Body)
	if err != nil {
		return req, err
	}
	err = json.Unmarshal(b, &req)
	return req, err
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Policy      string `yaml:"policy"`
	// ModelPrice is the constant output of the model. Without it the model
	// artifacts are reported missing.
	ModelPrice *float64     `yaml:"model_price,omitempty"`
	Routes     []RouteDef   `yaml:"routes"`
	Requests   []RequestDef `yaml:"requests"`
}

// Dataset expands every route definition.
func (s *Scenario) Dataset() (model.Dataset, error) {
	var ds model.Dataset
	for i, r := range s.Routes {
		routes, err := r.ToModel()
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		ds = append(ds, routes...)
	}
	return ds, nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
