package recommend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/model"
)

// Value is a numeric request field. Hosts send numbers either as JSON
// numbers or as strings; both decode. The zero Value is unset.
type Value struct {
	raw string
	set bool
}

// Number returns a set Value holding f.
func Number(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64), set: true}
}

// Text returns a set Value holding s verbatim. It is parsed on use.
func Text(s string) Value { return Value{raw: s, set: true} }

// IsSet reports whether the field was present and not null.
func (v Value) IsSet() bool { return v.set }

func (v Value) String() string { return v.raw }

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value{raw: s, set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a number or a numeric string, got %s", b)
	}
	*v = Value{raw: n.String(), set: true}
	return nil
}

// MarshalJSON renders numeric values as JSON numbers and anything else as a
// string.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	if f, err := v.Float(); err == nil {
		return json.Marshal(f)
	}
	return json.Marshal(v.raw)
}

// Float parses the value. A decimal comma is accepted.
func (v Value) Float() (float64, error) {
	if !v.set {
		return 0, fmt.Errorf("missing")
	}
	s := strings.TrimSpace(v.raw)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v.raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v.raw)
	}
	return f, nil
}

// Int parses the value as a whole number. "3.0" is accepted, "3.5" is not.
func (v Value) Int() (int, error) {
	f, err := v.Float()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", v.raw)
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%q is out of range", v.raw)
	}
	return int(f), nil
}

// Accepted range of the optional year field.
const (
	MinYear = 1900
	MaxYear = 9999
)

// Request is one price request as sent by a host.
type Request struct {
	OriginLat     Value `json:"originLat"`
	OriginLng     Value `json:"originLng"`
	DestLat       Value `json:"destLat"`
	DestLng       Value `json:"destLng"`
	TotalDistance Value `json:"totalDistance"`
	// Month defaults to the current month.
	Month Value `json:"month"`
	// Year defaults to the current year.
	Year Value `json:"year"`

	// Aliases used by some hosts for the destination.
	DestinationLat Value `json:"destinationLat"`
	DestinationLng Value `json:"destinationLng"`
}

// NewRequest builds a Request from already parsed values. A zero month
// selects the current month.
func NewRequest(origin, dest model.Coordinate, km float64, month int) Request {
	r := Request{
		OriginLat:     Number(origin.Lat),
		OriginLng:     Number(origin.Lng),
		DestLat:       Number(dest.Lat),
		DestLng:       Number(dest.Lng),
		TotalDistance: Number(km),
	}
	if month != 0 {
		r.Month = Number(float64(month))
	}
	return r
}

// Query converts the request. Every failure wraps ErrInputConversion.
func (r Request) Query(now time.Time) (arbiter.Query, error) {
	destLat, destLng := r.DestLat, r.DestLng
	if !destLat.IsSet() {
		destLat = r.DestinationLat
	}
	if !destLng.IsSet() {
		destLng = r.DestinationLng
	}

	var q arbiter.Query
	fields := []struct {
		name string
		v    Value
		dst  *float64
	}{
		{"originLat", r.OriginLat, &q.Origin.Lat},
		{"originLng", r.OriginLng, &q.Origin.Lng},
		{"destLat", destLat, &q.Destination.Lat},
		{"destLng", destLng, &q.Destination.Lng},
		{"totalDistance", r.TotalDistance, &q.DistanceKm},
	}
	for _, f := range fields {
		x, err := f.v.Float()
		if err != nil {
			return arbiter.Query{}, fmt.Errorf("%w: %s: %v", ErrInputConversion, f.name, err)
		}
		*f.dst = x
	}

	q.Month = int(now.Month())
	if r.Month.IsSet() {
		m, err := r.Month.Int()
		if err != nil {
			return arbiter.Query{}, fmt.Errorf("%w: month: %v", ErrInputConversion, err)
		}
		q.Month = m
	}
	q.Year = now.Year()
	if r.Year.IsSet() {
		y, err := r.Year.Int()
		if err != nil {
			return arbiter.Query{}, fmt.Errorf("%w: year: %v", ErrInputConversion, err)
		}
		if y < MinYear || y > MaxYear {
			return arbiter.Query{}, fmt.Errorf("%w: year %d outside [%d,%d]", ErrInputConversion, y, MinYear, MaxYear)
		}
		q.Year = y
	}

	if err := q.Validate(); err != nil {
		return arbiter.Query{}, fmt.Errorf("%w: %v", ErrInputConversion, err)
	}
	return q, nil
}
