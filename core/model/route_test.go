package model

import (
	"math"
	"testing"
	"time"
)

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate(" -25.5163, -54.5854 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Lat != -25.5163 || c.Lng != -54.5854 {
		t.Fatalf("unexpected coordinate %+v", c)
	}
	for _, bad := range []string{"", "1", "a,b", "91,0", "0,181", "1,2,3"} {
		if _, err := ParseCoordinate(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	want := []int{1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4}
	for m := 1; m <= 12; m++ {
		if got := QuarterOf(m); got != want[m-1] {
			t.Errorf("month %d: expected quarter %d got %d", m, want[m-1], got)
		}
	}
}

func TestNewHistoricalRoute(t *testing.T) {
	dep := time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC)
	r, err := NewHistoricalRoute(Coordinate{Lat: 1}, Coordinate{Lat: 2}, 200, 1000, dep)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if r.Month != 8 || r.Quarter != 3 || r.Year != 2024 || r.PricePerKm != 5 {
		t.Fatalf("unexpected derived fields %+v", r)
	}
	if _, err := NewHistoricalRoute(Coordinate{}, Coordinate{}, 0, 1000, dep); err == nil {
		t.Fatal("expected error for zero distance")
	}
	if _, err := NewHistoricalRoute(Coordinate{}, Coordinate{}, 100, 1000, time.Time{}); err == nil {
		t.Fatal("expected error for missing date")
	}
	for _, price := range []float64{0, -10, math.Inf(1)} {
		if _, err := NewHistoricalRoute(Coordinate{}, Coordinate{}, 100, price, dep); err == nil {
			t.Fatalf("expected error for price %v", price)
		}
	}
}

func TestDatasetWithinDistanceAndWithout(t *testing.T) {
	d := Dataset{{DistanceKm: 180}, {DistanceKm: 199}, {DistanceKm: 220}, {DistanceKm: 241}, {DistanceKm: 243}}
	got := d.WithinDistance(220, 0.1)
	if len(got) != 3 {
		t.Fatalf("expected 3 routes within 10%%, got %d", len(got))
	}
	w := d.Without(0)
	if len(w) != 4 || w[0].DistanceKm != 199 {
		t.Fatalf("unexpected dataset %+v", w)
	}
	if len(d) != 5 {
		t.Fatal("original dataset mutated")
	}
}
