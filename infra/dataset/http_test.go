package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/auth"
	coredataset "github.com/kilianp07/freightrec/core/dataset"
	"github.com/kilianp07/freightrec/core/factory"
	"github.com/kilianp07/freightrec/core/logger"
)

const shipmentsJSON = `[
 {"origin_lat":-25.5163,"origin_lng":-54.5854,"destination_lat":-23.5505,"destination_lng":-46.6333,"distance_km":1050,"price":4500,"departure_date":"15/03/2024"},
 {"origin_lat":-25.5163,"origin_lng":-54.5854,"destination_lat":-23.5505,"destination_lng":-46.6333,"distance_km":1050,"price":4600,"departure_date":"2024-04-02"},
 {"origin_lat":-95,"origin_lng":-54.5854,"destination_lat":-23.5505,"destination_lng":-46.6333,"distance_km":1050,"price":4600,"departure_date":"2024-04-02"},
 {"origin_lat":-25.5,"origin_lng":-54.5,"destination_lat":-23.5,"destination_lng":-46.6,"distance_km":0,"price":4600,"departure_date":"2024-04-02"},
 {"origin_lat":-25.5,"origin_lng":-54.5,"destination_lat":-23.5,"destination_lng":-46.6,"distance_km":100,"price":4600,"departure_date":"soon"},
 {"origin_lat":-25.5,"origin_lng":-54.5,"destination_lat":-23.5,"destination_lng":-46.6,"distance_km":100,"price":0,"departure_date":"2024-04-02"},
 {"origin_lat":-25.5,"origin_lng":-54.5,"destination_lat":-23.5,"destination_lng":-46.6,"distance_km":100,"price":-40,"departure_date":"2024-04-02"}
]`

// shipmentServer serves /token and a bearer-protected /routes.
func shipmentServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/routes", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(shipmentsJSON))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_Load(t *testing.T) {
	srv := shipmentServer(t)
	src, err := NewHTTPSource(HTTPConfig{
		URL:  srv.URL + "/routes",
		Auth: auth.Conf{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/token"},
	}, logger.Nop{})
	require.NoError(t, err)

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, 4500.0, ds[0].Price)
	assert.Equal(t, 3, ds[0].Month)
	assert.Equal(t, 4, ds[1].Month)
	assert.Equal(t, 5, src.Dropped())
}

func TestHTTPSource_Errors(t *testing.T) {
	srv := shipmentServer(t)

	noAuth, err := NewHTTPSource(HTTPConfig{URL: srv.URL + "/routes"}, nil)
	require.NoError(t, err)
	_, err = noAuth.Load(context.Background())
	assert.ErrorIs(t, err, coredataset.ErrUnavailable)
	assert.ErrorContains(t, err, "401")

	broken, err := NewHTTPSource(HTTPConfig{URL: srv.URL + "/broken"}, nil)
	require.NoError(t, err)
	_, err = broken.Load(context.Background())
	assert.ErrorIs(t, err, coredataset.ErrUnavailable)

	badToken, err := NewHTTPSource(HTTPConfig{
		URL:  srv.URL + "/routes",
		Auth: auth.Conf{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/missing"},
	}, nil)
	require.NoError(t, err)
	_, err = badToken.Load(context.Background())
	assert.ErrorIs(t, err, coredataset.ErrUnavailable)
}

func TestHTTPConfig_Validate(t *testing.T) {
	assert.Error(t, HTTPConfig{}.Validate())
	assert.Error(t, HTTPConfig{URL: "ftp://host/routes"}.Validate())
	assert.Error(t, HTTPConfig{URL: "https://host/routes", Auth: auth.Conf{ClientID: "id"}}.Validate())
	assert.NoError(t, HTTPConfig{URL: "https://host/routes"}.Validate())
}

func TestFactory_HTTP(t *testing.T) {
	src, err := coredataset.New(factory.ModuleConfig{Type: "http", Conf: map[string]any{
		"url":     "https://freight.example.com/routes",
		"timeout": "5s",
	}})
	require.NoError(t, err)
	hs, ok := src.(*HTTPSource)
	require.True(t, ok)
	assert.Equal(t, "5s", hs.client.Timeout.String())
}
