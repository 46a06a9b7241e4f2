package recommend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	var v struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
		D Value `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "7", "c": null}`), &v))
	f, err := v.A.Float()
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)
	n, err := v.B.Int()
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.False(t, v.C.IsSet())
	assert.False(t, v.D.IsSet())

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}

func TestValue_Parse(t *testing.T) {
	f, err := Text(" 1234,5 ").Float()
	require.NoError(t, err)
	assert.Equal(t, 1234.5, f)

	_, err = Text("1.234,5").Float()
	assert.Error(t, err)
	_, err = Text("NaN").Float()
	assert.Error(t, err)
	_, err = Value{}.Float()
	assert.Error(t, err)

	m, err := Text("3.0").Int()
	require.NoError(t, err)
	assert.Equal(t, 3, m)
	_, err = Text("3.5").Int()
	assert.Error(t, err)
	_, err = Number(1e300).Int()
	assert.ErrorContains(t, err, "out of range")
}

func TestValue_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Value{"n": Text("42"), "s": Text("abc"), "u": {}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 42, "s": "abc", "u": null}`, string(b))
}

func TestRequest_Query(t *testing.T) {
	q, err := NewRequest(origin, dest, 1000, 0).Query(clock)
	require.NoError(t, err)
	assert.Equal(t, 7, q.Month)
	assert.Equal(t, 2025, q.Year)
	assert.Equal(t, origin, q.Origin)
	assert.Equal(t, 1000.0, q.DistanceKm)

	req := NewRequest(origin, dest, 1000, 2)
	req.Year = Number(2023)
	q, err = req.Query(clock)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Month)
	assert.Equal(t, 2023, q.Year)

	// Canonical fields win over aliases.
	req.DestinationLat = Number(0)
	q, err = req.Query(clock)
	require.NoError(t, err)
	assert.Equal(t, dest.Lat, q.Destination.Lat)
}

func TestRequest_QueryYearRange(t *testing.T) {
	for _, y := range []Value{Number(1e300), Number(-1e300), Number(1899), Number(10000), Text("-5")} {
		req := NewRequest(origin, dest, 1000, 2)
		req.Year = y
		_, err := req.Query(clock)
		assert.ErrorIs(t, err, ErrInputConversion, "year %s", y)
	}
	for _, y := range []int{MinYear, MaxYear} {
		req := NewRequest(origin, dest, 1000, 2)
		req.Year = Number(float64(y))
		q, err := req.Query(clock)
		require.NoError(t, err)
		assert.Equal(t, y, q.Year)
	}

	req := NewRequest(origin, dest, 1000, 0)
	req.Month = Number(1e300)
	_, err := req.Query(clock)
	assert.ErrorIs(t, err, ErrInputConversion)
}
