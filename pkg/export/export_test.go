package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/freightrec/core/evaluate"
	"github.com/kilianp07/freightrec/core/model"
)

func report() evaluate.Report {
	price, abs, pct := 1000.0, 50.0, 4.8
	return evaluate.Report{
		Policy:         "high_confidence",
		TotalScenarios: 2,
		Scenarios: []evaluate.Scenario{
			{
				Scenario: 1, Origin: model.Coordinate{Lat: -25.5, Lng: -54.6}, Destination: model.Coordinate{Lat: -23.55, Lng: -46.63},
				TotalDistance: 1050, Month: 3, HistoricalPrice: 1050, Prediction: &price,
				Method: "geographic_coordinates", Confidence: 93.8, AbsoluteDiff: &abs, PercentageDiff: &pct, IsAcceptable: true,
			},
			{Scenario: 2, TotalDistance: 3000, Month: 7, HistoricalPrice: 7000, Method: "insufficient_data"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, report()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"1", "-25.5,-54.6", "-23.55,-46.63", "1050", "3", "1050", "1000",
		"geographic_coordinates", "93.8", "50", "4.8", "true", "",
	}, rows[1])
	assert.Equal(t, "", rows[2][6])
	assert.Equal(t, "false", rows[2][11])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "", report()))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "high_confidence", got["policy"])
	assert.Len(t, got["scenarios"], 2)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xlsx", report()))
}
