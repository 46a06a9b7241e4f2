// Package export writes evaluation reports in formats suited to spreadsheets
// and other tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/freightrec/core/evaluate"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var csvHeader = []string{
	"scenario", "origin", "destination", "total_distance", "month",
	"historical_price", "prediction", "method", "confidence",
	"absolute_diff", "percentage_diff", "is_acceptable", "error",
}

// Write renders rep in the named format.
func Write(w io.Writer, format string, rep evaluate.Report) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, rep)
	case FormatCSV:
		return WriteCSV(w, rep.Scenarios)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteJSON writes the full report to w as indented JSON.
func WriteJSON(w io.Writer, rep evaluate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes one row per scenario. Missing values are left empty.
func WriteCSV(w io.Writer, scenarios []evaluate.Scenario) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range scenarios {
		rec := []string{
			strconv.Itoa(s.Scenario),
			s.Origin.String(),
			s.Destination.String(),
			formatFloat(s.TotalDistance),
			strconv.Itoa(s.Month),
			formatFloat(s.HistoricalPrice),
			formatPtr(s.Prediction),
			s.Method,
			formatFloat(s.Confidence),
			formatPtr(s.AbsoluteDiff),
			formatPtr(s.PercentageDiff),
			strconv.FormatBool(s.IsAcceptable),
			s.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
