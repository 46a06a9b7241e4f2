package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Day comes first as in the source
// spreadsheets.
var dateLayouts = []string{
	"02/01/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	time.RFC3339,
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseNumber accepts "1234.5", "1234,5", "1.234,50" and "R$ 1.234,50".
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return strconv.ParseFloat(s, 64)
}
