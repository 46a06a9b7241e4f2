package predictionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records and feedback to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS prediction_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER,
    request_id TEXT,
    method TEXT,
    record TEXT
);
CREATE TABLE IF NOT EXISTS prediction_feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ts INTEGER,
    request_id TEXT,
    recommended REAL,
    suggested REAL,
    helpful INTEGER,
    metadata TEXT
);`

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prediction_logs (ts, request_id, method, record) VALUES (?, ?, ?, ?)`,
		rec.Timestamp.UnixNano(), rec.RequestID, rec.Method, string(b))
	return err
}

// Query returns records matching q in timestamp order.
func (s *SQLiteStore) Query(ctx context.Context, q Filter) ([]Record, error) {
	var args []any
	query := `SELECT record FROM prediction_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.Method != "" {
		query += ` AND method = ?`
		args = append(args, q.Method)
	}
	if q.RequestID != "" {
		query += ` AND request_id = ?`
		args = append(args, q.RequestID)
	}
	query += ` ORDER BY ts, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveFeedback implements FeedbackStore.
func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(fb.Metadata)
	if err != nil {
		return err
	}
	var helpful any
	if fb.Helpful != nil {
		helpful = *fb.Helpful
	}
	var suggested any
	if fb.SuggestedPrice != nil {
		suggested = *fb.SuggestedPrice
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prediction_feedback (ts, request_id, recommended, suggested, helpful, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		fb.Timestamp.UnixNano(), fb.RequestID, fb.RecommendedPrice, suggested, helpful, string(meta))
	return err
}

// FeedbackStats implements FeedbackStore.
func (s *SQLiteStore) FeedbackStats(ctx context.Context) (FeedbackStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT recommended, suggested, helpful FROM prediction_feedback`)
	if err != nil {
		return FeedbackStats{}, err
	}
	defer func() { _ = rows.Close() }()
	var (
		st          FeedbackStats
		absSum, pct float64
	)
	for rows.Next() {
		var (
			rec       float64
			suggested sql.NullFloat64
			helpful   sql.NullBool
		)
		if err := rows.Scan(&rec, &suggested, &helpful); err != nil {
			return FeedbackStats{}, err
		}
		st.Count++
		if helpful.Valid {
			if helpful.Bool {
				st.Helpful++
			} else {
				st.NotHelpful++
			}
		}
		if suggested.Valid {
			st.WithSuggestion++
			diff := math.Abs(rec - suggested.Float64)
			absSum += diff
			if suggested.Float64 != 0 {
				pct += diff / math.Abs(suggested.Float64) * 100
			}
		}
	}
	if err := rows.Err(); err != nil {
		return FeedbackStats{}, err
	}
	if st.WithSuggestion > 0 {
		st.MeanAbsError = absSum / float64(st.WithSuggestion)
		st.MeanAbsPctError = pct / float64(st.WithSuggestion)
	}
	return st, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
