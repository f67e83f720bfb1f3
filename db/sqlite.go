package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrClosed = errors.New("database not initialized")

// PredictionRecord is one stored prediction.
type PredictionRecord struct {
	ID         int64              `json:"id"`
	ClassID    int                `json:"class_id"`
	Label      string             `json:"label"`
	Confidence float64            `json:"confidence"`
	Input      json.RawMessage    `json:"input"`
	Features   map[string]float64 `json:"features"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Store keeps prediction history in SQLite.
type Store struct {
	database *sql.DB
}

// Open initializes the SQLite database at path and creates the schema.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        class_id INTEGER NOT NULL,
        label TEXT NOT NULL,
        confidence REAL NOT NULL,
        input_json TEXT NOT NULL,
        features_json TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// SavePrediction inserts rec and returns its id.
func (s *Store) SavePrediction(ctx context.Context, rec PredictionRecord) (int64, error) {
	if s == nil || s.database == nil {
		return 0, ErrClosed
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return 0, err
	}
	input := rec.Input
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.database.ExecContext(ctx, `
        INSERT INTO predictions (class_id, label, confidence, input_json, features_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ClassID, rec.Label, rec.Confidence, string(input), string(features), createdAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, class_id, label, confidence, input_json, features_json, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		var input, features string
		if err := rows.Scan(&rec.ID, &rec.ClassID, &rec.Label, &rec.Confidence, &input, &features, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Input = json.RawMessage(input)
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return nil, fmt.Errorf("prediction %d features: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByLabel returns how often each label was predicted.
func (s *Store) CountByLabel(ctx context.Context) (map[string]int, error) {
	if s == nil || s.database == nil {
		return nil, ErrClosed
	}
	rows, err := s.database.QueryContext(ctx, `SELECT label, COUNT(*) FROM predictions GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}
