/*
 * This file is part of Loqa (https://github.com/loqalabs/loqa).
 * Copyright (C) 2025 Loqa Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/events"
	"github.com/loqalabs/loqa-voxmind/internal/logging"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const interpretationColumns = `uuid, session_id, timestamp, transcript,
	wake_detected, wake_phrase, wake_tier, wake_fuzzy,
	command_text, command, params, source, score,
	response_text, processing_time_ms, success, error_message`

// sortColumns whitelists ORDER BY targets.
var sortColumns = map[string]string{
	"":                "timestamp",
	"timestamp":       "timestamp",
	"command":         "command",
	"score":           "score",
	"processing_time": "processing_time_ms",
}

// InterpretationStore persists interpretation events.
type InterpretationStore struct {
	db *Database
}

// NewInterpretationStore creates a store on db.
func NewInterpretationStore(db *Database) *InterpretationStore {
	return &InterpretationStore{db: db}
}

// Insert stores a new event.
func (s *InterpretationStore) Insert(event *events.InterpretationEvent) error {
	if err := event.IsValid(); err != nil {
		return fmt.Errorf("invalid interpretation event: %w", err)
	}

	paramsJSON, err := event.ParamsJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize params: %w", err)
	}

	query := `INSERT INTO interpretations (` + interpretationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.DB().Exec(query,
		event.UUID, event.SessionID, event.Timestamp.UTC(), event.Transcript,
		event.WakeDetected, event.WakePhrase, event.WakeTier, event.WakeFuzzy,
		event.CommandText, event.Command, paramsJSON, event.Source, event.Score,
		event.ResponseText, event.ProcessingTime, event.Success, event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interpretation: %w", err)
	}

	logging.LogDatabaseOperation("insert", "interpretations",
		zap.String("uuid", event.UUID),
		zap.String("command", event.Command))
	return nil
}

// GetByUUID retrieves one event.
func (s *InterpretationStore) GetByUUID(uuid string) (*events.InterpretationEvent, error) {
	row := s.db.DB().QueryRow(`SELECT `+interpretationColumns+` FROM interpretations WHERE uuid = ?`, uuid)
	return scanInterpretation(row)
}

// ListOptions defines filtering and pagination options.
type ListOptions struct {
	// Filtering
	SessionID string
	Command   string
	Source    string
	Success   *bool // nil = all
	StartTime *time.Time
	EndTime   *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "timestamp", "command", "score", "processing_time"
	SortOrder string // "ASC", "DESC"
}

// List retrieves events matching options, newest first by default.
func (s *InterpretationStore) List(options ListOptions) ([]*events.InterpretationEvent, error) {
	query, args, err := buildListQuery(options)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interpretations: %w", err)
	}
	defer rows.Close()

	var out []*events.InterpretationEvent
	for rows.Next() {
		event, err := scanInterpretation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interpretation: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interpretations: %w", err)
	}
	return out, nil
}

// Count returns the number of events matching the filters in options.
func (s *InterpretationStore) Count(options ListOptions) (int64, error) {
	options.Limit = 0
	options.Offset = 0
	query, args, err := buildListQuery(options)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.DB().QueryRow("SELECT COUNT(*) FROM ("+query+") AS filtered", args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interpretations: %w", err)
	}
	return count, nil
}

// CommandCount is the number of events classified as Command.
type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

// CommandCounts tallies events per command, most frequent first.
func (s *InterpretationStore) CommandCounts() ([]CommandCount, error) {
	rows, err := s.db.DB().Query(`
		SELECT command, COUNT(*) AS n
		FROM interpretations
		GROUP BY command
		ORDER BY n DESC, command ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to count commands: %w", err)
	}
	defer rows.Close()

	var out []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Command, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan command count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteBefore removes events older than cutoff and returns how many went.
func (s *InterpretationStore) DeleteBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.DB().Exec("DELETE FROM interpretations WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune interpretations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	logging.LogDatabaseOperation("prune", "interpretations", zap.Int64("rows", n))
	return n, nil
}

func buildListQuery(options ListOptions) (string, []interface{}, error) {
	query := `SELECT ` + interpretationColumns + ` FROM interpretations WHERE 1=1`
	var args []interface{}

	if options.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, options.SessionID)
	}
	if options.Command != "" {
		query += " AND command = ?"
		args = append(args, options.Command)
	}
	if options.Source != "" {
		query += " AND source = ?"
		args = append(args, options.Source)
	}
	if options.Success != nil {
		query += " AND success = ?"
		args = append(args, *options.Success)
	}
	if options.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, options.StartTime.UTC())
	}
	if options.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, options.EndTime.UTC())
	}

	sortBy, ok := sortColumns[options.SortBy]
	if !ok {
		return "", nil, fmt.Errorf("unsupported sort field %q", options.SortBy)
	}
	sortOrder := "DESC"
	switch options.SortOrder {
	case "", "DESC", "desc":
	case "ASC", "asc":
		sortOrder = "ASC"
	default:
		return "", nil, fmt.Errorf("unsupported sort order %q", options.SortOrder)
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
		if options.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, options.Offset)
		}
	}

	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInterpretation(row rowScanner) (*events.InterpretationEvent, error) {
	var event events.InterpretationEvent
	var paramsJSON string

	err := row.Scan(
		&event.UUID, &event.SessionID, &event.Timestamp, &event.Transcript,
		&event.WakeDetected, &event.WakePhrase, &event.WakeTier, &event.WakeFuzzy,
		&event.CommandText, &event.Command, &paramsJSON, &event.Source, &event.Score,
		&event.ResponseText, &event.ProcessingTime, &event.Success, &event.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("interpretation %w", ErrNotFound)
		}
		return nil, err
	}

	if err := event.SetParamsFromJSON(paramsJSON); err != nil {
		return nil, fmt.Errorf("failed to parse params JSON: %w", err)
	}
	return &event, nil
}
