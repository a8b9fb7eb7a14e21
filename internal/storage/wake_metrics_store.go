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

	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

// WakeMetricsSnapshot is a persisted copy of the spotter's counters.
type WakeMetricsSnapshot struct {
	ID          int64
	RecordedAt  time.Time
	Sensitivity float64
	wake.Metrics
}

// WakeMetricsStore persists wake spotter metrics snapshots.
type WakeMetricsStore struct {
	db *Database
}

// NewWakeMetricsStore creates a store on db.
func NewWakeMetricsStore(db *Database) *WakeMetricsStore {
	return &WakeMetricsStore{db: db}
}

// Save records m as taken at sensitivity.
func (s *WakeMetricsStore) Save(sensitivity float64, m wake.Metrics) error {
	_, err := s.db.DB().Exec(`
		INSERT INTO wake_metrics (
			recorded_at, sensitivity, total_checks, triggers,
			debounce_suppressed, fuzzy_triggers, primary_triggers, secondary_triggers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC(), sensitivity, m.TotalChecks, m.Triggers,
		m.DebounceSuppressed, m.FuzzyTriggers, m.PrimaryTriggers, m.SecondaryTriggers,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wake metrics: %w", err)
	}

	logging.LogDatabaseOperation("insert", "wake_metrics",
		zap.Int64("total_checks", m.TotalChecks),
		zap.Int64("triggers", m.Triggers))
	return nil
}

// Recent returns up to limit snapshots, newest first.
func (s *WakeMetricsStore) Recent(limit int) ([]WakeMetricsSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.DB().Query(`
		SELECT id, recorded_at, sensitivity, total_checks, triggers,
			debounce_suppressed, fuzzy_triggers, primary_triggers, secondary_triggers
		FROM wake_metrics
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query wake metrics: %w", err)
	}
	defer rows.Close()

	var out []WakeMetricsSnapshot
	for rows.Next() {
		snap, err := scanWakeMetrics(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Latest returns the newest snapshot or ErrNotFound.
func (s *WakeMetricsStore) Latest() (WakeMetricsSnapshot, error) {
	row := s.db.DB().QueryRow(`
		SELECT id, recorded_at, sensitivity, total_checks, triggers,
			debounce_suppressed, fuzzy_triggers, primary_triggers, secondary_triggers
		FROM wake_metrics
		ORDER BY id DESC
		LIMIT 1`)
	snap, err := scanWakeMetrics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WakeMetricsSnapshot{}, fmt.Errorf("wake metrics %w", ErrNotFound)
	}
	return snap, err
}

func scanWakeMetrics(row rowScanner) (WakeMetricsSnapshot, error) {
	var snap WakeMetricsSnapshot
	err := row.Scan(
		&snap.ID, &snap.RecordedAt, &snap.Sensitivity, &snap.TotalChecks, &snap.Triggers,
		&snap.DebounceSuppressed, &snap.FuzzyTriggers, &snap.PrimaryTriggers, &snap.SecondaryTriggers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to scan wake metrics: %w", err)
	}
	return snap, nil
}
