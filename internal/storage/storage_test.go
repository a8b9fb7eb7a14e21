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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-voxmind/internal/events"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{Path: filepath.Join(t.TempDir(), "nested", "voxmind.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newEvent(session, command string, ts time.Time) *events.InterpretationEvent {
	e := events.NewInterpretationEvent(session, "hey vox "+command)
	e.Timestamp = ts
	e.SetWake(true, "hey vox", "primary", false, command)
	e.SetCommandResult(command, map[string]interface{}{"action": "set", "level": 35}, "rule", 0)
	e.ResponseText = "ok"
	return e
}

func TestNewDatabase(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Ping())
	assert.Contains(t, db.GetPath(), "voxmind.db")
	require.NoError(t, db.Checkpoint())
	require.NoError(t, db.Vacuum())
}

func TestInterpretationStore_InsertAndGet(t *testing.T) {
	store := NewInterpretationStore(newTestDB(t))
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	e := newEvent("s1", "control_volume", ts)

	require.NoError(t, store.Insert(e))

	got, err := store.GetByUUID(e.UUID)
	require.NoError(t, err)
	assert.Equal(t, e.UUID, got.UUID)
	assert.Equal(t, "s1", got.SessionID)
	assert.True(t, ts.Equal(got.Timestamp), "timestamp %v != %v", got.Timestamp, ts)
	assert.True(t, got.WakeDetected)
	assert.Equal(t, "primary", got.WakeTier)
	assert.Equal(t, "control_volume", got.Command)
	assert.Equal(t, "set", got.Params["action"])
	assert.Equal(t, float64(35), got.Params["level"])
	assert.Equal(t, "rule", got.Source)
	assert.True(t, got.Success)

	_, err = store.GetByUUID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInterpretationStore_InsertInvalid(t *testing.T) {
	store := NewInterpretationStore(newTestDB(t))
	e := events.NewInterpretationEvent("s1", "text")
	// No command set.
	assert.Error(t, store.Insert(e))
}

func TestInterpretationStore_ListAndCount(t *testing.T) {
	store := NewInterpretationStore(newTestDB(t))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cmds := []string{"search", "control_volume", "search", "system_power", "search"}
	for i, cmd := range cmds {
		session := "s1"
		if i%2 == 1 {
			session = "s2"
		}
		require.NoError(t, store.Insert(newEvent(session, cmd, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := store.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "search", all[0].Command)
	assert.True(t, all[0].Timestamp.After(all[4].Timestamp), "default order is newest first")

	searches, err := store.List(ListOptions{Command: "search"})
	require.NoError(t, err)
	assert.Len(t, searches, 3)

	page, err := store.List(ListOptions{SortOrder: "ASC", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "control_volume", page[0].Command)
	assert.Equal(t, "search", page[1].Command)

	n, err := store.Count(ListOptions{SessionID: "s2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	failed := false
	n, err = store.Count(ListOptions{Success: &failed})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	future := base.Add(time.Hour)
	n, err = store.Count(ListOptions{StartTime: &future})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = store.List(ListOptions{SortBy: "uuid; DROP TABLE interpretations"})
	assert.Error(t, err)
	_, err = store.List(ListOptions{SortOrder: "sideways"})
	assert.Error(t, err)
}

func TestInterpretationStore_CommandCounts(t *testing.T) {
	store := NewInterpretationStore(newTestDB(t))
	now := time.Now()
	for _, cmd := range []string{"search", "scroll", "search", "get_time", "scroll", "search"} {
		require.NoError(t, store.Insert(newEvent("s", cmd, now)))
	}

	counts, err := store.CommandCounts()
	require.NoError(t, err)
	assert.Equal(t, []CommandCount{
		{Command: "search", Count: 3},
		{Command: "scroll", Count: 2},
		{Command: "get_time", Count: 1},
	}, counts)
}

func TestInterpretationStore_DeleteBefore(t *testing.T) {
	store := NewInterpretationStore(newTestDB(t))
	now := time.Now()
	require.NoError(t, store.Insert(newEvent("s", "search", now.Add(-48*time.Hour))))
	require.NoError(t, store.Insert(newEvent("s", "scroll", now)))

	n, err := store.DeleteBefore(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := store.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "scroll", left[0].Command)
}

func TestWakeMetricsStore(t *testing.T) {
	store := NewWakeMetricsStore(newTestDB(t))

	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(0.5, wake.Metrics{TotalChecks: 10, Triggers: 2}))
	require.NoError(t, store.Save(0.8, wake.Metrics{TotalChecks: 20, Triggers: 5, FuzzyTriggers: 1, PrimaryTriggers: 4, SecondaryTriggers: 1}))

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, 0.8, latest.Sensitivity)
	assert.Equal(t, int64(20), latest.TotalChecks)
	assert.Equal(t, int64(1), latest.SecondaryTriggers)
	assert.False(t, latest.RecordedAt.IsZero())

	recent, err := store.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(10), recent[1].TotalChecks)
}
