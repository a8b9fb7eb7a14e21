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

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InterpretationEvent records one pass from transcript to executed command.
type InterpretationEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	SessionID string    `json:"session_id" db:"session_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Wake spotting
	Transcript   string `json:"transcript" db:"transcript"`
	WakeDetected bool   `json:"wake_detected" db:"wake_detected"`
	WakePhrase   string `json:"wake_phrase,omitempty" db:"wake_phrase"`
	WakeTier     string `json:"wake_tier,omitempty" db:"wake_tier"`
	WakeFuzzy    bool   `json:"wake_fuzzy" db:"wake_fuzzy"`

	// Classification
	CommandText string                 `json:"command_text" db:"command_text"`
	Command     string                 `json:"command" db:"command"`
	Params      map[string]interface{} `json:"params" db:"params"`
	Source      string                 `json:"source" db:"source"`
	Score       float64                `json:"score" db:"score"`

	// Execution
	ResponseText   string `json:"response_text" db:"response_text"`
	ProcessingTime int64  `json:"processing_time_ms" db:"processing_time_ms"`
	Success        bool   `json:"success" db:"success"`
	ErrorMessage   string `json:"error_message,omitempty" db:"error_message"`
}

// NewInterpretationEvent creates an event with a fresh UUID and timestamp.
func NewInterpretationEvent(sessionID, transcript string) *InterpretationEvent {
	return &InterpretationEvent{
		UUID:       uuid.NewString(),
		SessionID:  sessionID,
		Timestamp:  time.Now(),
		Transcript: transcript,
		Params:     make(map[string]interface{}),
		Success:    true,
	}
}

// SetWake records the wake spotter's verdict and the text left for the
// classifier.
func (e *InterpretationEvent) SetWake(detected bool, phrase, tier string, fuzzy bool, commandText string) {
	e.WakeDetected = detected
	e.WakePhrase = phrase
	e.WakeTier = tier
	e.WakeFuzzy = fuzzy
	e.CommandText = commandText
}

// SetCommandResult records the classification.
func (e *InterpretationEvent) SetCommandResult(command string, params map[string]interface{}, source string, score float64) {
	e.Command = command
	e.Params = params
	e.Source = source
	e.Score = score
}

// SetResponse sets the spoken response and marks processing as complete.
func (e *InterpretationEvent) SetResponse(responseText string) {
	e.ResponseText = responseText
	e.ProcessingTime = time.Since(e.Timestamp).Milliseconds()
}

// SetError marks the event as failed.
func (e *InterpretationEvent) SetError(err error) {
	e.Success = false
	e.ErrorMessage = err.Error()
	e.ProcessingTime = time.Since(e.Timestamp).Milliseconds()
}

// ParamsJSON returns params as a JSON string for database storage.
func (e *InterpretationEvent) ParamsJSON() (string, error) {
	if e.Params == nil {
		return "{}", nil
	}

	data, err := json.Marshal(e.Params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	return string(data), nil
}

// SetParamsFromJSON parses a JSON string into params.
func (e *InterpretationEvent) SetParamsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "{}" {
		e.Params = make(map[string]interface{})
		return nil
	}

	var params map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &params); err != nil {
		return fmt.Errorf("failed to unmarshal params JSON: %w", err)
	}

	e.Params = params
	return nil
}

// IsValid performs basic validation on the event.
func (e *InterpretationEvent) IsValid() error {
	if e.UUID == "" {
		return fmt.Errorf("UUID is required")
	}

	if e.SessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	if e.Command == "" {
		return fmt.Errorf("command is required")
	}

	if e.Score < 0 || e.Score > 1 {
		return fmt.Errorf("score must be between 0 and 1")
	}

	return nil
}

// String returns a human-readable representation of the event.
func (e *InterpretationEvent) String() string {
	return fmt.Sprintf("InterpretationEvent{UUID: %s, Session: %s, Command: %s, Text: %q, Source: %s, Success: %t}",
		e.UUID, e.SessionID, e.Command, e.CommandText, e.Source, e.Success)
}
