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

package intent

import "sort"

// Command identifiers produced by the classifier.
const (
	CommandOpenBrowser   = "open_browser"
	CommandSearch        = "search"
	CommandGetTime       = "get_time"
	CommandSystemPower   = "system_power"
	CommandControlVolume = "control_volume"
	CommandControlApp    = "control_app"
	CommandOpenPath      = "open_path"
	CommandAssistantHelp = "assistant_help"
	CommandNavigate      = "navigate"
	CommandMediaControl  = "media_control"
	CommandScroll        = "scroll"
	CommandUnknown       = "unknown"
)

// Params holds extracted command parameters. A nil value means the
// parameter applies to the command but could not be determined.
type Params map[string]interface{}

// ParsedCommand is the structured result handed to an executor.
type ParsedCommand struct {
	Command string `json:"command"`
	Params  Params `json:"params"`
}

// Unknown is the command returned when nothing could be interpreted.
func Unknown() ParsedCommand {
	return ParsedCommand{Command: CommandUnknown, Params: Params{}}
}

// Source identifies which stage produced a classification.
type Source string

const (
	SourceRule     Source = "rule"
	SourceFallback Source = "fallback"
	SourceSemantic Source = "semantic"
	SourceNone     Source = "none"
)

// Classification is a ParsedCommand plus how it was reached.
type Classification struct {
	ParsedCommand
	Source Source `json:"source"`
	// Text is the normalized text that was classified, after wake prefix
	// stripping and compound splitting.
	Text string `json:"text"`
	// Score is the semantic similarity when Source is SourceSemantic.
	Score float64 `json:"score,omitempty"`
}

// CommandSet is a set of command identifiers.
type CommandSet map[string]struct{}

// Contains reports whether id is in the set.
func (s CommandSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the identifiers in lexical order.
func (s CommandSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
