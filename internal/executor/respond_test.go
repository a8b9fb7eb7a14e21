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

package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/loqalabs/loqa-voxmind/internal/intent"
)

func TestRespond(t *testing.T) {
	tests := []struct {
		name string
		cmd  intent.ParsedCommand
		want string
	}{
		{"browser", intent.ParsedCommand{Command: intent.CommandOpenBrowser, Params: intent.Params{"browser": "chrome"}}, "Opening chrome."},
		{"any browser", intent.ParsedCommand{Command: intent.CommandOpenBrowser, Params: intent.Params{"browser": nil}}, "Opening your browser."},
		{"search", intent.ParsedCommand{Command: intent.CommandSearch, Params: intent.Params{"query": "quantum tunneling"}}, "Searching for quantum tunneling."},
		{"empty search", intent.ParsedCommand{Command: intent.CommandSearch, Params: intent.Params{}}, "What should I search for?"},
		{"lock", intent.ParsedCommand{Command: intent.CommandSystemPower, Params: intent.Params{"mode": "lock"}}, "Locking the computer."},
		{"volume int", intent.ParsedCommand{Command: intent.CommandControlVolume, Params: intent.Params{"action": "set", "level": 35}}, "Volume set to 35 percent."},
		{"volume json", intent.ParsedCommand{Command: intent.CommandControlVolume, Params: intent.Params{"action": "set", "level": float64(35)}}, "Volume set to 35 percent."},
		{"volume no level", intent.ParsedCommand{Command: intent.CommandControlVolume, Params: intent.Params{"action": "set", "level": nil}}, "What volume level?"},
		{"mute", intent.ParsedCommand{Command: intent.CommandControlVolume, Params: intent.Params{"action": "mute"}}, "Muted."},
		{"close app", intent.ParsedCommand{Command: intent.CommandControlApp, Params: intent.Params{"action": "close", "app": "spotify"}}, "Closing spotify."},
		{"open app", intent.ParsedCommand{Command: intent.CommandControlApp, Params: intent.Params{"action": "open", "app": "notepad"}}, "Opening notepad."},
		{"path", intent.ParsedCommand{Command: intent.CommandOpenPath, Params: intent.Params{"target": "downloads folder"}}, "Opening downloads folder."},
		{"help", intent.ParsedCommand{Command: intent.CommandAssistantHelp, Params: intent.Params{}}, HelpText},
		{"navigate", intent.ParsedCommand{Command: intent.CommandNavigate, Params: intent.Params{"action": "recents"}}, "Showing recent apps."},
		{"media", intent.ParsedCommand{Command: intent.CommandMediaControl, Params: intent.Params{"action": "next"}}, "Next track."},
		{"scroll", intent.ParsedCommand{Command: intent.CommandScroll, Params: intent.Params{"direction": "top"}}, "Scrolling to the top."},
		{"scroll down", intent.ParsedCommand{Command: intent.CommandScroll, Params: intent.Params{"direction": "down"}}, "Scrolling down."},
		{"unknown", intent.Unknown(), NotUnderstood},
		{"nil params", intent.ParsedCommand{Command: intent.CommandControlApp}, "Which app?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Respond(tt.cmd); got != tt.want {
				t.Errorf("Respond() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRespond_Time(t *testing.T) {
	orig := now
	defer func() { now = orig }()
	now = func() time.Time { return time.Date(2025, time.March, 3, 15, 4, 0, 0, time.UTC) }

	got := Respond(intent.ParsedCommand{Command: intent.CommandGetTime, Params: intent.Params{}})
	if got != "It is 3:04 PM on Monday, March 3." {
		t.Errorf("Respond(get_time) = %q", got)
	}
}

func TestRespond_EveryCommand(t *testing.T) {
	for _, r := range intent.DefaultRules() {
		got := Respond(intent.ParsedCommand{Command: r.Command, Params: intent.Params{}})
		if got == "" || strings.Contains(got, "%!") {
			t.Errorf("Respond(%s) = %q", r.Command, got)
		}
		if got == NotUnderstood {
			t.Errorf("Respond(%s) fell through to the unknown response", r.Command)
		}
	}
}
