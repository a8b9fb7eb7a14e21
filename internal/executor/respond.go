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
	"fmt"
	"math"
	"time"

	"github.com/loqalabs/loqa-voxmind/internal/intent"
)

// HelpText is spoken for assistant_help.
const HelpText = "I can open apps, folders and websites, search the web, tell you the time, " +
	"control volume and media playback, scroll, and lock or shut down the computer."

// NotUnderstood is spoken when no command applies.
const NotUnderstood = "Sorry, I didn't understand that."

var now = time.Now

// Respond returns the feedback spoken after a command is handed off.
func Respond(cmd intent.ParsedCommand) string {
	p := cmd.Params
	switch cmd.Command {
	case intent.CommandOpenBrowser:
		if b, ok := stringParam(p, "browser"); ok {
			return fmt.Sprintf("Opening %s.", b)
		}
		return "Opening your browser."

	case intent.CommandSearch:
		if q, ok := stringParam(p, "query"); ok {
			return fmt.Sprintf("Searching for %s.", q)
		}
		return "What should I search for?"

	case intent.CommandGetTime:
		t := now()
		return fmt.Sprintf("It is %s on %s.", t.Format("3:04 PM"), t.Format("Monday, January 2"))

	case intent.CommandSystemPower:
		mode, _ := stringParam(p, "mode")
		switch mode {
		case "shutdown":
			return "Shutting down the computer."
		case "restart":
			return "Restarting the computer."
		case "sleep":
			return "Putting the computer to sleep."
		case "lock":
			return "Locking the computer."
		}
		return "Which power action should I take?"

	case intent.CommandControlVolume:
		action, _ := stringParam(p, "action")
		switch action {
		case "set":
			if level, ok := intParam(p, "level"); ok {
				return fmt.Sprintf("Volume set to %d percent.", level)
			}
			return "What volume level?"
		case "up":
			return "Turning the volume up."
		case "down":
			return "Turning the volume down."
		case "mute":
			return "Muted."
		case "unmute":
			return "Unmuted."
		}
		return "Adjusting the volume."

	case intent.CommandControlApp:
		app, ok := stringParam(p, "app")
		if !ok {
			return "Which app?"
		}
		if action, _ := stringParam(p, "action"); action == "close" {
			return fmt.Sprintf("Closing %s.", app)
		}
		return fmt.Sprintf("Opening %s.", app)

	case intent.CommandOpenPath:
		if target, ok := stringParam(p, "target"); ok {
			return fmt.Sprintf("Opening %s.", target)
		}
		return "Which file or folder?"

	case intent.CommandAssistantHelp:
		return HelpText

	case intent.CommandNavigate:
		action, _ := stringParam(p, "action")
		switch action {
		case "back":
			return "Going back."
		case "home":
			return "Going home."
		case "notifications":
			return "Showing notifications."
		case "recents":
			return "Showing recent apps."
		}
		return "Where should I go?"

	case intent.CommandMediaControl:
		action, _ := stringParam(p, "action")
		switch action {
		case "play":
			return "Playing."
		case "pause":
			return "Paused."
		case "stop":
			return "Stopped."
		case "next":
			return "Next track."
		case "previous":
			return "Previous track."
		}
		return "Okay."

	case intent.CommandScroll:
		if dir, ok := stringParam(p, "direction"); ok {
			switch dir {
			case "top", "bottom":
				return fmt.Sprintf("Scrolling to the %s.", dir)
			}
			return fmt.Sprintf("Scrolling %s.", dir)
		}
		return "Scrolling."
	}
	return NotUnderstood
}

func stringParam(p intent.Params, key string) (string, bool) {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// intParam accepts ints and whole floats so params decoded from JSON work.
func intParam(p intent.Params, key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}
