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

import (
	"regexp"
	"strconv"
	"strings"
)

var browserAliases = map[string]string{
	"google chrome":  "chrome",
	"chrome":         "chrome",
	"chrome browser": "chrome",
	"google":         "chrome",
	"firefox":        "firefox",
	"mozilla":        "firefox",
	"ff":             "firefox",
	"safari":         "safari",
	"edge":           "edge",
	"edge browser":   "edge",
	"msedge":         "edge",
	"microsoft edge": "edge",
	"brave":          "brave",
	"opera":          "opera",
}

func noParams(Match) (Params, error) {
	return Params{}, nil
}

func browserParams(m Match) (Params, error) {
	name, _ := m.Group("browser")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Params{"browser": nil}, nil
	}
	if canon, ok := browserAliases[name]; ok {
		return Params{"browser": canon}, nil
	}
	return Params{"browser": name}, nil
}

var (
	queryLeadIn   = regexp.MustCompile(`(?i)^(?:for|about|on)\s+`)
	queryPleaseRe = regexp.MustCompile(`(?i)\bplease\b\.?$`)
)

func searchParams(m Match) (Params, error) {
	q, _ := m.Group("query")
	q = strings.TrimSpace(q)
	q = queryLeadIn.ReplaceAllString(q, "")
	q = strings.TrimSpace(queryPleaseRe.ReplaceAllString(q, ""))
	return Params{"query": q}, nil
}

func systemPowerParams(m Match) (Params, error) {
	for _, mode := range []string{"shutdown", "restart", "sleep", "lock"} {
		if _, ok := m.Group(mode); ok {
			return Params{"mode": mode}, nil
		}
	}
	return Params{"mode": nil}, nil
}

var volumeLevelRe = regexp.MustCompile(`\d{1,3}`)

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// volumeParams detects mute/unmute and relative adjustments before looking
// for an absolute level. Levels are clamped to [0, 100].
func volumeParams(m Match) (Params, error) {
	t := strings.ToLower(m.Text)
	switch {
	case strings.Contains(t, "unmute"):
		return Params{"action": "unmute", "level": nil}, nil
	case strings.Contains(t, "mute"):
		return Params{"action": "mute", "level": nil}, nil
	case containsAny(t, "up", "increase", "raise", "louder"):
		return Params{"action": "up", "level": nil}, nil
	case containsAny(t, "down", "decrease", "lower", "softer", "quieter"):
		return Params{"action": "down", "level": nil}, nil
	}
	if digits := volumeLevelRe.FindString(t); digits != "" {
		level, err := strconv.Atoi(digits)
		if err != nil {
			return nil, err
		}
		return Params{"action": "set", "level": clampLevel(level)}, nil
	}
	if strings.Contains(t, "set") {
		return Params{"action": "set", "level": nil}, nil
	}
	return Params{"action": nil, "level": nil}, nil
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

var appActions = map[string]string{
	"open":   "open",
	"start":  "open",
	"launch": "open",
	"run":    "open",
	"close":  "close",
	"quit":   "close",
	"exit":   "close",
	"stop":   "close",
}

func appParams(m Match) (Params, error) {
	verb, _ := m.Group("app_action")
	app, _ := m.Group("app")
	app = strings.Trim(app, " \"'")

	p := Params{"action": nil, "app": nil}
	if action, ok := appActions[strings.ToLower(verb)]; ok {
		p["action"] = action
	}
	if app != "" {
		p["app"] = app
	}
	return p, nil
}

func pathParams(m Match) (Params, error) {
	target, _ := m.Group("target")
	target = strings.Trim(target, " \"'")
	if target == "" {
		return Params{"target": nil}, nil
	}
	return Params{"target": target}, nil
}

func navigateParams(m Match) (Params, error) {
	t := strings.ToLower(m.Text)
	switch {
	case strings.Contains(t, "back"):
		return Params{"action": "back"}, nil
	case strings.Contains(t, "home"):
		return Params{"action": "home"}, nil
	case strings.Contains(t, "notification"):
		return Params{"action": "notifications"}, nil
	case strings.Contains(t, "recent"):
		return Params{"action": "recents"}, nil
	}
	return Params{"action": nil}, nil
}

func mediaParams(m Match) (Params, error) {
	t := strings.ToLower(m.Text)
	switch {
	case strings.Contains(t, "play") && !strings.Contains(t, "pause"):
		return Params{"action": "play"}, nil
	case strings.Contains(t, "pause"):
		return Params{"action": "pause"}, nil
	case strings.Contains(t, "stop"):
		return Params{"action": "stop"}, nil
	case containsAny(t, "next", "skip"):
		return Params{"action": "next"}, nil
	case containsAny(t, "previous", "prev", "back"):
		return Params{"action": "previous"}, nil
	}
	return Params{"action": nil}, nil
}

func scrollParams(m Match) (Params, error) {
	t := strings.ToLower(m.Text)
	switch {
	case strings.Contains(t, "up"):
		return Params{"direction": "up"}, nil
	case strings.Contains(t, "down"):
		return Params{"direction": "down"}, nil
	case strings.Contains(t, "top"):
		return Params{"direction": "top"}, nil
	case strings.Contains(t, "bottom"):
		return Params{"direction": "bottom"}, nil
	}
	return Params{"direction": nil}, nil
}
