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

import "regexp"

// Match is a successful pattern match: the matched span and its named
// capture groups. Groups that did not participate are absent.
type Match struct {
	Text   string
	Groups map[string]string
}

// Group returns the named capture and whether it participated in the match.
func (m Match) Group(name string) (string, bool) {
	v, ok := m.Groups[name]
	return v, ok
}

// Extractor turns a match into command parameters.
type Extractor func(m Match) (Params, error)

// Rule binds a pattern to a command. Rules are evaluated in table order and
// the first match wins.
type Rule struct {
	Command string
	Pattern *regexp.Regexp
	Extract Extractor
	// Examples are phrasings this rule must classify. They back the keyword
	// index soundness check and seed the semantic classifier.
	Examples []string
}

func (r Rule) match(text string) (Match, bool) {
	loc := r.Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Match{}, false
	}
	m := Match{Text: text[loc[0]:loc[1]], Groups: make(map[string]string)}
	for i, name := range r.Pattern.SubexpNames() {
		if i == 0 || name == "" || loc[2*i] < 0 {
			continue
		}
		m.Groups[name] = text[loc[2*i]:loc[2*i+1]]
	}
	return m, true
}

var (
	openBrowserPattern = regexp.MustCompile(`(?i)\b(?:open|launch|start|run)\s+(?:the\s+)?(?:(?P<browser>google chrome|microsoft edge|chrome|firefox|mozilla|safari|msedge|edge|brave|opera|google)\b|web browser|browser)`)
	searchPattern      = regexp.MustCompile(`(?i)\b(?:search for|search|google|look up|lookup|look for|find me|find)\b\s+(?P<query>[^\n\r]+)`)
	getTimePattern     = regexp.MustCompile(`(?i)\b(?:what(?:'s| is)? the time|what time is it|tell me the time|current time|time now|what(?:'s| is)? the date|what date is it|today(?:'s)? date)\b`)
	systemPowerPattern = regexp.MustCompile(`(?i)(?P<shutdown>\b(?:shutdown|shut down|power off|turn off)\b)|(?P<restart>\b(?:restart|reboot)\b)|(?P<sleep>\b(?:sleep|suspend)\b)|(?P<lock>\b(?:lock screen|lock the computer|lock my laptop|lock)\b)`)
	volumePattern      = regexp.MustCompile(`(?i).*\b(?:volume|sound|audio|mute|unmute)\b.*`)
	folderPathPattern  = regexp.MustCompile(`(?i)\b(?:open|show|reveal)\b\s+(?:the\s+)?(?P<target>(?:file|folder|directory|path)\s+[a-z0-9_./\\:\- ]+|[a-z0-9_./\\:\- ]*?\b(?:folder|directory)\b)`)
	controlAppPattern  = regexp.MustCompile(`(?i)\b(?P<app_action>open|start|launch|run|close|quit|exit|stop)\b\s+(?P<app>[a-z0-9 ._+\-]+)`)
	openPathPattern    = regexp.MustCompile(`(?i)\b(?:open|show|reveal)\b\s+(?:the\s+)?(?P<target>(?:file|folder|directory|path)?\s*[a-z0-9_./\\:\- ]+)`)
	helpPattern        = regexp.MustCompile(`(?i)\b(?:help|what can you do|what are your capabilities|who are you|what is this|what are you)\b`)
	navigatePattern    = regexp.MustCompile(`(?i)\b(?:go back|back|go home|home|show notifications|notifications|show recent apps|recent apps)\b`)
	mediaPattern       = regexp.MustCompile(`(?i)\b(?:play|pause|resume|stop|skip|next(?: song| track)?|previous(?: song| track)?|prev(?: track)?)\b`)
	scrollPattern      = regexp.MustCompile(`(?i)\bscroll (?:up|down|to the top|to top|to the bottom|to bottom)\b`)
)

// DefaultRules returns the stock rule table in priority order. Each call
// returns a fresh slice.
func DefaultRules() []Rule {
	return []Rule{
		{
			Command: CommandOpenBrowser, Pattern: openBrowserPattern, Extract: browserParams,
			Examples: []string{"open the browser", "launch chrome", "start firefox", "open google chrome", "run microsoft edge", "open web browser"},
		},
		{
			Command: CommandSearch, Pattern: searchPattern, Extract: searchParams,
			Examples: []string{"search for quantum tunneling", "google nearest cafe", "look up the weather in paris", "find me a pizza place", "lookup golang generics", "look for cheap flights"},
		},
		{
			Command: CommandGetTime, Pattern: getTimePattern, Extract: noParams,
			Examples: []string{"what time is it", "what's the date", "tell me the time", "what is today's date", "current time please"},
		},
		{
			Command: CommandSystemPower, Pattern: systemPowerPattern, Extract: systemPowerParams,
			Examples: []string{"shut down the computer", "restart", "reboot now", "go to sleep", "lock my laptop", "power off", "suspend the machine", "lock screen"},
		},
		{
			Command: CommandControlVolume, Pattern: volumePattern, Extract: volumeParams,
			Examples: []string{"set volume to 35 percent", "volume up", "mute", "unmute the sound", "turn the audio down", "increase volume"},
		},
		{
			Command: CommandOpenPath, Pattern: folderPathPattern, Extract: pathParams,
			Examples: []string{"open downloads folder", "open file report.docx", "show the documents folder", "reveal file budget.xlsx", "open the pictures directory"},
		},
		{
			Command: CommandControlApp, Pattern: controlAppPattern, Extract: appParams,
			Examples: []string{"open notepad", "close spotify", "launch calculator", "quit vlc", "run vscode", "exit the terminal", "stop spotify"},
		},
		{
			Command: CommandOpenPath, Pattern: openPathPattern, Extract: pathParams,
			Examples: []string{"reveal c:/users/me/notes.txt"},
		},
		{
			Command: CommandAssistantHelp, Pattern: helpPattern, Extract: noParams,
			Examples: []string{"help", "what can you do", "who are you", "what are your capabilities"},
		},
		{
			Command: CommandNavigate, Pattern: navigatePattern, Extract: navigateParams,
			Examples: []string{"go back", "go home", "show notifications", "show recent apps"},
		},
		{
			Command: CommandMediaControl, Pattern: mediaPattern, Extract: mediaParams,
			Examples: []string{"play music", "pause", "next song", "previous track", "skip this track", "resume", "stop"},
		},
		{
			Command: CommandScroll, Pattern: scrollPattern, Extract: scrollParams,
			Examples: []string{"scroll down", "scroll up", "scroll to the top", "scroll to bottom"},
		},
	}
}
