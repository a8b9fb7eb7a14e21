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
	"sort"
	"strings"
)

// KeywordIndex is the fast-fail pre-filter: literal keywords mapped to the
// commands they hint at. A keyword is present when it is a substring of the
// normalized text.
//
// The index must stay sound. For every rule, each phrasing the rule is
// meant to match has to contain at least one keyword that maps to the
// rule's command. When the index yields any candidates the classifier
// only tries rules for those candidates, so a missing keyword silently
// drops coverage for that phrasing. TestKeywordIndexSoundness enforces
// this against Rule.Examples; extend both together.
type KeywordIndex struct {
	entries []keywordEntry
}

type keywordEntry struct {
	keyword  string
	commands []string
}

// NewKeywordIndex builds an index from keyword → command ids. Keywords are
// lowercased; empty keywords are ignored.
func NewKeywordIndex(mapping map[string][]string) *KeywordIndex {
	idx := &KeywordIndex{}
	for kw, cmds := range mapping {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || len(cmds) == 0 {
			continue
		}
		idx.entries = append(idx.entries, keywordEntry{
			keyword:  kw,
			commands: append([]string(nil), cmds...),
		})
	}
	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].keyword < idx.entries[j].keyword
	})
	return idx
}

// Candidates returns the union of commands hinted at by every keyword found
// in normalized. An empty set means no hint.
func (k *KeywordIndex) Candidates(normalized string) CommandSet {
	out := make(CommandSet)
	if k == nil || normalized == "" {
		return out
	}
	for _, e := range k.entries {
		if strings.Contains(normalized, e.keyword) {
			for _, c := range e.commands {
				out[c] = struct{}{}
			}
		}
	}
	return out
}

// Keywords lists the keywords that hint at command, sorted.
func (k *KeywordIndex) Keywords(command string) []string {
	var out []string
	for _, e := range k.entries {
		for _, c := range e.commands {
			if c == command {
				out = append(out, e.keyword)
				break
			}
		}
	}
	return out
}

// Len is the number of keywords in the index.
func (k *KeywordIndex) Len() int {
	return len(k.entries)
}

// DefaultKeywords is the stock keyword mapping for DefaultRules.
func DefaultKeywords() map[string][]string {
	return map[string][]string{
		// Browser
		"browser": {CommandOpenBrowser},
		"chrome":  {CommandOpenBrowser},
		"firefox": {CommandOpenBrowser},
		"safari":  {CommandOpenBrowser},
		"edge":    {CommandOpenBrowser},
		"google":  {CommandOpenBrowser, CommandSearch},

		// Search
		"search":   {CommandSearch},
		"lookup":   {CommandSearch},
		"look up":  {CommandSearch},
		"look for": {CommandSearch},
		"find":     {CommandSearch},

		// Time
		"time":  {CommandGetTime},
		"date":  {CommandGetTime},
		"today": {CommandGetTime},

		// Power
		"shutdown":  {CommandSystemPower},
		"shut down": {CommandSystemPower},
		"power off": {CommandSystemPower},
		"turn off":  {CommandSystemPower},
		"restart":   {CommandSystemPower},
		"reboot":    {CommandSystemPower},
		"sleep":     {CommandSystemPower},
		"suspend":   {CommandSystemPower},
		"lock":      {CommandSystemPower},

		// Volume
		"volume": {CommandControlVolume},
		"sound":  {CommandControlVolume},
		"audio":  {CommandControlVolume},
		"mute":   {CommandControlVolume},
		"unmute": {CommandControlVolume},

		// Apps and paths
		"open":      {CommandOpenBrowser, CommandControlApp, CommandOpenPath},
		"start":     {CommandOpenBrowser, CommandControlApp},
		"launch":    {CommandOpenBrowser, CommandControlApp},
		"run":       {CommandOpenBrowser, CommandControlApp},
		"close":     {CommandControlApp},
		"quit":      {CommandControlApp},
		"exit":      {CommandControlApp},
		"stop":      {CommandControlApp, CommandMediaControl},
		"reveal":    {CommandOpenPath},
		"file":      {CommandOpenPath},
		"folder":    {CommandOpenPath},
		"directory": {CommandOpenPath},
		"path":      {CommandOpenPath},

		// Help
		"help":            {CommandAssistantHelp},
		"capabilities":    {CommandAssistantHelp},
		"who are you":     {CommandAssistantHelp},
		"what are you":    {CommandAssistantHelp},
		"what can you do": {CommandAssistantHelp},
		"what is this":    {CommandAssistantHelp},

		// Navigation
		"go back":       {CommandNavigate},
		"back":          {CommandNavigate},
		"go home":       {CommandNavigate},
		"home":          {CommandNavigate},
		"notifications": {CommandNavigate},
		"recent apps":   {CommandNavigate},
		"recent":        {CommandNavigate},

		// Media
		"play":     {CommandMediaControl},
		"pause":    {CommandMediaControl},
		"resume":   {CommandMediaControl},
		"next":     {CommandMediaControl},
		"previous": {CommandMediaControl},
		"prev":     {CommandMediaControl},
		"skip":     {CommandMediaControl},
		"song":     {CommandMediaControl},
		"track":    {CommandMediaControl},

		// Scroll
		"scroll": {CommandScroll},
		"up":     {CommandScroll},
		"down":   {CommandScroll},
		"top":    {CommandScroll},
		"bottom": {CommandScroll},
	}
}

// DefaultKeywordIndex builds the index for DefaultKeywords.
func DefaultKeywordIndex() *KeywordIndex {
	return NewKeywordIndex(DefaultKeywords())
}
