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
	"reflect"
	"testing"

	"github.com/loqalabs/loqa-voxmind/internal/textnorm"
)

// Every rule example must be reachable through the keyword pre-filter and
// must classify to the rule's own command with the stock table.
func TestKeywordIndexSoundness(t *testing.T) {
	c := NewClassifier()
	idx := DefaultKeywordIndex()

	for _, rule := range DefaultRules() {
		if len(rule.Examples) == 0 {
			t.Errorf("rule %s has no examples", rule.Command)
		}
		for _, ex := range rule.Examples {
			norm := textnorm.Normalize(ex)
			if !rule.Pattern.MatchString(norm) {
				t.Errorf("%s: pattern does not match its example %q", rule.Command, ex)
			}
			if cands := idx.Candidates(norm); !cands.Contains(rule.Command) {
				t.Errorf("%s: example %q only yields candidates %v", rule.Command, ex, cands.Sorted())
			}
			if got := c.Classify(ex).Command; got != rule.Command {
				t.Errorf("%s: example %q classified as %s", rule.Command, ex, got)
			}
		}
	}
}

func TestKeywordIndex_Candidates(t *testing.T) {
	idx := DefaultKeywordIndex()

	tests := []struct {
		text string
		want []string
	}{
		{"lock my laptop", []string{CommandScroll, CommandSystemPower}},
		{"google it", []string{CommandOpenBrowser, CommandSearch}},
		{"tell me a joke", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		got := idx.Candidates(tt.text).Sorted()
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Candidates(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestKeywordIndex_Keywords(t *testing.T) {
	idx := NewKeywordIndex(map[string][]string{
		"Up":     {CommandScroll},
		"down":   {CommandScroll},
		"volume": {CommandControlVolume},
		"  ":     {CommandScroll},
		"empty":  nil,
	})

	if idx.Len() != 3 {
		t.Errorf("Len() = %d, want 3", idx.Len())
	}
	if got := idx.Keywords(CommandScroll); !reflect.DeepEqual(got, []string{"down", "up"}) {
		t.Errorf("Keywords(scroll) = %v", got)
	}
}
