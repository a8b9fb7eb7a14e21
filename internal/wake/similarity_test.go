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

package wake

import (
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"hey vox", "hey vox", 1},
		{"", "", 1},
		{"abc", "", 0},
		{"", "abc", 0},
		{"hey box", "hey vox", 6.0 / 7.0},
		{"heyvox", "hey vox", 6.0 / 7.0},
		{"vox", "box", 2.0 / 3.0},
		{"abc", "xyz", 0},
		{"ünï", "uni", 1.0 / 3.0},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
		if back := Similarity(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
			t.Errorf("Similarity not symmetric for %q/%q: %f vs %f", tt.a, tt.b, got, back)
		}
	}
}

func TestFuzzyMatch(t *testing.T) {
	if !FuzzyMatch("hey box", "hey vox", 0.8) {
		t.Error("expected hey box to fuzzy-match hey vox at 0.8")
	}
	if FuzzyMatch("vox", "box", 0.9) {
		t.Error("expected vox not to fuzzy-match box at 0.9")
	}
	if !FuzzyMatch("anything", "anything", 1) {
		t.Error("identical strings must match at threshold 1")
	}
}
