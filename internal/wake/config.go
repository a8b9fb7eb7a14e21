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
	"fmt"
	"strings"
	"time"

	"github.com/loqalabs/loqa-voxmind/internal/textnorm"
)

// Sensitivity tiers. A tier enabled at some level stays enabled at every
// higher level.
const (
	SecondaryTierSensitivity = 0.4
	FuzzyTierSensitivity     = 0.8
)

// DefaultMaxStartOffset is how far into the text (in bytes of normalized
// text) a wake phrase may begin and still count, leaving room for one short
// filler word such as "ok" or "um".
const DefaultMaxStartOffset = 5

// Config holds wake phrase detection settings. It is read under the
// detector's lock, so replacing it between calls is safe.
type Config struct {
	// PrimaryPhrases are checked first, in order.
	PrimaryPhrases []string `yaml:"primary_phrases"`
	// SecondaryPhrases are shorter and easier to hit by accident; they are
	// only consulted at medium sensitivity and above.
	SecondaryPhrases []string `yaml:"secondary_phrases"`

	Sensitivity float64       `yaml:"sensitivity"`
	Debounce    time.Duration `yaml:"debounce"`

	PrimaryFuzzyThreshold   float64 `yaml:"primary_fuzzy_threshold"`
	SecondaryFuzzyThreshold float64 `yaml:"secondary_fuzzy_threshold"`

	MaxStartOffset int `yaml:"max_start_offset"`
}

// DefaultConfig returns the stock "hey vox" configuration.
func DefaultConfig() Config {
	return Config{
		PrimaryPhrases:          []string{"hey vox", "ok vox", "hey voxmind"},
		SecondaryPhrases:        []string{"vox"},
		Sensitivity:             0.5,
		Debounce:                time.Second,
		PrimaryFuzzyThreshold:   0.8,
		SecondaryFuzzyThreshold: 0.9,
		MaxStartOffset:          DefaultMaxStartOffset,
	}
}

// Validate reports the first setting that is out of range.
func (c Config) Validate() error {
	if len(c.PrimaryPhrases) == 0 {
		return fmt.Errorf("at least one primary wake phrase is required")
	}
	if c.Sensitivity < 0 || c.Sensitivity > 1 {
		return fmt.Errorf("sensitivity must be within [0,1]: %v", c.Sensitivity)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative: %v", c.Debounce)
	}
	if c.PrimaryFuzzyThreshold < 0 || c.PrimaryFuzzyThreshold > 1 {
		return fmt.Errorf("primary fuzzy threshold must be within [0,1]: %v", c.PrimaryFuzzyThreshold)
	}
	if c.SecondaryFuzzyThreshold < 0 || c.SecondaryFuzzyThreshold > 1 {
		return fmt.Errorf("secondary fuzzy threshold must be within [0,1]: %v", c.SecondaryFuzzyThreshold)
	}
	if c.SecondaryFuzzyThreshold < c.PrimaryFuzzyThreshold {
		return fmt.Errorf("secondary fuzzy threshold (%v) must be at least the primary threshold (%v)",
			c.SecondaryFuzzyThreshold, c.PrimaryFuzzyThreshold)
	}
	if c.MaxStartOffset < 0 {
		return fmt.Errorf("max start offset must not be negative: %d", c.MaxStartOffset)
	}
	return nil
}

// sanitized returns a copy with normalized phrases and every numeric field
// forced into range, so detection never has to fail.
func (c Config) sanitized() Config {
	out := c
	out.PrimaryPhrases = normalizePhrases(c.PrimaryPhrases)
	out.SecondaryPhrases = normalizePhrases(c.SecondaryPhrases)
	out.Sensitivity = clampUnit(c.Sensitivity)
	out.PrimaryFuzzyThreshold = clampUnit(c.PrimaryFuzzyThreshold)
	out.SecondaryFuzzyThreshold = clampUnit(c.SecondaryFuzzyThreshold)
	if out.SecondaryFuzzyThreshold < out.PrimaryFuzzyThreshold {
		out.SecondaryFuzzyThreshold = out.PrimaryFuzzyThreshold
	}
	if out.Debounce < 0 {
		out.Debounce = 0
	}
	if out.MaxStartOffset < 0 {
		out.MaxStartOffset = 0
	}
	return out
}

func normalizePhrases(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		p = strings.Join(textnorm.Tokens(textnorm.Normalize(p)), " ")
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
