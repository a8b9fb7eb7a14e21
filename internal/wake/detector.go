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

// Package wake decides whether an utterance opens with a wake phrase.
//
// Detection is precision first: primary phrases before secondary ones and
// exact matching before approximate matching, because a false accept makes
// the assistant act on speech that was not meant for it. Sensitivity only
// ever adds strategies:
//
//	sensitivity < 0.4   primary phrases, exact
//	sensitivity >= 0.4  + secondary phrases, exact
//	sensitivity >= 0.8  + fuzzy matching for each enabled phrase set
//
// After an accepted trigger the detector ignores everything for the
// configured debounce window.
package wake

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/textnorm"
)

// Tier names the phrase set that produced a trigger.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// stripCutset is removed from the front of the remainder after the wake
// phrase has been cut off.
const stripCutset = " ,.:;!?-"

var wordPattern = regexp.MustCompile(`\S+`)

// Result describes one detection call.
type Result struct {
	Detected  bool    `json:"detected"`
	Remainder string  `json:"remainder"`
	Phrase    string  `json:"phrase,omitempty"`
	Tier      Tier    `json:"tier,omitempty"`
	Fuzzy     bool    `json:"fuzzy"`
	Score     float64 `json:"score"`
	// Suppressed is set when the call landed inside the debounce window.
	Suppressed bool `json:"suppressed"`
}

// Detector spots wake phrases. It is safe for concurrent use; the debounce
// check and the trigger timestamp update happen under one lock, so no two
// triggers are ever closer than Config.Debounce.
type Detector struct {
	mu          sync.Mutex
	cfg         Config
	patterns    map[string]*regexp.Regexp
	lastTrigger time.Time
	triggered   bool
	metrics     Metrics
	now         func() time.Time
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a detector in the armed state. Out-of-range settings are
// clamped rather than rejected; use Config.Validate to surface them.
func New(cfg Config, opts ...Option) *Detector {
	d := &Detector{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	d.applyConfig(cfg)
	return d
}

func (d *Detector) applyConfig(cfg Config) {
	d.cfg = cfg.sanitized()
	d.patterns = make(map[string]*regexp.Regexp)
	for _, phrase := range append(append([]string{}, d.cfg.PrimaryPhrases...), d.cfg.SecondaryPhrases...) {
		d.patterns[phrase] = compilePhrase(phrase)
	}
}

// compilePhrase matches the phrase on word boundaries, tolerating commas
// or other light punctuation between its words ("hey, vox").
func compilePhrase(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b` + strings.Join(words, `[\s,.!?-]+`) + `\b`)
}

// SetConfig replaces the configuration. Debounce state and metrics are kept.
func (d *Detector) SetConfig(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyConfig(cfg)
}

// Config returns the effective (sanitized) configuration.
func (d *Detector) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := d.cfg
	cfg.PrimaryPhrases = append([]string(nil), d.cfg.PrimaryPhrases...)
	cfg.SecondaryPhrases = append([]string(nil), d.cfg.SecondaryPhrases...)
	return cfg
}

// SetSensitivity sets the sensitivity, clamped to [0,1].
func (d *Detector) SetSensitivity(level float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Sensitivity = clampUnit(level)
}

// ResetDebounce re-arms the detector immediately.
func (d *Detector) ResetDebounce() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.triggered = false
	d.lastTrigger = time.Time{}
}

// Metrics returns a snapshot of the counters.
func (d *Detector) Metrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// ResetMetrics zeroes the counters.
func (d *Detector) ResetMetrics() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.metrics = Metrics{}
}

// DetectAndStrip reports whether text opens with a wake phrase and returns
// the rest of the utterance with the phrase removed. When nothing is
// detected the original text comes back unchanged. The remainder is in
// normalized form.
func (d *Detector) DetectAndStrip(text string) (bool, string) {
	r := d.Detect(text)
	return r.Detected, r.Remainder
}

// DetectOnly is DetectAndStrip without the remainder. It arms the debounce
// window and updates metrics exactly like DetectAndStrip.
func (d *Detector) DetectOnly(text string) bool {
	return d.Detect(text).Detected
}

// Detect runs one detection and returns the full result.
func (d *Detector) Detect(text string) Result {
	d.mu.Lock()
	r := d.detectLocked(text)
	d.metrics.record(r)
	d.mu.Unlock()

	if r.Detected {
		logging.LogWakeEvent(r.Phrase, string(r.Tier), r.Fuzzy, r.Score)
	}
	return r
}

func (d *Detector) detectLocked(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	now := d.now()
	if d.triggered && now.Sub(d.lastTrigger) < d.cfg.Debounce {
		return Result{Remainder: text, Suppressed: true}
	}

	if r, ok := d.match(textnorm.Normalize(text)); ok {
		d.triggered = true
		d.lastTrigger = now
		return r
	}
	return Result{Remainder: text}
}

func (d *Detector) match(norm string) (Result, bool) {
	if norm == "" {
		return Result{}, false
	}

	fuzzyEnabled := d.cfg.Sensitivity >= FuzzyTierSensitivity
	tiers := []struct {
		tier      Tier
		phrases   []string
		threshold float64
		enabled   bool
	}{
		{TierPrimary, d.cfg.PrimaryPhrases, d.cfg.PrimaryFuzzyThreshold, true},
		{TierSecondary, d.cfg.SecondaryPhrases, d.cfg.SecondaryFuzzyThreshold, d.cfg.Sensitivity >= SecondaryTierSensitivity},
	}

	for _, t := range tiers {
		if !t.enabled {
			continue
		}
		if r, ok := d.matchExact(norm, t.phrases); ok {
			r.Tier = t.tier
			return r, true
		}
		if fuzzyEnabled {
			if r, ok := d.matchFuzzy(norm, t.phrases, t.threshold); ok {
				r.Tier = t.tier
				return r, true
			}
		}
	}
	return Result{}, false
}

func (d *Detector) matchExact(norm string, phrases []string) (Result, bool) {
	for _, phrase := range phrases {
		loc := d.patterns[phrase].FindStringIndex(norm)
		if loc == nil || loc[0] > d.cfg.MaxStartOffset {
			continue
		}
		return Result{
			Detected:  true,
			Remainder: strings.TrimLeft(norm[loc[1]:], stripCutset),
			Phrase:    phrase,
			Score:     1,
		}, true
	}
	return Result{}, false
}

// matchFuzzy compares word windows near the start of the text against each
// phrase. A window may have the phrase's word count or one word less, to
// cover recognizers that merge words ("heyvox").
func (d *Detector) matchFuzzy(norm string, phrases []string, threshold float64) (Result, bool) {
	spans := wordPattern.FindAllStringIndex(norm, -1)
	words := make([]string, len(spans))
	for i, s := range spans {
		words[i] = strings.Trim(norm[s[0]:s[1]], stripCutset+"\"'")
	}

	for _, phrase := range phrases {
		n := len(strings.Fields(phrase))
		sizes := []int{n}
		if n > 1 {
			sizes = append(sizes, n-1)
		}
		for start := 0; start < len(spans) && spans[start][0] <= d.cfg.MaxStartOffset; start++ {
			for _, size := range sizes {
				end := start + size
				if end > len(spans) {
					continue
				}
				window := strings.Join(words[start:end], " ")
				score := Similarity(window, phrase)
				if score < threshold {
					continue
				}
				return Result{
					Detected:  true,
					Remainder: strings.TrimLeft(norm[spans[end-1][1]:], stripCutset),
					Phrase:    phrase,
					Fuzzy:     true,
					Score:     score,
				}, true
			}
		}
	}
	return Result{}, false
}
