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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(sensitivity float64, debounce time.Duration) Config {
	return Config{
		PrimaryPhrases:          []string{"hey vox", "ok vox", "hey voxmind"},
		SecondaryPhrases:        []string{"vox"},
		Sensitivity:             sensitivity,
		Debounce:                debounce,
		PrimaryFuzzyThreshold:   0.8,
		SecondaryFuzzyThreshold: 0.9,
		MaxStartOffset:          DefaultMaxStartOffset,
	}
}

func TestDetectAndStrip_Basic(t *testing.T) {
	d := New(Config{
		PrimaryPhrases: []string{"hey vox"},
		Sensitivity:    0.2,
		Debounce:       0,
		MaxStartOffset: DefaultMaxStartOffset,
	})

	detected, rest := d.DetectAndStrip("hey vox open chrome")
	assert.True(t, detected)
	assert.Equal(t, "open chrome", rest)

	detected, rest = d.DetectAndStrip("this should not trigger")
	assert.False(t, detected)
	assert.Equal(t, "this should not trigger", rest)
}

func TestDetectAndStrip_EmptyInput(t *testing.T) {
	d := New(testConfig(1, 0))

	for _, in := range []string{"", "   ", "\n\t"} {
		detected, rest := d.DetectAndStrip(in)
		assert.False(t, detected, "input %q", in)
		assert.Equal(t, "", rest, "input %q", in)
	}
}

func TestDetectAndStrip_Stripping(t *testing.T) {
	d := New(testConfig(0.5, 0))

	tests := []struct {
		name     string
		in       string
		detected bool
		rest     string
	}{
		{name: "phrase only", in: "hey vox", detected: true, rest: ""},
		{name: "trailing punctuation", in: "Hey Vox, what's the time?", detected: true, rest: "what's the time"},
		{name: "comma inside phrase", in: "hey, vox open notepad", detected: true, rest: "open notepad"},
		{name: "longer phrase", in: "hey voxmind play music", detected: true, rest: "play music"},
		{name: "leading filler word", in: "um hey vox scroll down", detected: true, rest: "scroll down"},
		{name: "mid sentence", in: "i was telling him hey vox is great", detected: false, rest: "i was telling him hey vox is great"},
		{name: "no word boundary", in: "voxel art please", detected: false, rest: "voxel art please"},
		{name: "secondary phrase", in: "vox: mute", detected: true, rest: "mute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detected, rest := d.DetectAndStrip(tt.in)
			assert.Equal(t, tt.detected, detected)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestDetect_StartOffsetIsConfigurable(t *testing.T) {
	cfg := testConfig(0.2, 0)
	cfg.MaxStartOffset = 0
	d := New(cfg)
	assert.False(t, d.DetectOnly("um hey vox open chrome"))
	assert.True(t, d.DetectOnly("hey vox open chrome"))

	cfg.MaxStartOffset = 20
	d.SetConfig(cfg)
	assert.True(t, d.DetectOnly("well then okay hey vox open chrome"))
}

func TestDetect_Debounce(t *testing.T) {
	clock := newFakeClock()
	d := New(testConfig(0.5, 2*time.Second), WithClock(clock.Now))

	detected, _ := d.DetectAndStrip("hey vox open chrome")
	require.True(t, detected)

	clock.Advance(time.Second)
	detected, rest := d.DetectAndStrip("hey vox play music")
	assert.False(t, detected, "inside the debounce window")
	assert.Equal(t, "hey vox play music", rest)

	clock.Advance(time.Second - time.Nanosecond)
	assert.False(t, d.DetectOnly("hey vox play music"), "still inside the window")

	clock.Advance(2 * time.Nanosecond)
	assert.True(t, d.DetectOnly("hey vox play music"), "window has elapsed")

	m := d.Metrics()
	assert.Equal(t, int64(4), m.TotalChecks)
	assert.Equal(t, int64(2), m.Triggers)
	assert.Equal(t, int64(2), m.DebounceSuppressed)
}

func TestDetect_NonMatchDoesNotArmDebounce(t *testing.T) {
	clock := newFakeClock()
	d := New(testConfig(0.5, time.Minute), WithClock(clock.Now))

	assert.False(t, d.DetectOnly("nothing to see here"))
	assert.True(t, d.DetectOnly("hey vox open chrome"))
}

func TestDetect_ResetDebounce(t *testing.T) {
	clock := newFakeClock()
	d := New(testConfig(0.5, time.Hour), WithClock(clock.Now))

	require.True(t, d.DetectOnly("hey vox"))
	require.False(t, d.DetectOnly("hey vox"))

	d.ResetDebounce()
	assert.True(t, d.DetectOnly("hey vox"))
}

func TestDetect_SensitivityTiers(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		sensitivity float64
		detected    bool
		tier        Tier
		fuzzy       bool
		rest        string
	}{
		{name: "secondary off at low", in: "vox open chrome", sensitivity: 0.2, detected: false},
		{name: "secondary on at medium", in: "vox open chrome", sensitivity: 0.5, detected: true, tier: TierSecondary, rest: "open chrome"},
		{name: "fuzzy off at medium", in: "hey box open chrome", sensitivity: 0.5, detected: false},
		{name: "fuzzy on at high", in: "hey box open chrome", sensitivity: 0.8, detected: true, tier: TierPrimary, fuzzy: true, rest: "open chrome"},
		{name: "merged words at high", in: "heyvox open chrome", sensitivity: 0.9, detected: true, tier: TierPrimary, fuzzy: true, rest: "open chrome"},
		{name: "unrelated at high", in: "hey you open chrome", sensitivity: 1.0, detected: false},
		{name: "primary exact at zero", in: "ok vox mute", sensitivity: 0, detected: true, tier: TierPrimary, rest: "mute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(testConfig(tt.sensitivity, 0))
			r := d.Detect(tt.in)
			assert.Equal(t, tt.detected, r.Detected)
			if tt.detected {
				assert.Equal(t, tt.tier, r.Tier)
				assert.Equal(t, tt.fuzzy, r.Fuzzy)
				assert.Equal(t, tt.rest, r.Remainder)
			}
		})
	}
}

func TestDetect_FuzzyRemainderAndMetrics(t *testing.T) {
	d := New(testConfig(0.8, 0))

	r := d.Detect("hey box open chrome")
	require.True(t, r.Detected)
	assert.True(t, r.Fuzzy)
	assert.Equal(t, "open chrome", r.Remainder)
	assert.InDelta(t, 6.0/7.0, r.Score, 1e-9)

	m := d.Metrics()
	assert.Equal(t, int64(1), m.FuzzyTriggers)
	assert.Equal(t, int64(1), m.PrimaryTriggers)
	assert.InDelta(t, 1.0, m.FuzzyShare(), 1e-9)

	d.ResetMetrics()
	assert.Equal(t, Metrics{}, d.Metrics())
}

func TestDetect_SensitivityMonotonic(t *testing.T) {
	samples := []string{
		"hey vox open chrome",
		"ok vox mute",
		"vox, what's the time",
		"hey box open chrome",
		"heyvox play music",
		"hey fox scroll down",
		"box open notepad",
		"the weather is nice",
		"i said hey vox earlier",
		"hey voxmind lock my laptop",
		"hey vocs search for cats",
	}
	levels := []float64{0, 0.2, 0.39, 0.4, 0.5, 0.79, 0.8, 0.9, 1}

	accepted := func(level float64) map[string]bool {
		d := New(testConfig(level, 0))
		out := make(map[string]bool)
		for _, s := range samples {
			if d.DetectOnly(s) {
				out[s] = true
			}
		}
		return out
	}

	prev := accepted(levels[0])
	for _, level := range levels[1:] {
		cur := accepted(level)
		for s := range prev {
			assert.True(t, cur[s], "%q accepted below %.2f but rejected at %.2f", s, level, level)
		}
		prev = cur
	}
}

func TestDetect_ConcurrentTriggersRespectDebounce(t *testing.T) {
	d := New(testConfig(0.5, time.Hour))

	var wg sync.WaitGroup
	var triggers int64
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.DetectOnly("hey vox open chrome") {
				atomic.AddInt64(&triggers, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), triggers)
	m := d.Metrics()
	assert.Equal(t, int64(64), m.TotalChecks)
	assert.Equal(t, int64(63), m.DebounceSuppressed)
}

func TestSetSensitivity_Clamps(t *testing.T) {
	d := New(testConfig(0.5, 0))

	d.SetSensitivity(3)
	assert.Equal(t, 1.0, d.Config().Sensitivity)

	d.SetSensitivity(-1)
	assert.Equal(t, 0.0, d.Config().Sensitivity)
}

func TestNew_SanitizesConfig(t *testing.T) {
	d := New(Config{
		PrimaryPhrases:          []string{"  Hey   VOX! ", "hey vox", ""},
		Sensitivity:             7,
		Debounce:                -time.Second,
		PrimaryFuzzyThreshold:   0.95,
		SecondaryFuzzyThreshold: 0.5,
		MaxStartOffset:          -3,
	})

	cfg := d.Config()
	assert.Equal(t, []string{"hey vox"}, cfg.PrimaryPhrases)
	assert.Equal(t, 1.0, cfg.Sensitivity)
	assert.Equal(t, time.Duration(0), cfg.Debounce)
	assert.Equal(t, 0.95, cfg.SecondaryFuzzyThreshold)
	assert.Equal(t, 0, cfg.MaxStartOffset)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no primary phrases", func(c *Config) { c.PrimaryPhrases = nil }},
		{"sensitivity above one", func(c *Config) { c.Sensitivity = 1.5 }},
		{"negative debounce", func(c *Config) { c.Debounce = -time.Millisecond }},
		{"primary threshold out of range", func(c *Config) { c.PrimaryFuzzyThreshold = -0.1 }},
		{"secondary looser than primary", func(c *Config) { c.SecondaryFuzzyThreshold = 0.5 }},
		{"negative offset", func(c *Config) { c.MaxStartOffset = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
