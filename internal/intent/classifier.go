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
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/textnorm"
)

// DefaultWakePrefixes are leading phrases stripped before classification.
var DefaultWakePrefixes = []string{"jarvis ", "hey jarvis ", "ok jarvis "}

// Classifier maps free text to a ParsedCommand using an ordered rule table
// behind a keyword pre-filter. It holds no mutable state after construction
// and is safe for concurrent use.
type Classifier struct {
	rules    []Rule
	index    *KeywordIndex
	prefixes []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the rule table. Rules without a pattern are dropped.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		c.rules = c.rules[:0]
		for _, r := range rules {
			if r.Pattern != nil && r.Command != "" {
				c.rules = append(c.rules, r)
			}
		}
	}
}

// WithKeywordIndex replaces the keyword pre-filter.
func WithKeywordIndex(idx *KeywordIndex) Option {
	return func(c *Classifier) {
		c.index = idx
	}
}

// WithWakePrefixes replaces the leading phrases stripped before matching.
func WithWakePrefixes(prefixes ...string) Option {
	return func(c *Classifier) {
		c.prefixes = c.prefixes[:0]
		for _, p := range prefixes {
			if p = strings.ToLower(p); strings.TrimSpace(p) != "" {
				c.prefixes = append(c.prefixes, p)
			}
		}
	}
}

// NewClassifier creates a classifier with the default rules, keyword index
// and wake prefixes unless overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		rules:    DefaultRules(),
		index:    DefaultKeywordIndex(),
		prefixes: append([]string(nil), DefaultWakePrefixes...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rules returns a copy of the rule table.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Index returns the keyword pre-filter.
func (c *Classifier) Index() *KeywordIndex {
	return c.index
}

// Classify interprets a single utterance. It never splits compound input
// and never fails: empty input yields the unknown command.
func (c *Classifier) Classify(text string) ParsedCommand {
	return c.Analyze(text).ParsedCommand
}

// Analyze is Classify with the stage that produced the result.
func (c *Classifier) Analyze(text string) Classification {
	cl := c.classifyNormalized(c.prepare(text))
	logging.LogClassification(cl.Command, string(cl.Source))
	return cl
}

var compoundSeparator = regexp.MustCompile(`\s+(?:and|then)\s+`)

// ClassifyAll splits text on standalone "and"/"then" and classifies each
// part in order. A part matched by the search rule takes the rest of the
// utterance as its query, so "search for salt and pepper" stays one search.
func (c *Classifier) ClassifyAll(text string) []Classification {
	norm := c.prepare(text)
	if norm == "" {
		cl := c.classifyNormalized(norm)
		logging.LogClassification(cl.Command, string(cl.Source))
		return []Classification{cl}
	}

	var starts []int
	var ends []int
	prev := 0
	for _, sep := range compoundSeparator.FindAllStringIndex(norm, -1) {
		starts = append(starts, prev)
		ends = append(ends, sep[0])
		prev = sep[1]
	}
	starts = append(starts, prev)
	ends = append(ends, len(norm))

	out := make([]Classification, 0, len(starts))
	for i := range starts {
		part := strings.TrimSpace(norm[starts[i]:ends[i]])
		if part == "" {
			continue
		}
		cl := c.classifyNormalized(part)
		if cl.Command == CommandSearch && cl.Source == SourceRule && i < len(starts)-1 {
			cl = c.classifyNormalized(strings.TrimSpace(norm[starts[i]:]))
			logging.LogClassification(cl.Command, string(cl.Source))
			out = append(out, cl)
			break
		}
		logging.LogClassification(cl.Command, string(cl.Source))
		out = append(out, cl)
	}
	if len(out) == 0 {
		out = append(out, c.classifyNormalized(""))
	}
	return out
}

// prepare normalizes text and strips at most one configured wake prefix.
func (c *Classifier) prepare(text string) string {
	norm := textnorm.Normalize(text)
	for _, p := range c.prefixes {
		if strings.HasPrefix(norm, p) {
			return strings.TrimSpace(norm[len(p):])
		}
	}
	return norm
}

func (c *Classifier) classifyNormalized(norm string) Classification {
	if norm == "" {
		return Classification{ParsedCommand: Unknown(), Source: SourceNone}
	}

	candidates := c.index.Candidates(norm)
	for _, rule := range c.rules {
		if len(candidates) > 0 && !candidates.Contains(rule.Command) {
			continue
		}
		m, ok := rule.match(norm)
		if !ok {
			continue
		}
		return Classification{
			ParsedCommand: ParsedCommand{Command: rule.Command, Params: safeExtract(rule, m)},
			Source:        SourceRule,
			Text:          norm,
		}
	}
	return c.fallback(norm)
}

// launchVerbs mark a request to open something; with "browser" they make
// the browser fallback.
var launchVerbs = []string{"open ", "launch ", "start ", "run "}

func (c *Classifier) fallback(norm string) Classification {
	cl := Classification{Source: SourceFallback, Text: norm}
	switch {
	case containsAny(norm, launchVerbs...) && strings.Contains(norm, "browser"):
		cl.ParsedCommand = ParsedCommand{Command: CommandOpenBrowser, Params: Params{"browser": nil}}
	case strings.Contains(norm, "time") || strings.Contains(norm, "date"):
		cl.ParsedCommand = ParsedCommand{Command: CommandGetTime, Params: Params{}}
	default:
		cl.ParsedCommand = ParsedCommand{Command: CommandSearch, Params: Params{"query": norm}}
	}
	return cl
}

// safeExtract runs the rule's extractor, degrading to empty params on error
// or panic so the command is still reported.
func safeExtract(rule Rule, m Match) (params Params) {
	if rule.Extract == nil {
		return Params{}
	}
	defer func() {
		if r := recover(); r != nil {
			logging.LogWarn("Parameter extraction panicked",
				zap.String("command", rule.Command),
				zap.String("panic", fmt.Sprint(r)))
			params = Params{}
		}
	}()
	p, err := rule.Extract(m)
	if err != nil {
		logging.LogWarn("Parameter extraction failed",
			zap.String("command", rule.Command),
			zap.Error(err))
		return Params{}
	}
	if p == nil {
		return Params{}
	}
	return p
}
