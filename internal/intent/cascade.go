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
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/logging"
)

// Cascade runs the rule classifier first and, when enabled, consults the
// semantic classifier for utterances that only reached the generic search
// fallback. With the semantic stage disabled its output is identical to the
// rule classifier's.
type Cascade struct {
	rules     *Classifier
	semantic  *SemanticClassifier
	threshold float64
}

// CascadeOption configures a Cascade.
type CascadeOption func(*Cascade)

// WithSemantic enables the semantic stage. A nil classifier leaves it off;
// a threshold outside (0, 1] falls back to DefaultSemanticThreshold.
func WithSemantic(sc *SemanticClassifier, threshold float64) CascadeOption {
	return func(c *Cascade) {
		c.semantic = sc
		if threshold <= 0 || threshold > 1 {
			threshold = DefaultSemanticThreshold
		}
		c.threshold = threshold
	}
}

// NewCascade creates a cascade around a rule classifier. A nil classifier
// gets the defaults.
func NewCascade(rules *Classifier, opts ...CascadeOption) *Cascade {
	if rules == nil {
		rules = NewClassifier()
	}
	c := &Cascade{rules: rules, threshold: DefaultSemanticThreshold}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SemanticEnabled reports whether the semantic stage is active.
func (c *Cascade) SemanticEnabled() bool {
	return c.semantic != nil
}

// Classifier returns the rule classifier.
func (c *Cascade) Classifier() *Classifier {
	return c.rules
}

// Classify interprets a single utterance.
func (c *Cascade) Classify(text string) ParsedCommand {
	return c.Analyze(text).ParsedCommand
}

// Analyze interprets a single utterance and reports the deciding stage.
func (c *Cascade) Analyze(text string) Classification {
	return c.refine(c.rules.Analyze(text))
}

// ClassifyAll interprets a possibly compound utterance.
func (c *Cascade) ClassifyAll(text string) []Classification {
	parts := c.rules.ClassifyAll(text)
	for i := range parts {
		parts[i] = c.refine(parts[i])
	}
	return parts
}

func (c *Cascade) refine(cl Classification) Classification {
	if c.semantic == nil || cl.Source != SourceFallback || cl.Command != CommandSearch {
		return cl
	}

	cmd, score := c.semantic.Predict(cl.Text)
	if cmd == "" || cmd == CommandSearch || score < c.threshold {
		logging.LogDebug("Semantic stage declined",
			zap.String("text", cl.Text),
			zap.String("best", cmd),
			zap.Float64("score", score))
		return cl
	}

	refined := Classification{
		ParsedCommand: ParsedCommand{Command: cmd, Params: c.paramsFor(cmd, cl.Text)},
		Source:        SourceSemantic,
		Text:          cl.Text,
		Score:         score,
	}
	logging.LogClassification(refined.Command, string(refined.Source), zap.Float64("score", score))
	return refined
}

// paramsFor runs the first extractor registered for cmd over the whole text.
func (c *Cascade) paramsFor(cmd, text string) Params {
	for _, r := range c.rules.rules {
		if r.Command == cmd {
			return safeExtract(r, Match{Text: text, Groups: map[string]string{}})
		}
	}
	return Params{}
}
