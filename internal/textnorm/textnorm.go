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

// Package textnorm folds raw transcripts into the canonical form that the
// wake spotter and the intent classifier match against.
package textnorm

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// edgeCutset is stripped from both ends after whitespace is collapsed.
const edgeCutset = "\n\t \"'.,?!"

// Casers carry state, so each goroutine takes its own chain from the pool.
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFC, cases.Lower(language.Und))
	},
}

// Normalize lowercases text, collapses every whitespace run to a single
// space and strips surrounding whitespace and quote/sentence punctuation.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToValidUTF8(text, "")

	tr := chainPool.Get().(transform.Transformer)
	lowered, _, err := transform.String(tr, text)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		lowered = strings.ToLower(text)
	}

	collapsed := strings.Join(strings.Fields(lowered), " ")
	return strings.Trim(collapsed, edgeCutset)
}

// Tokens splits normalized text into words with punctuation trimmed from
// each word. Empty tokens are dropped.
func Tokens(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		if t := strings.Trim(f, ",.:;!?\"'-"); t != "" {
			out = append(out, t)
		}
	}
	return out
}
