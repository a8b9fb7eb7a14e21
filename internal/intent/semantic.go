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
	"math"
	"sort"

	"github.com/loqalabs/loqa-voxmind/internal/textnorm"
)

// DefaultSemanticThreshold is the minimum similarity for a semantic match.
const DefaultSemanticThreshold = 0.65

var semanticStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "it": {}, "to": {},
	"me": {}, "my": {}, "please": {}, "of": {}, "can": {}, "you": {},
}

// extraSemanticExamples cover phrasings with no keyword or pattern hook.
var extraSemanticExamples = map[string][]string{
	CommandControlVolume: {"turn it up", "turn it down", "louder", "quieter", "make it louder", "max volume"},
	CommandMediaControl:  {"shuffle playlist", "put on some music", "next one"},
	CommandGetTime:       {"what day is it", "tell me the date", "what's today"},
	CommandSystemPower:   {"log out", "hibernate", "turn off computer"},
	CommandAssistantHelp: {"what do you do", "how do i use you", "what commands do you know"},
	CommandScroll:        {"page down", "page up", "move down the page"},
	CommandNavigate:      {"go to home screen", "take me back"},
}

type termVector map[string]float64

type semanticExample struct {
	command string
	vec     termVector
	norm    float64
}

// SemanticClassifier scores text against example phrasings by cosine
// similarity of bag-of-words term vectors and returns the best command.
type SemanticClassifier struct {
	examples []semanticExample
}

// NewSemanticClassifier builds a classifier from command → example
// phrases. Examples that reduce to no terms are ignored.
func NewSemanticClassifier(examples map[string][]string) *SemanticClassifier {
	commands := make([]string, 0, len(examples))
	for cmd := range examples {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)

	s := &SemanticClassifier{}
	for _, cmd := range commands {
		for _, phrase := range examples[cmd] {
			vec := termsOf(phrase)
			if len(vec) == 0 {
				continue
			}
			s.examples = append(s.examples, semanticExample{command: cmd, vec: vec, norm: vec.length()})
		}
	}
	return s
}

// DefaultSemanticExamples gathers each rule's examples plus extra phrasings
// the rule table cannot reach.
func DefaultSemanticExamples(rules []Rule) map[string][]string {
	out := make(map[string][]string)
	for _, r := range rules {
		out[r.Command] = append(out[r.Command], r.Examples...)
	}
	for cmd, phrases := range extraSemanticExamples {
		out[cmd] = append(out[cmd], phrases...)
	}
	return out
}

// Len is the number of usable examples.
func (s *SemanticClassifier) Len() int {
	return len(s.examples)
}

// Predict returns the command whose closest example is most similar to text
// and that similarity in [0, 1]. It returns "" when nothing overlaps.
func (s *SemanticClassifier) Predict(text string) (string, float64) {
	q := termsOf(text)
	if len(q) == 0 {
		return "", 0
	}
	qn := q.length()

	best, bestScore := "", 0.0
	for _, ex := range s.examples {
		score := q.dot(ex.vec) / (qn * ex.norm)
		if score > bestScore {
			best, bestScore = ex.command, score
		}
	}
	return best, bestScore
}

func termsOf(text string) termVector {
	vec := make(termVector)
	for _, tok := range textnorm.Tokens(textnorm.Normalize(text)) {
		if _, stop := semanticStopwords[tok]; stop {
			continue
		}
		vec[tok]++
	}
	return vec
}

func (v termVector) length() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

func (v termVector) dot(o termVector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for term, w := range v {
		sum += w * o[term]
	}
	return sum
}
