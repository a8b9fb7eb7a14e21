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

// Evaluation summarizes detector accuracy over labelled text samples.
type Evaluation struct {
	Sensitivity    float64 `json:"sensitivity"`
	Positives      int     `json:"positives"`
	Negatives      int     `json:"negatives"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	Metrics        Metrics `json:"metrics"`
}

// TPR is the true-positive rate over the positive samples.
func (e Evaluation) TPR() float64 {
	if e.Positives == 0 {
		return 0
	}
	return float64(e.TruePositives) / float64(e.Positives)
}

// FAR is the false-accept rate over the negative samples.
func (e Evaluation) FAR() float64 {
	if e.Negatives == 0 {
		return 0
	}
	return float64(e.FalsePositives) / float64(e.Negatives)
}

// Evaluate runs every sample through a fresh detector built from cfg.
// Debounce is re-armed before each sample so that it cannot mask results.
func Evaluate(cfg Config, positives, negatives []string) Evaluation {
	d := New(cfg)
	eval := Evaluation{
		Sensitivity: d.Config().Sensitivity,
		Positives:   len(positives),
		Negatives:   len(negatives),
	}

	for _, s := range positives {
		d.ResetDebounce()
		if d.DetectOnly(s) {
			eval.TruePositives++
		}
	}
	for _, s := range negatives {
		d.ResetDebounce()
		if d.DetectOnly(s) {
			eval.FalsePositives++
		}
	}

	eval.Metrics = d.Metrics()
	return eval
}
