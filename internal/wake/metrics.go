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

// Metrics counts detector activity. It is for QA and observability only;
// detection never reads it.
type Metrics struct {
	TotalChecks        int64 `json:"total_checks"`
	Triggers           int64 `json:"triggers"`
	DebounceSuppressed int64 `json:"debounce_suppressed"`
	FuzzyTriggers      int64 `json:"fuzzy_triggers"`
	PrimaryTriggers    int64 `json:"primary_triggers"`
	SecondaryTriggers  int64 `json:"secondary_triggers"`
}

// TriggerRate is triggers per check.
func (m Metrics) TriggerRate() float64 {
	if m.TotalChecks == 0 {
		return 0
	}
	return float64(m.Triggers) / float64(m.TotalChecks)
}

// FuzzyShare is the fraction of triggers that needed approximate matching.
func (m Metrics) FuzzyShare() float64 {
	if m.Triggers == 0 {
		return 0
	}
	return float64(m.FuzzyTriggers) / float64(m.Triggers)
}

func (m *Metrics) record(r Result) {
	m.TotalChecks++
	switch {
	case r.Suppressed:
		m.DebounceSuppressed++
	case r.Detected:
		m.Triggers++
		if r.Fuzzy {
			m.FuzzyTriggers++
		}
		if r.Tier == TierSecondary {
			m.SecondaryTriggers++
		} else {
			m.PrimaryTriggers++
		}
	}
}
