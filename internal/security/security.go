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

package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxUtteranceBytes bounds text accepted from API callers.
const MaxUtteranceBytes = 1024

var (
	// ErrInvalidSessionID is returned when a session ID format is invalid
	ErrInvalidSessionID = errors.New("invalid session ID")

	// ErrEmptyUtterance is returned for blank text
	ErrEmptyUtterance = errors.New("utterance is empty")

	// ErrUtteranceTooLong is returned for text over MaxUtteranceBytes
	ErrUtteranceTooLong = errors.New("utterance too long")

	// ErrInvalidUTF8 is returned for text that is not valid UTF-8
	ErrInvalidUTF8 = errors.New("utterance is not valid UTF-8")

	sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)
)

// SanitizeLogInput drops line breaks and other control characters so that
// user-controlled text cannot forge log lines. Tabs become spaces.
func SanitizeLogInput(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, input)
}

// ValidateSessionID accepts 1 to 64 ASCII letters, digits, dots, dashes
// and underscores. Session IDs end up in NATS payloads and SQL filters.
func ValidateSessionID(id string) error {
	if strings.Contains(id, "..") || !sessionIDPattern.MatchString(id) {
		return ErrInvalidSessionID
	}
	return nil
}

// ValidateUtterance rejects text the classifier should never see.
func ValidateUtterance(text string) error {
	if len(text) > MaxUtteranceBytes {
		return ErrUtteranceTooLong
	}
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyUtterance
	}
	return nil
}
