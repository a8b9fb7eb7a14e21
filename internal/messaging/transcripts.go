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

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/speech"
)

// TranscriptRecognizer is a speech.Recognizer fed by transcript events on
// NATS, so any speech frontend that publishes text can drive the assistant.
type TranscriptRecognizer struct {
	ns      *NATSService
	sub     *nats.Subscription
	session string
}

var _ speech.Recognizer = (*TranscriptRecognizer)(nil)

// NewTranscriptRecognizer subscribes to the transcript subject. When
// session is non-empty, transcripts for other sessions are ignored.
func NewTranscriptRecognizer(ns *NATSService, session string) (*TranscriptRecognizer, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}
	sub, err := ns.conn.SubscribeSync(ns.cfg.TranscriptSubject)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", ns.cfg.TranscriptSubject, err)
	}
	return &TranscriptRecognizer{ns: ns, sub: sub, session: session}, nil
}

// CaptureUtterance waits for the next transcript. A timeout with no
// transcript yields speech.ErrNothingUnderstood; a lost connection yields
// speech.ErrServiceUnavailable. A zero timeout waits until ctx is done.
// The timeout bounds the whole capture, including skipped transcripts.
func (r *TranscriptRecognizer) CaptureUtterance(ctx context.Context, timeout, _ time.Duration) (string, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithDeadline(ctx, time.Now().Add(timeout))
		defer cancel()
	}

	for {
		text, err := r.next(ctx, waitCtx)
		if err != nil || text != "" {
			return text, err
		}
	}
}

// next returns "" with no error for messages that should be skipped.
func (r *TranscriptRecognizer) next(ctx, waitCtx context.Context) (string, error) {
	if !r.ns.IsConnected() {
		return "", speech.ErrServiceUnavailable
	}

	msg, err := r.sub.NextMsgWithContext(waitCtx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return "", speech.ErrNothingUnderstood
	default:
		return "", fmt.Errorf("%w: %v", speech.ErrServiceUnavailable, err)
	}

	var event TranscriptEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logging.LogError(err, "Error unmarshaling transcript event", zap.String("subject", msg.Subject))
		return "", speech.ErrNothingUnderstood
	}
	if r.session != "" && event.SessionID != r.session {
		return "", nil
	}

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return "", speech.ErrNothingUnderstood
	}
	logging.LogNATSEvent(msg.Subject, "received", zap.String("session_id", event.SessionID))
	return text, nil
}

// Close unsubscribes.
func (r *TranscriptRecognizer) Close() error {
	return r.sub.Unsubscribe()
}
