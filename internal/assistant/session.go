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

// Package assistant runs the listen → wake → classify → execute loop.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/events"
	"github.com/loqalabs/loqa-voxmind/internal/executor"
	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/security"
	"github.com/loqalabs/loqa-voxmind/internal/speech"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

// ErrExecution wraps failures reported by the executor. Run logs these and
// keeps listening.
var ErrExecution = errors.New("command execution failed")

// Classifier interprets the text left after the wake phrase.
type Classifier interface {
	Analyze(text string) intent.Classification
	ClassifyAll(text string) []intent.Classification
}

// Recorder stores interpretation events.
type Recorder interface {
	Insert(event *events.InterpretationEvent) error
}

// Config holds session settings.
type Config struct {
	SessionID      string
	CaptureTimeout time.Duration
	PhraseLimit    time.Duration
	// FollowUpTimeout bounds the capture after a bare wake phrase; zero
	// uses CaptureTimeout.
	FollowUpTimeout time.Duration
	Compound        bool
	BackoffMax      time.Duration
}

// Turn describes one pass through the loop.
type Turn struct {
	Transcript string
	Wake       wake.Result
	// FollowUp is set when this turn answered a bare wake phrase and so
	// needed no wake phrase of its own.
	FollowUp bool
	// AwaitingCommand is set when the utterance was only the wake phrase.
	AwaitingCommand bool
	Commands        []intent.Classification
	Responses       []string
}

// Session ties the collaborators together. RunOnce and Run must not be
// called concurrently on the same session.
type Session struct {
	cfg        Config
	recognizer speech.Recognizer
	detector   *wake.Detector
	classifier Classifier
	executor   executor.Executor
	recorder   Recorder

	mu       sync.Mutex
	backoff  backoff.BackOff
	awaiting bool
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder stores every executed command through r.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithBackOff replaces the retry policy used while the recognizer is
// unavailable.
func WithBackOff(b backoff.BackOff) Option {
	return func(s *Session) {
		s.backoff = b
	}
}

// New creates a session.
func New(cfg Config, rec speech.Recognizer, det *wake.Detector, cls Classifier, ex executor.Executor, opts ...Option) *Session {
	if cfg.SessionID == "" {
		cfg.SessionID = "default"
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}

	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = cfg.BackoffMax
	exp.MaxElapsedTime = 0
	exp.Reset()

	s := &Session{
		cfg:        cfg,
		recognizer: rec,
		detector:   det,
		classifier: cls,
		executor:   ex,
		backoff:    exp,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AwaitingCommand reports whether the next utterance is taken as a command
// without a wake phrase.
func (s *Session) AwaitingCommand() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// RunOnce captures one utterance and acts on it. Capture errors are
// returned unchanged so callers can tell speech.ErrNothingUnderstood from
// speech.ErrServiceUnavailable. Executor failures are wrapped in
// ErrExecution after every command of the turn has been attempted.
func (s *Session) RunOnce(ctx context.Context) (*Turn, error) {
	s.mu.Lock()
	followUp := s.awaiting
	s.mu.Unlock()

	timeout := s.cfg.CaptureTimeout
	if followUp && s.cfg.FollowUpTimeout > 0 {
		timeout = s.cfg.FollowUpTimeout
	}

	text, err := s.recognizer.CaptureUtterance(ctx, timeout, s.cfg.PhraseLimit)
	if err != nil {
		if errors.Is(err, speech.ErrNothingUnderstood) {
			s.backoff.Reset()
			s.setAwaiting(false)
		}
		return nil, err
	}
	s.backoff.Reset()

	logging.LogDebug("Utterance captured", zap.String("text", security.SanitizeLogInput(text)), zap.Bool("follow_up", followUp))

	turn := &Turn{Transcript: text, FollowUp: followUp}
	turn.Wake = s.detector.Detect(text)

	var commandText string
	switch {
	case turn.Wake.Detected:
		commandText = turn.Wake.Remainder
	case followUp:
		commandText = text
	default:
		return turn, nil
	}
	s.setAwaiting(false)

	if commandText == "" {
		turn.AwaitingCommand = true
		s.setAwaiting(true)
		return turn, nil
	}

	if s.cfg.Compound {
		turn.Commands = s.classifier.ClassifyAll(commandText)
	} else {
		turn.Commands = []intent.Classification{s.classifier.Analyze(commandText)}
	}

	var execErr error
	for _, cl := range turn.Commands {
		response := executor.Respond(cl.ParsedCommand)
		turn.Responses = append(turn.Responses, response)

		event := events.NewInterpretationEvent(s.cfg.SessionID, text)
		event.SetWake(turn.Wake.Detected, turn.Wake.Phrase, tierName(turn.Wake), turn.Wake.Fuzzy, commandText)
		event.SetCommandResult(cl.Command, map[string]interface{}(cl.Params), string(cl.Source), cl.Score)

		if err := s.executor.Execute(ctx, cl.ParsedCommand, response); err != nil {
			event.SetError(err)
			logging.LogError(err, "Command execution failed", zap.String("command", cl.Command))
			if execErr == nil {
				execErr = fmt.Errorf("%w: %s: %v", ErrExecution, cl.Command, err)
			}
		} else {
			event.SetResponse(response)
		}
		s.record(event)
	}

	return turn, execErr
}

// Run loops until ctx is done or the recognizer reports io.EOF, both of
// which end it without error. Nothing-understood captures are skipped;
// recognizer outages are retried on the backoff policy, and the last
// outage error is returned once the policy gives up.
func (s *Session) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		_, err := s.RunOnce(ctx)
		switch {
		case err == nil:
		case errors.Is(err, speech.ErrNothingUnderstood):
		case errors.Is(err, ErrExecution):
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return nil
			}
			return err
		case errors.Is(err, speech.ErrServiceUnavailable):
			wait := s.backoff.NextBackOff()
			if wait == backoff.Stop {
				return err
			}
			logging.LogWarn("Speech service unavailable, backing off", zap.Duration("wait", wait), zap.Error(err))
			if !sleep(ctx, wait) {
				return nil
			}
		default:
			return err
		}
	}
}

func (s *Session) setAwaiting(v bool) {
	s.mu.Lock()
	s.awaiting = v
	s.mu.Unlock()
}

func (s *Session) record(event *events.InterpretationEvent) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Insert(event); err != nil {
		logging.LogError(err, "Failed to record interpretation", zap.String("uuid", event.UUID))
	}
}

func tierName(r wake.Result) string {
	if !r.Detected {
		return ""
	}
	return string(r.Tier)
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
