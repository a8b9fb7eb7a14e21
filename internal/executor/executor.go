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

// Package executor defines the collaborator that carries out classified
// commands and the spoken feedback for each one.
package executor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/logging"
)

// Executor performs the effect of a command and speaks response. Effects
// are fire-and-forget from the caller's point of view; the error only
// reports that the command could not be handed off.
type Executor interface {
	Execute(ctx context.Context, cmd intent.ParsedCommand, response string) error
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, cmd intent.ParsedCommand, response string) error

// Execute calls f.
func (f Func) Execute(ctx context.Context, cmd intent.ParsedCommand, response string) error {
	return f(ctx, cmd, response)
}

// LogExecutor logs every command and, when Out is set, prints the response.
// It performs no side effects and is used for dry runs and the terminal
// listener.
type LogExecutor struct {
	mu  sync.Mutex
	Out io.Writer
}

// NewLogExecutor creates a LogExecutor writing responses to out, which may
// be nil.
func NewLogExecutor(out io.Writer) *LogExecutor {
	return &LogExecutor{Out: out}
}

// Execute implements Executor.
func (e *LogExecutor) Execute(ctx context.Context, cmd intent.ParsedCommand, response string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if logging.Logger != nil {
		logging.Logger.Info("Executing command",
			zap.String("component", "executor"),
			zap.String("command", cmd.Command),
			zap.Any("params", cmd.Params))
	}

	if e.Out == nil || response == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintln(e.Out, response); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// Multi fans a command out to several executors. Every executor is called;
// the first error is returned.
func Multi(executors ...Executor) Executor {
	return Func(func(ctx context.Context, cmd intent.ParsedCommand, response string) error {
		var first error
		for _, ex := range executors {
			if ex == nil {
				continue
			}
			if err := ex.Execute(ctx, cmd, response); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
