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
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-voxmind/internal/executor"
	"github.com/loqalabs/loqa-voxmind/internal/intent"
)

// NATSExecutor hands commands to remote executors over NATS.
type NATSExecutor struct {
	ns      *NATSService
	session string
}

var _ executor.Executor = (*NATSExecutor)(nil)

// NewNATSExecutor publishes commands tagged with session.
func NewNATSExecutor(ns *NATSService, session string) *NATSExecutor {
	return &NATSExecutor{ns: ns, session: session}
}

// Execute publishes cmd and its response on the command subject.
func (e *NATSExecutor) Execute(ctx context.Context, cmd intent.ParsedCommand, response string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := map[string]interface{}(cmd.Params)
	if params == nil {
		params = map[string]interface{}{}
	}
	return e.ns.PublishCommand(&CommandEvent{
		EventID:   uuid.NewString(),
		SessionID: e.session,
		Command:   cmd.Command,
		Params:    params,
		Response:  response,
		Timestamp: time.Now().UnixMilli(),
	})
}
