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
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/speech"
)

func runServer(t *testing.T) *server.Server {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func connect(t *testing.T, url string) *NATSService {
	t.Helper()
	ns := NewNATSService(NATSConfig{URL: url, MaxReconnects: 1, ReconnectWait: 10 * time.Millisecond})
	require.NoError(t, ns.Connect())
	t.Cleanup(ns.Close)
	return ns
}

func TestNewNATSService_Defaults(t *testing.T) {
	ns := NewNATSService(NATSConfig{})
	cfg := ns.Config()

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, SubjectTranscripts, cfg.TranscriptSubject)
	assert.Equal(t, SubjectCommands, cfg.CommandSubject)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.False(t, ns.IsConnected())
	assert.Equal(t, uint64(0), ns.GetStats().OutMsgs)
}

func TestNATSService_NotConnected(t *testing.T) {
	ns := NewNATSService(NATSConfig{})

	assert.Error(t, ns.PublishCommand(&CommandEvent{}))
	assert.Error(t, ns.PublishTranscript(&TranscriptEvent{}))
	_, err := ns.SubscribeCommands(func(*CommandEvent) {})
	assert.Error(t, err)
	_, err = NewTranscriptRecognizer(ns, "")
	assert.Error(t, err)
	ns.Close()
}

func TestNATSExecutor_PublishesCommands(t *testing.T) {
	s := runServer(t)
	ns := connect(t, s.ClientURL())

	received := make(chan *CommandEvent, 1)
	sub, err := ns.SubscribeCommands(func(e *CommandEvent) { received <- e })
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, ns.Flush())

	ex := NewNATSExecutor(ns, "kitchen")
	cmd := intent.ParsedCommand{Command: intent.CommandControlVolume, Params: intent.Params{"action": "set", "level": 35}}
	require.NoError(t, ex.Execute(context.Background(), cmd, "Volume set to 35 percent."))

	select {
	case e := <-received:
		assert.Equal(t, "kitchen", e.SessionID)
		assert.Equal(t, intent.CommandControlVolume, e.Command)
		assert.Equal(t, float64(35), e.Params["level"])
		assert.Equal(t, "Volume set to 35 percent.", e.Response)
		assert.NotEmpty(t, e.EventID)
		assert.NotZero(t, e.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("command event not received")
	}
}

func TestNATSService_SubscribeTranscripts(t *testing.T) {
	s := runServer(t)
	ns := connect(t, s.ClientURL())

	received := make(chan *TranscriptEvent, 1)
	sub, err := ns.SubscribeTranscripts(func(e *TranscriptEvent) { received <- e })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, ns.PublishTranscript(&TranscriptEvent{SessionID: "s", Text: "hey vox help"}))

	select {
	case e := <-received:
		assert.Equal(t, "hey vox help", e.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("transcript event not received")
	}
}

func TestTranscriptRecognizer(t *testing.T) {
	s := runServer(t)
	ns := connect(t, s.ClientURL())

	rec, err := NewTranscriptRecognizer(ns, "desk")
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()

	require.NoError(t, ns.PublishTranscript(&TranscriptEvent{SessionID: "other", Text: "ignored"}))
	require.NoError(t, ns.PublishTranscript(&TranscriptEvent{SessionID: "desk", Text: "  hey vox lock my laptop "}))
	text, err := rec.CaptureUtterance(ctx, 2*time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, "hey vox lock my laptop", text)

	require.NoError(t, ns.PublishTranscript(&TranscriptEvent{SessionID: "desk", Text: "   "}))
	_, err = rec.CaptureUtterance(ctx, 2*time.Second, 0)
	assert.ErrorIs(t, err, speech.ErrNothingUnderstood)

	_, err = rec.CaptureUtterance(ctx, 50*time.Millisecond, 0)
	assert.ErrorIs(t, err, speech.ErrNothingUnderstood)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = rec.CaptureUtterance(canceled, time.Second, 0)
	assert.ErrorIs(t, err, context.Canceled)

	ns.Close()
	_, err = rec.CaptureUtterance(ctx, time.Second, 0)
	assert.ErrorIs(t, err, speech.ErrServiceUnavailable)
}

func TestTranscriptRecognizer_TimeoutSpansSkippedTranscripts(t *testing.T) {
	s := runServer(t)
	ns := connect(t, s.ClientURL())

	rec, err := NewTranscriptRecognizer(ns, "kitchen")
	require.NoError(t, err)
	defer rec.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = ns.PublishTranscript(&TranscriptEvent{SessionID: "garage", Text: "hey vox open the door"})
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	start := time.Now()
	_, err = rec.CaptureUtterance(context.Background(), 200*time.Millisecond, 0)
	assert.ErrorIs(t, err, speech.ErrNothingUnderstood)
	assert.Less(t, time.Since(start), time.Second)
}
