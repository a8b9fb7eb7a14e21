package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/loqalabs/loqa-voxmind/internal/logging"
)

// NATSService handles NATS messaging between recognizers, voxmind and
// executors.
type NATSService struct {
	conn *nats.Conn
	cfg  NATSConfig
}

// NATSConfig holds connection and subject settings.
type NATSConfig struct {
	URL               string
	Name              string
	TranscriptSubject string
	CommandSubject    string
	ReconnectWait     time.Duration
	MaxReconnects     int // -1 retries forever
}

// TranscriptEvent is a recognized utterance published by a speech frontend.
type TranscriptEvent struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// CommandEvent is a classified command published for executors.
type CommandEvent struct {
	EventID   string                 `json:"event_id"`
	SessionID string                 `json:"session_id"`
	Command   string                 `json:"command"`
	Params    map[string]interface{} `json:"params"`
	Response  string                 `json:"response,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Default NATS subjects
const (
	SubjectTranscripts = "loqa.voxmind.transcripts"
	SubjectCommands    = "loqa.voxmind.commands"
)

// DefaultNATSConfig returns local defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:               nats.DefaultURL,
		Name:              "loqa-voxmind",
		TranscriptSubject: SubjectTranscripts,
		CommandSubject:    SubjectCommands,
		ReconnectWait:     2 * time.Second,
		MaxReconnects:     -1,
	}
}

// NewNATSService creates a service; empty fields take defaults.
func NewNATSService(cfg NATSConfig) *NATSService {
	def := DefaultNATSConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.TranscriptSubject == "" {
		cfg.TranscriptSubject = def.TranscriptSubject
	}
	if cfg.CommandSubject == "" {
		cfg.CommandSubject = def.CommandSubject
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = def.ReconnectWait
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = def.MaxReconnects
	}
	return &NATSService{cfg: cfg}
}

// Config returns the effective configuration.
func (ns *NATSService) Config() NATSConfig {
	return ns.cfg
}

// Connect establishes connection to the NATS server.
func (ns *NATSService) Connect() error {
	logging.LogNATSEvent(ns.cfg.URL, "connecting")

	opts := []nats.Option{
		nats.Name(ns.cfg.Name),
		nats.ReconnectWait(ns.cfg.ReconnectWait),
		nats.MaxReconnects(ns.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.LogWarn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(nc.ConnectedUrl(), "reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.LogNATSEvent(ns.cfg.URL, "closed")
		}),
	}

	conn, err := nats.Connect(ns.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	logging.LogNATSEvent(conn.ConnectedUrl(), "connected")
	return nil
}

// PublishCommand publishes a classified command.
func (ns *NATSService) PublishCommand(event *CommandEvent) error {
	if err := ns.publish(ns.cfg.CommandSubject, event); err != nil {
		return err
	}
	logging.LogNATSEvent(ns.cfg.CommandSubject, "published", zap.String("command", event.Command))
	return nil
}

// PublishTranscript publishes a recognized utterance.
func (ns *NATSService) PublishTranscript(event *TranscriptEvent) error {
	if err := ns.publish(ns.cfg.TranscriptSubject, event); err != nil {
		return err
	}
	logging.LogNATSEvent(ns.cfg.TranscriptSubject, "published", zap.String("session_id", event.SessionID))
	return nil
}

func (ns *NATSService) publish(subject string, v interface{}) error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", subject, err)
	}

	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// SubscribeCommands delivers command events to handler.
func (ns *NATSService) SubscribeCommands(handler func(*CommandEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	subject := ns.cfg.CommandSubject
	return ns.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event CommandEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.LogError(err, "Error unmarshaling command event", zap.String("subject", subject))
			return
		}
		logging.LogNATSEvent(subject, "received", zap.String("command", event.Command))
		handler(&event)
	})
}

// SubscribeTranscripts delivers transcript events to handler.
func (ns *NATSService) SubscribeTranscripts(handler func(*TranscriptEvent)) (*nats.Subscription, error) {
	if ns.conn == nil {
		return nil, fmt.Errorf("NATS connection not established")
	}

	subject := ns.cfg.TranscriptSubject
	return ns.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event TranscriptEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logging.LogError(err, "Error unmarshaling transcript event", zap.String("subject", subject))
			return
		}
		handler(&event)
	})
}

// Flush round-trips to the server so prior publishes are processed.
func (ns *NATSService) Flush() error {
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}
	return ns.conn.Flush()
}

// Close closes the NATS connection.
func (ns *NATSService) Close() {
	if ns.conn != nil {
		ns.conn.Close()
	}
}

// IsConnected returns true if connected to NATS.
func (ns *NATSService) IsConnected() bool {
	return ns.conn != nil && ns.conn.IsConnected()
}

// GetStats returns connection statistics.
func (ns *NATSService) GetStats() nats.Statistics {
	if ns.conn != nil {
		return ns.conn.Stats()
	}
	return nats.Statistics{}
}
