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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loqalabs/loqa-voxmind/internal/security"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

// Config holds all configuration for voxmind
type Config struct {
	Server     ServerConfig
	Wake       wake.Config
	Classifier ClassifierConfig
	Logging    LoggingConfig
	NATS       NATSConfig
	Listen     ListenConfig
}

// ServerConfig holds daemon-level configuration
type ServerConfig struct {
	Host      string
	Port      int           // HTTP API
	GRPCPort  int           // health service
	DBPath    string        // interpretation audit log
	SessionID string        // tags events and published commands
	Retention time.Duration // audit rows older than this are pruned at startup; 0 keeps everything
}

// ClassifierConfig holds intent classifier configuration
type ClassifierConfig struct {
	SemanticEnabled   bool     `yaml:"semantic_enabled"`
	SemanticThreshold float64  `yaml:"semantic_threshold"`
	CompoundCommands  bool     `yaml:"compound_commands"`
	WakePrefixes      []string `yaml:"wake_prefixes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL               string
	TranscriptSubject string
	CommandSubject    string
	MaxReconnect      int
	ReconnectWait     time.Duration
}

// ListenConfig holds utterance capture configuration
type ListenConfig struct {
	CaptureTimeout time.Duration
	PhraseLimit    time.Duration
	BackoffMax     time.Duration
}

// Load loads configuration from environment variables with defaults, then
// applies the YAML file named by VOXMIND_CONFIG, if any.
func Load() (*Config, error) {
	wakeDefaults := wake.DefaultConfig()

	config := &Config{
		Server: ServerConfig{
			Host:      getEnvString("VOXMIND_HOST", "0.0.0.0"),
			Port:      getEnvInt("VOXMIND_PORT", 3000),
			GRPCPort:  getEnvInt("VOXMIND_GRPC_PORT", 50061),
			DBPath:    getEnvString("DB_PATH", "./data/voxmind.db"),
			SessionID: getEnvString("VOXMIND_SESSION", "default"),
			Retention: getEnvDuration("VOXMIND_RETENTION", 30*24*time.Hour),
		},
		Wake: wake.Config{
			PrimaryPhrases:          getEnvList("WAKE_PHRASES", wakeDefaults.PrimaryPhrases),
			SecondaryPhrases:        getEnvList("WAKE_SECONDARY_PHRASES", wakeDefaults.SecondaryPhrases),
			Sensitivity:             getEnvFloat64("WAKE_SENSITIVITY", wakeDefaults.Sensitivity),
			Debounce:                getEnvDuration("WAKE_DEBOUNCE", wakeDefaults.Debounce),
			PrimaryFuzzyThreshold:   getEnvFloat64("WAKE_PRIMARY_FUZZY_THRESHOLD", wakeDefaults.PrimaryFuzzyThreshold),
			SecondaryFuzzyThreshold: getEnvFloat64("WAKE_SECONDARY_FUZZY_THRESHOLD", wakeDefaults.SecondaryFuzzyThreshold),
			MaxStartOffset:          getEnvInt("WAKE_MAX_START_OFFSET", wakeDefaults.MaxStartOffset),
		},
		Classifier: ClassifierConfig{
			SemanticEnabled:   getEnvBool("CLASSIFIER_SEMANTIC", false),
			SemanticThreshold: getEnvFloat64("CLASSIFIER_SEMANTIC_THRESHOLD", 0.65),
			CompoundCommands:  getEnvBool("CLASSIFIER_COMPOUND", true),
			WakePrefixes:      getEnvList("CLASSIFIER_WAKE_PREFIXES", nil),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:               getEnvString("NATS_URL", "nats://localhost:4222"),
			TranscriptSubject: getEnvString("NATS_TRANSCRIPT_SUBJECT", "loqa.voxmind.transcripts"),
			CommandSubject:    getEnvString("NATS_COMMAND_SUBJECT", "loqa.voxmind.commands"),
			MaxReconnect:      getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait:     getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Listen: ListenConfig{
			CaptureTimeout: getEnvDuration("LISTEN_TIMEOUT", 5*time.Second),
			PhraseLimit:    getEnvDuration("LISTEN_PHRASE_LIMIT", 8*time.Second),
			BackoffMax:     getEnvDuration("LISTEN_BACKOFF_MAX", 30*time.Second),
		},
	}

	if path := os.Getenv("VOXMIND_CONFIG"); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyFile overlays the wake and classifier sections of a YAML file. Keys
// absent from the file keep their current values.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	overlay := struct {
		Wake       *wake.Config      `yaml:"wake"`
		Classifier *ClassifierConfig `yaml:"classifier"`
	}{&c.Wake, &c.Classifier}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overlay); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	if c.Server.DBPath == "" {
		return fmt.Errorf("database path must be provided")
	}

	if err := security.ValidateSessionID(c.Server.SessionID); err != nil {
		return fmt.Errorf("%w: %q", err, c.Server.SessionID)
	}

	if c.Server.Retention < 0 {
		return fmt.Errorf("retention must not be negative: %v", c.Server.Retention)
	}

	if err := c.Wake.Validate(); err != nil {
		return fmt.Errorf("wake: %w", err)
	}

	if c.Classifier.SemanticThreshold <= 0 || c.Classifier.SemanticThreshold > 1 {
		return fmt.Errorf("semantic threshold must be within (0,1]: %v", c.Classifier.SemanticThreshold)
	}

	if c.NATS.URL == "" {
		return fmt.Errorf("NATS URL must be provided")
	}

	if c.Listen.CaptureTimeout < 0 || c.Listen.PhraseLimit < 0 {
		return fmt.Errorf("listen timeouts must not be negative")
	}

	if c.Listen.BackoffMax <= 0 {
		return fmt.Errorf("listen backoff max must be positive: %v", c.Listen.BackoffMax)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
