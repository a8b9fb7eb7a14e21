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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/loqalabs/loqa-voxmind/internal/assistant"
	"github.com/loqalabs/loqa-voxmind/internal/config"
	"github.com/loqalabs/loqa-voxmind/internal/executor"
	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/logging"
	"github.com/loqalabs/loqa-voxmind/internal/messaging"
	"github.com/loqalabs/loqa-voxmind/internal/security"
	"github.com/loqalabs/loqa-voxmind/internal/storage"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

// HealthService is the service name reported by the gRPC health server.
const HealthService = "loqa.voxmind"

// Server runs the voxmind daemon: the listen loop fed by NATS transcripts,
// the HTTP API and the gRPC health service.
type Server struct {
	cfg    *config.Config
	mux    *http.ServeMux
	server *http.Server

	detector        *wake.Detector
	cascade         *intent.Cascade
	db              *storage.Database
	interpretations *storage.InterpretationStore
	wakeMetrics     *storage.WakeMetricsStore
	nats            *messaging.NATSService

	grpcServer *grpc.Server
	health     *health.Server

	// Server context for graceful shutdown
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	done    chan struct{}
}

// NewCascade builds the classifier cascade described by cfg.
func NewCascade(cfg config.ClassifierConfig) *intent.Cascade {
	var opts []intent.Option
	if len(cfg.WakePrefixes) > 0 {
		opts = append(opts, intent.WithWakePrefixes(cfg.WakePrefixes...))
	}
	rules := intent.NewClassifier(opts...)

	if !cfg.SemanticEnabled {
		return intent.NewCascade(rules)
	}
	sc := intent.NewSemanticClassifier(intent.DefaultSemanticExamples(rules.Rules()))
	return intent.NewCascade(rules, intent.WithSemantic(sc, cfg.SemanticThreshold))
}

// New creates a server, opening the database and pruning expired audit rows.
func New(cfg *config.Config) (*Server, error) {
	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Server.DBPath})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:             cfg,
		mux:             http.NewServeMux(),
		detector:        wake.New(cfg.Wake),
		cascade:         NewCascade(cfg.Classifier),
		db:              db,
		interpretations: storage.NewInterpretationStore(db),
		wakeMetrics:     storage.NewWakeMetricsStore(db),
		nats: messaging.NewNATSService(messaging.NATSConfig{
			URL:               cfg.NATS.URL,
			TranscriptSubject: cfg.NATS.TranscriptSubject,
			CommandSubject:    cfg.NATS.CommandSubject,
			ReconnectWait:     cfg.NATS.ReconnectWait,
			MaxReconnects:     cfg.NATS.MaxReconnect,
		}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Server.Retention > 0 {
		cutoff := time.Now().Add(-cfg.Server.Retention)
		pruned, err := s.interpretations.DeleteBefore(cutoff)
		if err != nil {
			logging.LogError(err, "Failed to prune interpretations")
		} else if pruned > 0 {
			if err := db.Vacuum(); err != nil {
				logging.LogError(err, "Failed to vacuum database after prune")
			}
		}
	}

	s.routes()
	return s, nil
}

// Start connects to NATS, starts the health and HTTP listeners and runs the
// listen loop until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.nats.Connect(); err != nil {
		return err
	}

	recognizer, err := messaging.NewTranscriptRecognizer(s.nats, s.cfg.Server.SessionID)
	if err != nil {
		return err
	}
	defer func() { _ = recognizer.Close() }()

	if err := s.startHealth(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server failed: %w", err)
			cancel()
		}
	}()

	session := assistant.New(assistant.Config{
		SessionID:      s.cfg.Server.SessionID,
		CaptureTimeout: s.cfg.Listen.CaptureTimeout,
		PhraseLimit:    s.cfg.Listen.PhraseLimit,
		Compound:       s.cfg.Classifier.CompoundCommands,
		BackoffMax:     s.cfg.Listen.BackoffMax,
	},
		recognizer,
		s.detector,
		s.cascade,
		executor.Multi(executor.NewLogExecutor(nil), messaging.NewNATSExecutor(s.nats, s.cfg.Server.SessionID)),
		assistant.WithRecorder(s.interpretations),
	)

	logging.Sugar.Infow("🚀 voxmind listening",
		"http_port", s.cfg.Server.Port,
		"grpc_port", s.cfg.Server.GRPCPort,
		"session", s.cfg.Server.SessionID,
		"transcripts", s.nats.Config().TranscriptSubject,
		"semantic", s.cascade.SemanticEnabled())

	runErr := session.Run(ctx)

	select {
	case err := <-errCh:
		return err
	default:
	}
	return runErr
}

func (s *Server) startHealth() error {
	lis, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.GRPCPort)))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	s.grpcServer = grpc.NewServer()
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			logging.LogError(err, "gRPC health server stopped")
		}
	}()
	return nil
}

// Stop gracefully shuts down the server. It is safe to call when Start was
// never called.
func (s *Server) Stop() error {
	logging.Sugar.Infow("🛑 Shutting down voxmind")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Let the listen loop finish its current turn before the store closes.
	if s.started.Load() {
		select {
		case <-s.done:
		case <-shutdownCtx.Done():
		}
	}

	var errs []error
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	if err := s.wakeMetrics.Save(s.detector.Config().Sensitivity, s.detector.Metrics()); err != nil {
		errs = append(errs, fmt.Errorf("failed to save wake metrics: %w", err))
	}

	s.nats.Close()
	if err := s.db.Checkpoint(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logging.Sugar.Infow("✅ voxmind shut down successfully")
	return nil
}

// Handler returns the HTTP API handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// routes sets up HTTP routing
func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/classify", s.handleClassify)
	s.mux.HandleFunc("/api/interpretations", s.handleInterpretations)
	s.mux.HandleFunc("/api/interpretations/stats", s.handleInterpretationStats)
	s.mux.HandleFunc("/api/wake/metrics", s.handleWakeMetrics)
	s.mux.HandleFunc("/api/wake/sensitivity", s.handleWakeSensitivity)

	logging.Sugar.Infow("🌐 HTTP routes configured",
		"classify_endpoint", "/api/classify",
		"history_endpoint", "/api/interpretations",
		"wake_endpoint", "/api/wake/metrics")
}

// handleHealth provides system health information
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":           "ok",
		"timestamp":        time.Now(),
		"nats_connected":   s.nats.IsConnected(),
		"semantic_enabled": s.cascade.SemanticEnabled(),
		"wake_sensitivity": s.detector.Config().Sensitivity,
	}
	if err := s.db.Ping(); err != nil {
		status["status"] = "degraded"
		status["database_error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, status); err != nil {
		logging.Sugar.Errorw("Failed to write health response", "error", err)
	}
}

type classifyRequest struct {
	Text     string `json:"text"`
	Compound bool   `json:"compound"`
}

type classifyResponse struct {
	Text     string                  `json:"text"`
	Commands []intent.Classification `json:"commands"`
	Response []string                `json:"responses"`
}

// handleClassify runs text through the classifier without executing it
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request classifyRequest
	if err := readJSON(r, &request); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := security.ValidateUtterance(request.Text); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.LogDebug("Classify request", zap.String("text", security.SanitizeLogInput(request.Text)))

	var results []intent.Classification
	if request.Compound {
		results = s.cascade.ClassifyAll(request.Text)
	} else {
		results = []intent.Classification{s.cascade.Analyze(request.Text)}
	}

	resp := classifyResponse{Text: request.Text, Commands: results}
	for _, cl := range results {
		resp.Response = append(resp.Response, executor.Respond(cl.ParsedCommand))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, resp); err != nil {
		logging.Sugar.Errorw("Failed to write classify response", "error", err)
	}
}

// handleInterpretations lists stored interpretations
func (s *Server) handleInterpretations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if session := q.Get("session"); session != "" {
		if err := security.ValidateSessionID(session); err != nil {
			http.Error(w, "Invalid session", http.StatusBadRequest)
			return
		}
	}
	options := storage.ListOptions{
		SessionID: q.Get("session"),
		Command:   q.Get("command"),
		Source:    q.Get("source"),
		Limit:     20,
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		options.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		options.Offset = offset
	}

	list, err := s.interpretations.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list interpretations")
		http.Error(w, "Failed to list interpretations", http.StatusInternalServerError)
		return
	}
	total, err := s.interpretations.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count interpretations")
		http.Error(w, "Failed to count interpretations", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]interface{}{
		"interpretations": list,
		"total":           total,
	}); err != nil {
		logging.Sugar.Errorw("Failed to write interpretations", "error", err)
	}
}

// handleInterpretationStats returns per-command counts
func (s *Server) handleInterpretationStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := s.interpretations.CommandCounts()
	if err != nil {
		logging.LogError(err, "Failed to count commands")
		http.Error(w, "Failed to count commands", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, counts); err != nil {
		logging.Sugar.Errorw("Failed to write interpretation stats", "error", err)
	}
}

// handleWakeMetrics returns the live detector counters and the last
// persisted snapshot
func (s *Server) handleWakeMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m := s.detector.Metrics()
	resp := map[string]interface{}{
		"metrics":      m,
		"trigger_rate": m.TriggerRate(),
		"fuzzy_share":  m.FuzzyShare(),
		"sensitivity":  s.detector.Config().Sensitivity,
	}
	if last, err := s.wakeMetrics.Latest(); err == nil {
		resp["last_snapshot"] = last
	} else if !errors.Is(err, storage.ErrNotFound) {
		logging.LogWarn("Failed to load wake metrics snapshot", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, resp); err != nil {
		logging.Sugar.Errorw("Failed to write wake metrics", "error", err)
	}
}

// handleWakeSensitivity adjusts the detector sensitivity at runtime
func (s *Server) handleWakeSensitivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Sensitivity *float64 `json:"sensitivity"`
	}
	if err := readJSON(r, &request); err != nil || request.Sensitivity == nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	s.detector.SetSensitivity(*request.Sensitivity)
	cfg := s.detector.Config()
	logging.Sugar.Infow("Wake sensitivity updated", "sensitivity", cfg.Sensitivity)

	w.Header().Set("Content-Type", "application/json")
	if err := writeJSON(w, map[string]float64{"sensitivity": cfg.Sensitivity}); err != nil {
		logging.Sugar.Errorw("Failed to write sensitivity response", "error", err)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}) error {
	return json.NewEncoder(w).Encode(data)
}

func readJSON(r *http.Request, data interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()

	return json.Unmarshal(body, data)
}
