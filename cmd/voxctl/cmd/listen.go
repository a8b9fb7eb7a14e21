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

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-voxmind/internal/assistant"
	"github.com/loqalabs/loqa-voxmind/internal/executor"
	"github.com/loqalabs/loqa-voxmind/internal/messaging"
	"github.com/loqalabs/loqa-voxmind/internal/server"
	"github.com/loqalabs/loqa-voxmind/internal/speech"
	"github.com/loqalabs/loqa-voxmind/internal/storage"
	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

func newListenCmd(opts *options) *cobra.Command {
	var (
		record  bool
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the assistant loop over stdin",
		Long: `Reads one utterance per line from stdin and runs the full loop: wake
detection, classification and execution. Responses are printed; commands
are optionally stored and published to NATS. The loop ends at end of input.`,
		Example: `  echo "hey vox what time is it" | voxctl listen
  voxctl listen --record --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			var ex executor.Executor = executor.NewLogExecutor(cmd.OutOrStdout())
			var sessionOpts []assistant.Option

			if record {
				db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Server.DBPath})
				if err != nil {
					return err
				}
				defer db.Close()
				sessionOpts = append(sessionOpts, assistant.WithRecorder(storage.NewInterpretationStore(db)))
			}

			if publish {
				ns := messaging.NewNATSService(messaging.NATSConfig{
					URL:            cfg.NATS.URL,
					CommandSubject: cfg.NATS.CommandSubject,
					ReconnectWait:  cfg.NATS.ReconnectWait,
					MaxReconnects:  cfg.NATS.MaxReconnect,
				})
				if err := ns.Connect(); err != nil {
					return err
				}
				defer ns.Close()
				ex = executor.Multi(ex, messaging.NewNATSExecutor(ns, cfg.Server.SessionID))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := assistant.New(assistant.Config{
				SessionID:      cfg.Server.SessionID,
				CaptureTimeout: cfg.Listen.CaptureTimeout,
				PhraseLimit:    cfg.Listen.PhraseLimit,
				Compound:       cfg.Classifier.CompoundCommands,
				BackoffMax:     cfg.Listen.BackoffMax,
			},
				speech.NewLineRecognizer(cmd.InOrStdin()),
				wake.New(cfg.Wake),
				server.NewCascade(cfg.Classifier),
				ex,
				sessionOpts...,
			)
			return session.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "Store interpretations in the configured database")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish commands to NATS")
	return cmd
}
