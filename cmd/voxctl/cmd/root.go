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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-voxmind/internal/config"
	"github.com/loqalabs/loqa-voxmind/internal/logging"
)

// options carries the persistent flags and the configuration they resolve
// to. It is filled before any subcommand runs.
type options struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
}

// NewRootCmd builds the voxctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "voxctl",
		Short: "voxmind - voice command interpreter toolbox",
		Long: `voxctl drives the voxmind interpreter from a terminal.

Commands:
  classify  - classify an utterance without executing it
  wake      - run the wake phrase detector over an utterance
  eval      - measure wake detection accuracy over labelled samples
  listen    - run the assistant loop over lines read from stdin
  history   - show stored interpretations
  status    - check a running voxmind daemon`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "YAML config file (default: $VOXMIND_CONFIG)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")

	root.AddCommand(
		newClassifyCmd(opts),
		newWakeCmd(opts),
		newEvalCmd(opts),
		newListenCmd(opts),
		newHistoryCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) load() error {
	if o.cfgFile != "" {
		if err := os.Setenv("VOXMIND_CONFIG", o.cfgFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	if err := logging.InitializeWithConfig(logging.LogConfig{Level: level, Format: "console"}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	o.cfg = cfg
	return nil
}
