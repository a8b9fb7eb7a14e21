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
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-voxmind/internal/executor"
	"github.com/loqalabs/loqa-voxmind/internal/intent"
	"github.com/loqalabs/loqa-voxmind/internal/server"
)

func newClassifyCmd(opts *options) *cobra.Command {
	var (
		compound bool
		semantic bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "classify <utterance>",
		Short: "Classify an utterance without executing it",
		Long: `Runs an utterance through the rule table, the keyword fallback and,
when enabled, the semantic stage. Nothing is executed or stored.`,
		Example: `  voxctl classify set volume to 35
  voxctl classify --semantic turn it up
  voxctl classify --json "open chrome and search for cats"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ccfg := opts.cfg.Classifier
			if cmd.Flags().Changed("compound") {
				ccfg.CompoundCommands = compound
			}
			if cmd.Flags().Changed("semantic") {
				ccfg.SemanticEnabled = semantic
			}

			cascade := server.NewCascade(ccfg)
			text := strings.Join(args, " ")

			var results []intent.Classification
			if ccfg.CompoundCommands {
				results = cascade.ClassifyAll(text)
			} else {
				results = []intent.Classification{cascade.Analyze(text)}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COMMAND\tSOURCE\tSCORE\tPARAMS\tRESPONSE")
			for _, cl := range results {
				params, err := json.Marshal(cl.Params)
				if err != nil {
					return fmt.Errorf("failed to encode params: %w", err)
				}
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
					cl.Command, cl.Source, cl.Score, params, executor.Respond(cl.ParsedCommand))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&compound, "compound", true, "Split on \"and\"/\"then\" into several commands")
	cmd.Flags().BoolVar(&semantic, "semantic", false, "Enable the semantic stage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
