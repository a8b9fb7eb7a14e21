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

	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

func newWakeCmd(opts *options) *cobra.Command {
	var (
		sensitivity float64
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "wake <utterance>...",
		Short: "Run the wake phrase detector",
		Long: `Runs each argument through one detector in order, so debounce applies
between them exactly as it would between live utterances.`,
		Example: `  voxctl wake "hey vox what time is it"
  voxctl wake --sensitivity 0.9 "vox play music"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Wake
			if cmd.Flags().Changed("sensitivity") {
				cfg.Sensitivity = sensitivity
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			d := wake.New(cfg)
			results := make([]wake.Result, 0, len(args))
			for _, text := range args {
				results = append(results, d.Detect(text))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "UTTERANCE\tDETECTED\tPHRASE\tTIER\tFUZZY\tSCORE\tREMAINDER")
			for i, r := range results {
				status := fmt.Sprintf("%t", r.Detected)
				if r.Suppressed {
					status = "debounced"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%.2f\t%s\n",
					strings.TrimSpace(args[i]), status, r.Phrase, r.Tier, r.Fuzzy, r.Score, r.Remainder)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Float64Var(&sensitivity, "sensitivity", 0.5, "Override the configured sensitivity (0-1)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
