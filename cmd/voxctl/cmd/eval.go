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
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-voxmind/internal/wake"
)

func newEvalCmd(opts *options) *cobra.Command {
	var (
		positivesFile string
		negativesFile string
		sensitivities []float64
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure wake detection accuracy",
		Long: `Reads labelled utterances, one per line, and reports the true-positive
and false-accept rates for each sensitivity. Blank lines and lines starting
with '#' are ignored.`,
		Example: `  voxctl eval --positives wake.txt --negatives chatter.txt --sensitivity 0.2,0.5,0.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			positives, err := readSamples(positivesFile)
			if err != nil {
				return err
			}
			negatives, err := readSamples(negativesFile)
			if err != nil {
				return err
			}
			if len(positives)+len(negatives) == 0 {
				return fmt.Errorf("no samples given; use --positives and/or --negatives")
			}

			if len(sensitivities) == 0 {
				sensitivities = []float64{opts.cfg.Wake.Sensitivity}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SENSITIVITY\tTPR\tFAR\tTP\tFP\tFUZZY")
			for _, s := range sensitivities {
				cfg := opts.cfg.Wake
				cfg.Sensitivity = s
				if err := cfg.Validate(); err != nil {
					return err
				}
				e := wake.Evaluate(cfg, positives, negatives)
				fmt.Fprintf(tw, "%.2f\t%.3f\t%.3f\t%d/%d\t%d/%d\t%d\n",
					e.Sensitivity, e.TPR(), e.FAR(),
					e.TruePositives, e.Positives, e.FalsePositives, e.Negatives,
					e.Metrics.FuzzyTriggers)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&positivesFile, "positives", "", "File of utterances that should wake")
	cmd.Flags().StringVar(&negativesFile, "negatives", "", "File of utterances that should not wake")
	cmd.Flags().Float64SliceVar(&sensitivities, "sensitivity", nil, "Sensitivities to evaluate (default: configured value)")
	return cmd
}

func readSamples(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples: %w", err)
	}
	defer f.Close()

	var samples []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		samples = append(samples, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return samples, nil
}
