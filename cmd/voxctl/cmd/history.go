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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-voxmind/internal/storage"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit   int
		command string
		session string
		stats   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored interpretations",
		Example: `  voxctl history --limit 10
  voxctl history --command control_volume
  voxctl history --stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.NewDatabase(storage.DatabaseConfig{Path: opts.cfg.Server.DBPath})
			if err != nil {
				return err
			}
			defer db.Close()

			store := storage.NewInterpretationStore(db)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

			if stats {
				counts, err := store.CommandCounts()
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "COMMAND\tCOUNT")
				for _, c := range counts {
					fmt.Fprintf(tw, "%s\t%d\n", c.Command, c.Count)
				}
				return tw.Flush()
			}

			list, err := store.List(storage.ListOptions{
				SessionID: session,
				Command:   command,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(tw, "TIME\tSESSION\tCOMMAND\tSOURCE\tOK\tTRANSCRIPT")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.SessionID, e.Command, e.Source, e.Success, e.Transcript)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of rows")
	cmd.Flags().StringVar(&command, "command", "", "Only show this command")
	cmd.Flags().StringVar(&session, "session", "", "Only show this session")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show per-command counts instead")
	return cmd
}
