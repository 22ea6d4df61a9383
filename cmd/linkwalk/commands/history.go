// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists, shows and deletes stored runs.",
}

// historyApp opens the history database and an app over it
func historyApp() (*app.App, func(), error) {
	st, err := requireStore()
	if err != nil {
		return nil, nil, err
	}
	return newApp(st, nil)
}

var (
	listFilter store.RunFilter
	listJSON   bool
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists stored runs, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := historyApp()
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := a.ListRuns(listFilter)
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Date", "Outcome", "Site", "Steps", "Links", "Duration", "Entry URL"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				shortID(r.ID), formatTime(r.CreatedAt), outcomeText(r.Outcome), r.Site,
				r.Steps, r.LinkCount, formatDuration(r.DurationMs), truncate(r.EntryURL, 60),
			})
		}
		t.Render()
		return nil
	},
}

var showJSON bool

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Shows a stored run with its links and trail. A unique id prefix is enough.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := historyApp()
		if err != nil {
			return err
		}
		defer cleanup()

		detail, err := a.GetRun(args[0])
		if err != nil {
			return err
		}
		if showJSON {
			return printJSON(detail)
		}
		printRun(detail)
		printTrail(detail.Trail)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>...",
	Short: "Deletes stored runs.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := historyApp()
		if err != nil {
			return err
		}
		defer cleanup()

		for _, id := range args {
			if err := a.DeleteRun(id); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", id)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Counts stored runs by outcome.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := historyApp()
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := a.GetStats()
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"Outcome", "Runs"})
		t.AppendRows([]table.Row{
			{"resolved", stats.Resolved},
			{"failed", stats.Failed},
			{"timed_out", stats.TimedOut},
		})
		t.AppendFooter(table.Row{"total", stats.Total})
		t.Render()
		return nil
	},
}

func init() {
	listFlags := historyListCmd.Flags()
	listFlags.IntVarP(&listFilter.Limit, "limit", "n", 20, "maximum number of runs, 0 for all")
	listFlags.StringVar(&listFilter.Site, "site", "", "only runs handled by this site")
	listFlags.StringVar(&listFilter.Outcome, "outcome", "", "resolved, failed, timed_out or all")
	listFlags.StringVar(&listFilter.Query, "query", "", "substring of the entry or final URL")
	listFlags.BoolVar(&listJSON, "json", false, "print runs as JSON")
	historyShowCmd.Flags().BoolVar(&showJSON, "json", false, "print the run as JSON")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}
