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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	batchFlags       runFlags
	batchFile        string
	batchParallelism int
	batchSummary     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch -f <file>",
	Short: "Resolves the entry URLs listed in a file, one per line, several at a time.",
	Example: `  linkwalk batch -f links.txt -p 4
  cat links.txt | linkwalk batch -f - --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := readURLList(batchFile)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs in %s", batchFile)
		}

		a, cleanup, err := batchFlags.start(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		details := a.ResolveAll(cmd.Context(), urls, batchParallelism, nil)
		if batchSummary && !batchFlags.jsonOutput {
			printBatchSummary(details)
			for _, d := range details {
				if d.RunInfo.Outcome != "resolved" {
					return errRunsFailed
				}
			}
			return nil
		}
		return batchFlags.report(details)
	},
}

func init() {
	batchFlags.register(batchCmd)
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", `file with one entry URL per line, "-" for stdin`)
	batchCmd.Flags().IntVarP(&batchParallelism, "parallelism", "p", 0, "concurrent runs (default from config, 2)")
	batchCmd.Flags().BoolVar(&batchSummary, "summary", false, "print one table row per run instead of every link")
	batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readURLList reads entry URLs, skipping blank lines and # comments
func readURLList(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func printBatchSummary(details []*types.RunDetail) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Outcome", "Site", "Steps", "Links", "Entry URL"})
	resolved := 0
	for i, d := range details {
		info := d.RunInfo
		if info.Outcome == "resolved" {
			resolved++
		}
		t.AppendRow(table.Row{i + 1, outcomeText(info.Outcome), info.Site, info.Steps, info.LinkCount, truncate(info.EntryURL, 60)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d", resolved, len(details)), "", "", "", ""})
	t.Render()
}
