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
	"github.com/spf13/cobra"
)

var (
	exportRunID  string
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:     "export --run-id <id>",
	Short:   "Exports a stored run to JSON (run, links and trail) or CSV (links).",
	Example: `  linkwalk export --run-id 3f2a9c1e --format csv -o ./export`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := historyApp()
		if err != nil {
			return err
		}
		defer cleanup()

		path, err := a.ExportRun(exportRunID, exportFormat, exportDir)
		if err != nil {
			return err
		}
		fmt.Printf("Exported run %s to %s\n", exportRunID, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "run id or unique prefix (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", app.FormatJSON, "export format: json or csv")
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "output directory")
	exportCmd.MarkFlagRequired("run-id")
	rootCmd.AddCommand(exportCmd)
}
