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
	"os"

	"github.com/agentberlin/linkwalk/internal/version"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Shows version information.",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("linkwalk %s\n", version.CurrentVersion)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration as YAML, after the file and LINKWALK_* variables.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Checks that the configured browser renderer can start and lists the site handlers.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(nil, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		health := a.CheckSystemHealth()
		if health.IsHealthy {
			fmt.Printf("renderer %q: ok\n", cfg.Browser.Renderer)
		} else {
			fmt.Printf("renderer %q: %s\n  %s\n\n%s\n", cfg.Browser.Renderer, health.ErrorTitle, health.ErrorMsg, health.Suggestion)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Site", "Description", "Browser"})
		for _, s := range a.Sites() {
			browser := ""
			if s.Interactive {
				browser = "needed"
			}
			t.AppendRow(table.Row{s.Name, s.Description, browser})
		}
		t.Render()

		if !health.IsHealthy {
			return fmt.Errorf("renderer %q is not usable", cfg.Browser.Renderer)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd, configCmd, doctorCmd)
}
