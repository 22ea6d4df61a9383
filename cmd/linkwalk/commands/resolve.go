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

	"github.com/agentberlin/linkwalk/internal/app"
	"github.com/agentberlin/linkwalk/internal/store"
	"github.com/agentberlin/linkwalk/internal/types"
	"github.com/spf13/cobra"
)

// runFlags are the output and history flags of resolve and batch
type runFlags struct {
	engine     engineFlags
	jsonOutput bool
	save       bool
	quiet      bool
	trail      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	f.engine.register(cmd)
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&f.save, "save", false, "record the runs in the history database")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress on stderr")
	cmd.Flags().BoolVar(&f.trail, "trail", false, "print the pages each run went through")
}

// start applies the flags and builds the app for a resolving command
func (f *runFlags) start(cmd *cobra.Command) (*app.App, func(), error) {
	if err := f.engine.apply(cmd, cfg); err != nil {
		return nil, nil, err
	}
	var st *store.Store
	if f.save {
		var err error
		if st, err = requireStore(); err != nil {
			return nil, nil, err
		}
	}
	var emitter app.EventEmitter = &app.NoOpEmitter{}
	if !f.quiet && !f.jsonOutput {
		emitter = &progressEmitter{out: os.Stderr}
	}
	return newApp(st, emitter)
}

// report prints details and returns errRunsFailed when any did not resolve
func (f *runFlags) report(details []*types.RunDetail) error {
	if f.jsonOutput {
		var err error
		if len(details) == 1 {
			err = printJSON(details[0])
		} else {
			err = printJSON(details)
		}
		if err != nil {
			return err
		}
	} else {
		for _, d := range details {
			printRun(d)
			if f.trail {
				printTrail(d.Trail)
			}
		}
	}
	for _, d := range details {
		if d.RunInfo.Outcome != "resolved" {
			return errRunsFailed
		}
	}
	return nil
}

var resolveFlags runFlags

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>...",
	Short: "Follows the chain of each entry URL and prints the links on the destination page.",
	Example: `  linkwalk resolve https://vplink.in/abc123
  linkwalk resolve --render https://new1.filepress.top/file/6789
  linkwalk resolve --terminal-host vikingfile --json --save https://gplinks.co/xyz`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := resolveFlags.start(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		details := make([]*types.RunDetail, 0, len(args))
		rejected := false
		for _, arg := range args {
			detail, err := a.Resolve(cmd.Context(), arg, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", arg, err)
				rejected = true
				continue
			}
			details = append(details, detail)
		}
		if err := resolveFlags.report(details); err != nil {
			return err
		}
		if rejected {
			return errRunsFailed
		}
		return nil
	},
}

func init() {
	resolveFlags.register(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}
