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
	"context"
	"time"

	"github.com/agentberlin/linkwalk/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpHTTPAddr string
	mcpFlags    engineFlags
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serves resolve_link and the history tools over MCP (stdio by default).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := mcpFlags.apply(cmd, cfg); err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		a, cleanup, err := newApp(st, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		server := mcp.NewMCPServer(a, logger)
		if mcpHTTPAddr == "" {
			return server.RunStdio(cmd.Context())
		}

		httpServer, err := server.RunHTTP(mcpHTTPAddr)
		if err != nil {
			return err
		}
		<-cmd.Context().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	mcpFlags.register(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio, e.g. :8811")
	rootCmd.AddCommand(mcpCmd)
}
