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

// linkwalk follows link-protector chains (shorteners, interstitials, bot
// checks) to the destination page and prints the download links found
// there.
//
// Usage:
//
//	linkwalk <command> [flags]
//
// Commands:
//
//	resolve   Resolve one or more entry URLs
//	batch     Resolve the entry URLs listed in a file
//	history   List, show and delete stored runs
//	export    Export a stored run to JSON or CSV
//	mcp       Serve the resolver as MCP tools
//	config    Print the effective configuration
//	doctor    Check that the configured browser is usable
//	version   Show version information
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentberlin/linkwalk/cmd/linkwalk/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(commands.ExecuteContext(ctx))
}
