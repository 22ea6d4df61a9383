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
	"errors"
	"net/http"
	"time"

	"github.com/agentberlin/linkwalk/internal/server"
	"github.com/agentberlin/linkwalk/internal/version"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveFlags engineFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the JSON API under /api/v1.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := serveFlags.apply(cmd, cfg); err != nil {
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

		// No write timeout: resolve and batch responses are sent when their
		// runs end, and the run budgets bound that.
		httpServer := &http.Server{
			Addr:        serveAddr,
			Handler:     server.NewServer(a, logger),
			ReadTimeout: 30 * time.Second,
			IdleTimeout: 120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("linkwalk server starting", "version", version.CurrentVersion, "addr", serveAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}
		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	},
}

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}
