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

// Command testserver serves the local protector chain used by the
// integration tests, for trying the CLI by hand:
//
//	go run ./cmd/testserver
//	linkwalk resolve http://127.0.0.1:8080/r/demo --terminal-host localhost
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/linkwalk/testutil"
)

func main() {
	port := flag.Int("port", 8080, "Port for the chain server")
	filesPort := flag.Int("files-port", 8081, "Port for the file host")
	host := flag.String("host", "127.0.0.1", "Host to bind both servers to")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	filesBase := fmt.Sprintf("http://localhost:%d", *filesPort)
	servers := []*http.Server{
		newServer(fmt.Sprintf("%s:%d", *host, *port), testutil.NewChainHandler(filesBase)),
		newServer(fmt.Sprintf("%s:%d", *host, *filesPort), testutil.NewFilesHandler()),
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed", "addr", srv.Addr, "error", err)
				os.Exit(1)
			}
		}(srv)
	}
	logger.Info("chain entry", "url", fmt.Sprintf("http://%s:%d/r/demo", *host, *port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("forced shutdown", "addr", srv.Addr, "error", err)
		}
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
