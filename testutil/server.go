// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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


// Package testutil serves a local link-protector chain for tests and demos.
// The chain walks through every obstacle kind plain HTTP can pass: a session
// cookie redirect, a meta refresh, a landing form, a script redirect and a
// continue anchor, then lands on a file page served from a second host.
package testutil

import (
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"
)

const (
	sessionCookie = "session_id"
	stepCookie    = "step"
)

// FilePage is the body of the destination page. %[1]s is the share token.
const FilePage = `<!DOCTYPE html>
<html>
<head><title>Movie.2025 [%[1]s]</title></head>
<body>
<nav>
	<a href="/">Home</a>
	<a href="https://t.me/joinchat/files">Join our Telegram</a>
</nav>
<main>
	<h2>Movie.2025.1080p.WEB-DL.mkv</h2>
	<a class="file-link" href="https://gofile.io/d/%[1]s">Download 1080p</a>
	<h2>Movie.2025.720p.WEB-DL.mkv</h2>
	<a class="file-link" href="https://pixeldrain.com/u/%[1]s">Download 720p</a>
	<a href="/faq">Help</a>
</main>
<footer><a href="https://twitter.com/intent/tweet">Download on X</a></footer>
</body>
</html>`

// NewFilesHandler serves /file/{token}, gzip-compressed when the client
// accepts it.
func NewFilesHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/file/", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/file/")
		if token == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			fmt.Fprintf(w, FilePage, token)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		fmt.Fprintf(gz, FilePage, token)
	})
	return mux
}

// NewChainHandler serves the protector chain starting at /r/{token}. The
// continue anchor of the last page points at filesBase + "/file/{token}".
func NewChainHandler(filesBase string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/r/", RequireSessionCookieSimple(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/r/")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><meta http-equiv="refresh" content="0;url=/landing/%s"></head>
<body>Redirecting, please wait...</body></html>`, url.PathEscape(token))
	})))

	mux.HandleFunc("/landing/", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err != nil {
			http.Error(w, "session required", http.StatusForbidden)
			return
		}
		token := strings.TrimPrefix(r.URL.Path, "/landing/")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
<form id="search" action="/search" method="get"><input type="search" name="q"><button>Search</button></form>
<form id="landing" method="post" action="/go">
	<input type="hidden" name="token" value="%s">
	<input type="checkbox" name="agree" value="1" checked>
	<button type="submit">Continue</button>
</form>
</body></html>`, token)
	})

	mux.HandleFunc("/go", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		token := r.FormValue("token")
		if token == "" || r.FormValue("agree") != "1" {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: stepCookie, Value: token, Path: "/"})
		http.Redirect(w, r, "/js/"+url.PathEscape(token), http.StatusSeeOther)
	})

	mux.HandleFunc("/js/", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/js/")
		if c, err := r.Cookie(stepCookie); err != nil || c.Value != token {
			http.Error(w, "form step skipped", http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><p>Generating link</p>
<script>setTimeout(function(){ window.location.href = "/out/%s"; }, 10);</script>
</body></html>`, token)
	})

	mux.HandleFunc("/out/", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/out/")
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
<header><a href="/">Home</a></header>
<div class="content"><a class="get-link" href="%s/file/%s">Get Link</a></div>
</body></html>`, strings.TrimRight(filesBase, "/"), token)
	})

	// Two pages refreshing to each other.
	mux.HandleFunc("/loop/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=/loop/b"></head><body>a</body></html>`)
	})
	mux.HandleFunc("/loop/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><meta http-equiv="refresh" content="0;url=/loop/a"></head><body>b</body></html>`)
	})

	mux.HandleFunc("/dead", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>This link has expired.</p></body></html>`)
	})

	mux.HandleFunc("/500", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(500)
		w.Write([]byte("<p>error</p>"))
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		i := 0

		for {
			select {
			case <-r.Context().Done():
				return
			case t := <-ticker.C:
				fmt.Fprintf(w, "%s\n", t)
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}
				i++
				if i == 100 {
					return
				}
			}
		}
	})

	return mux
}

// ChainServers is a running chain with its file host.
type ChainServers struct {
	Chain *httptest.Server
	Files *httptest.Server
	// FilesURL is the file host base URL, addressed as localhost so that it
	// differs from the chain host
	FilesURL string
}

// EntryURL returns the chain entry for token.
func (c *ChainServers) EntryURL(token string) string {
	return c.Chain.URL + "/r/" + token
}

// Close shuts both servers down.
func (c *ChainServers) Close() {
	c.Chain.Close()
	c.Files.Close()
}

// NewChainServers starts a chain server and its file host.
func NewChainServers() *ChainServers {
	files := httptest.NewServer(NewFilesHandler())
	filesURL := strings.Replace(files.URL, "127.0.0.1", "localhost", 1)
	chain := httptest.NewServer(NewChainHandler(filesURL))
	return &ChainServers{Chain: chain, Files: files, FilesURL: filesURL}
}

// RequireSessionCookieSimple is middleware that requires a session cookie,
// redirecting to set it if not present
func RequireSessionCookieSimple(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(sessionCookie); err == http.ErrNoCookie {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "1", Path: "/"})
			http.Redirect(w, r, r.RequestURI, http.StatusFound)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
