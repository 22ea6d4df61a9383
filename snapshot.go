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

package linkwalk

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// RedirectResponse is one transport-level hop recorded while fetching a page.
type RedirectResponse struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Location   string `json:"location"`
}

// PageSnapshot is an immutable view of one fetched page. Every chain step
// produces a new snapshot; nothing in the package mutates one after
// construction.
type PageSnapshot struct {
	url       *url.URL
	status    int
	body      string
	headers   http.Header
	redirects []*RedirectResponse
	fetchedAt time.Time
	rendered  bool
	firstByte time.Duration

	docOnce sync.Once
	doc     *goquery.Document
	fpOnce  sync.Once
	fp      uint64
}

// NewPageSnapshot builds a snapshot from a final URL, status code and body.
// It is mostly useful to callers that fetch pages themselves and want to run
// the classifier, terminal matcher or extractor over them.
func NewPageSnapshot(rawURL string, status int, body string) (*PageSnapshot, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return newSnapshot(u, status, body, nil, nil, time.Now(), false), nil
}

func newSnapshot(u *url.URL, status int, body string, headers http.Header, redirects []*RedirectResponse, at time.Time, rendered bool) *PageSnapshot {
	if headers == nil {
		headers = http.Header{}
	}
	return &PageSnapshot{
		url:       u,
		status:    status,
		body:      body,
		headers:   headers.Clone(),
		redirects: append([]*RedirectResponse(nil), redirects...),
		fetchedAt: at,
		rendered:  rendered,
	}
}

// URL returns the final URL after transport redirects.
func (s *PageSnapshot) URL() string {
	return s.url.String()
}

// Host returns the lower-cased host name of the final URL, without port.
func (s *PageSnapshot) Host() string {
	return strings.ToLower(s.url.Hostname())
}

// Status returns the HTTP status code. Rendered snapshots report 200.
func (s *PageSnapshot) Status() int {
	return s.status
}

// Body returns the raw markup.
func (s *PageSnapshot) Body() string {
	return s.body
}

// Header returns the first value of a response header.
func (s *PageSnapshot) Header(key string) string {
	return s.headers.Get(key)
}

// RedirectChain returns the transport redirects that led to this page.
func (s *PageSnapshot) RedirectChain() []*RedirectResponse {
	return append([]*RedirectResponse(nil), s.redirects...)
}

// FetchedAt returns when the snapshot was taken.
func (s *PageSnapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// FirstByte is the time to first response byte of the final hop. It is
// zero for rendered snapshots and reused connections served from memory.
func (s *PageSnapshot) FirstByte() time.Duration {
	return s.firstByte
}

// Rendered reports whether the snapshot came from an interactive session.
func (s *PageSnapshot) Rendered() bool {
	return s.rendered
}

// Document returns the parsed markup. The returned document is shared;
// callers must not modify it.
func (s *PageSnapshot) Document() *goquery.Document {
	s.docOnce.Do(func() {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.body))
		if err != nil {
			doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
		}
		s.doc = doc
	})
	return s.doc
}

// Title returns the trimmed document title.
func (s *PageSnapshot) Title() string {
	return strings.TrimSpace(s.Document().Find("title").First().Text())
}

// ResolveReference resolves href against the page URL, honouring <base href>.
func (s *PageSnapshot) ResolveReference(href string) (string, error) {
	base := s.url.String()
	if b, ok := s.Document().Find("base[href]").First().Attr("href"); ok {
		if resolved, err := resolveRef(base, strings.TrimSpace(b)); err == nil {
			base = resolved
		}
	}
	return resolveRef(base, strings.TrimSpace(href))
}

// Fingerprint is a hash of the normalised markup. Two snapshots of the same
// URL with equal fingerprints are treated as the same page.
func (s *PageSnapshot) Fingerprint() uint64 {
	s.fpOnce.Do(func() {
		s.fp = fingerprintBody([]byte(s.body))
	})
	return s.fp
}

// sameAs reports whether other shows the same page at the same address.
func (s *PageSnapshot) sameAs(other *PageSnapshot) bool {
	if other == nil {
		return false
	}
	return normalizeURL(s.URL()) == normalizeURL(other.URL()) && s.Fingerprint() == other.Fingerprint()
}
