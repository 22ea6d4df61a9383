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
	"bytes"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// Protector pages come back with fresh tokens, clocks and tracker calls on
// every load even when the chain has not moved. These patterns take that
// noise out before a page is fingerprinted.
var (
	clockPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(?::\d{2})? (?:AM|PM)`),
		regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4}\s+\d{1,2}:\d{2}`),
		regexp.MustCompile(`\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`),
		regexp.MustCompile(`(?:just\s+now|moments?\s+ago)`),
	}

	// Hidden form tokens, csrf meta tags and tokens inlined in AJAX scripts.
	visitTokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)name=["']?(?:_?token|csrf[-_]?token|nonce|sid)["']?\s+value=["'][^"']*["']`),
		regexp.MustCompile(`(?i)value=["'][^"']*["']\s+name=["']?(?:_?token|csrf[-_]?token|nonce|sid)["']?`),
		regexp.MustCompile(`(?i)name=["']?(?:_?token|csrf[-_]?token)["']?\s+content=["'][^"']*["']`),
		regexp.MustCompile(`(?i)(?:_token|csrf[-_]?token|session[-_]?id)["']?\s*[:=]\s*["'][^"']*["']`),
	}

	trackerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)googletagmanager\.com/gtag/js\?id=[\w-]+`),
		regexp.MustCompile(`(?i)google-analytics\.com/(?:analytics|ga)\.js`),
		regexp.MustCompile(`(?i)\b(?:gtag|fbq|ga)\s*\([^)]*\)`),
		regexp.MustCompile(`(?i)_gaq\.push\([^)]*\)`),
		regexp.MustCompile(`(?i)pixel\.gif\?[^\s<>"']+`),
	}

	cacheBustPattern  = regexp.MustCompile(`\?(?:v|ver|_|t)=[a-f0-9]+`)
	commentPattern    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Inline scripts stay: a script redirect is part of what tells two
// protector pages apart.
const noiseTags = "style, noscript"

// normalizeMarkup strips per-visit noise from html so that reloading an
// unchanged protector page yields the same bytes.
func normalizeMarkup(html []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find(noiseTags).Remove()
	content, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	out := commentPattern.ReplaceAll([]byte(content), nil)
	out = replaceEach(out, clockPatterns, []byte("[TIME]"))
	out = replaceEach(out, trackerPatterns, nil)
	out = replaceEach(out, visitTokenPatterns, nil)
	out = cacheBustPattern.ReplaceAll(out, nil)
	return whitespacePattern.ReplaceAll(bytes.TrimSpace(out), []byte(" ")), nil
}

func replaceEach(b []byte, patterns []*regexp.Regexp, repl []byte) []byte {
	for _, p := range patterns {
		b = p.ReplaceAll(b, repl)
	}
	return b
}

// fingerprintBody hashes the normalised form of body with xxhash. Markup
// that fails to parse is hashed as is.
func fingerprintBody(body []byte) uint64 {
	normalized, err := normalizeMarkup(body)
	if err != nil {
		return xxhash.Sum64(body)
	}
	return xxhash.Sum64(normalized)
}
