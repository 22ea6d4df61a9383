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
	"fmt"
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// parseURL parses u the way a browser would and returns it as a net/url value.
func parseURL(u string) (*url.URL, error) {
	parsed, err := urlParser.Parse(strings.TrimSpace(u))
	if err != nil {
		return nil, err
	}
	out, err := url.Parse(parsed.Href(false))
	if err != nil {
		return nil, err
	}
	if out.Scheme != "http" && out.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, out.Scheme)
	}
	return out, nil
}

func resolveRef(base, ref string) (string, error) {
	u, err := urlParser.ParseRef(base, ref)
	if err != nil {
		return "", err
	}
	return u.Href(false), nil
}

// normalizeURL returns the key used for visited-set and dedup comparisons.
// The fragment is dropped since it never reaches the server.
func normalizeURL(u string) string {
	parsed, err := urlParser.Parse(u)
	if err != nil {
		return u
	}
	return parsed.Href(true)
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// navigable reports whether href points somewhere a fetch can go.
func navigable(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if h == "" || strings.HasPrefix(h, "#") {
		return false
	}
	for _, p := range []string{"javascript:", "mailto:", "tel:", "data:", "about:"} {
		if strings.HasPrefix(h, p) {
			return false
		}
	}
	return true
}
