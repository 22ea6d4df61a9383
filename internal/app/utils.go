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

package app

import (
	"fmt"
	"net/url"
	"strings"
)

// normalizeEntry cleans up an entry URL typed by a user. A missing scheme
// becomes https and the host is lowercased; the path, query and fragment are
// kept because protectors encode their tokens there.
func normalizeEntry(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty URL")
	}

	lower := strings.ToLower(input)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(input, "://") {
			return "", fmt.Errorf("invalid URL: unsupported scheme in %q", input)
		}
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("no hostname in URL")
	}
	if strings.ContainsAny(parsedURL.Hostname(), " \t") {
		return "", fmt.Errorf("invalid URL: bad hostname %q", parsedURL.Hostname())
	}

	parsedURL.Scheme = strings.ToLower(parsedURL.Scheme)
	parsedURL.Host = strings.ToLower(parsedURL.Host)
	return parsedURL.String(), nil
}
