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

package sites

import (
	"regexp"
	"strings"
)

// Quality labels, in display order
var Qualities = []string{"480p", "720p", "1080p", "2160p", QualityOther}

// QualityOther is the label of links with no recognisable resolution
const QualityOther = "Other"

var qualityPattern = regexp.MustCompile(`(?i)\b(480|720|1080|2160)p\b|\b(4k|uhd)\b`)

// Quality infers the resolution label of a link from its label, then its
// surrounding text.
func Quality(label, context string) string {
	for _, text := range []string{label, context} {
		m := qualityPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if m[1] != "" {
			return m[1] + "p"
		}
		return "2160p"
	}
	return QualityOther
}

// IsQuality reports whether s names one of the known quality labels.
func IsQuality(s string) bool {
	for _, q := range Qualities {
		if strings.EqualFold(q, s) {
			return true
		}
	}
	return false
}
