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
	"regexp"
	"strings"
)

var (
	// formLabelPattern matches submit labels and form attributes that move a
	// protector forward.
	formLabelPattern = regexp.MustCompile(`(?i)\b(?:continue|next|get\s*-?\s*link|getlink|verify|go)\b`)

	// anchorTextPattern matches visible text of continue anchors and buttons.
	// "go" is left out on purpose: "go back" and "go home" are navigation.
	anchorTextPattern = regexp.MustCompile(`(?i)\b(?:click here to continue|continue|next page|next|get\s*link|getlink|verify|click to scan|proceed|skip ad)\b`)

	// iconPattern matches alt text and icon file names of image buttons.
	iconPattern = regexp.MustCompile(`(?i)(?:continue|next|getlink|get-link|get_link|proceed)`)

	// formIDPattern matches ids used by protector landing forms.
	formIDPattern = regexp.MustCompile(`(?i)(?:landing|submission|go-link|golink|getlink|get-link)`)

	// ajaxPattern matches class and id hints of forms posted by script.
	ajaxPattern = regexp.MustCompile(`(?i)\bajax\b|ajax[-_]`)
)

// continueSelectors are well-known continue controls checked before any text
// matching.
const continueSelectors = "a#getlink, a.get-link, a#continue, a.continue, a#btn-main"

// socialHosts are share targets that often carry continuation words in
// their text ("Continue on Telegram") but never lead down the chain.
var socialHosts = []string{
	"facebook.com", "fb.com", "twitter.com", "x.com", "telegram.org",
	"telegram.me", "t.me", "whatsapp.com", "wa.me", "instagram.com",
	"pinterest.com", "reddit.com", "linkedin.com", "tumblr.com",
	"youtube.com", "discord.gg", "discord.com",
}

// DefaultTerminalHosts are file-hosting destinations that end a chain.
// Entries without a dot match any host containing them.
var DefaultTerminalHosts = []string{
	"hubcloud", "hubdrive", "hubcdn",
	"gofile.io", "drive.google.com", "mega.nz", "pixeldrain.com",
	"mediafire.com", "1fichier.com",
}

// challengeHosts serve embedded bot-check frames.
var challengeHosts = []string{"challenges.cloudflare.com", "turnstile"}

// challengeMarkers are shown while a bot check is pending.
var challengeMarkers = []string{
	"just a moment",
	"verifying you are human",
	"checking your browser",
	"challenges.cloudflare.com",
	"cf-turnstile",
	"cf-challenge",
}

// challengeSuccessMarkers are shown briefly once a check has passed.
var challengeSuccessMarkers = []string{"verification successful", "challenge-success-text"}

func isSocialHref(href string) bool {
	host := hostOf(href)
	if host == "" {
		return false
	}
	for _, s := range socialHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// excludedHref reports hrefs that are never continuation targets.
func excludedHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if strings.HasPrefix(h, "mailto:") || strings.HasPrefix(h, "tel:") {
		return true
	}
	return isSocialHref(h)
}

// ChallengePresent reports whether a page title or markup still shows a
// pending bot check.
func ChallengePresent(title, html string) bool {
	t := strings.ToLower(title)
	if strings.Contains(t, "just a moment") {
		return true
	}
	h := strings.ToLower(html)
	for _, m := range challengeSuccessMarkers {
		if strings.Contains(h, m) {
			return false
		}
	}
	for _, m := range challengeMarkers {
		if strings.Contains(h, m) {
			return true
		}
	}
	return false
}

func isChallengeFrame(src string) bool {
	s := strings.ToLower(src)
	for _, h := range challengeHosts {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
