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
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	metaRefreshPattern = regexp.MustCompile(`(?i)^\s*[\d.]*\s*[;,]?\s*url\s*=\s*(.+?)\s*$`)

	scriptRedirectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:\b(?:window|document|top|self)\.)?\blocation(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`\blocation\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
		regexp.MustCompile(`\bwindow\.open\s*\(\s*["']([^"']+)["']\s*,\s*["']_self["']`),
	}

	countdownPattern   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:seconds?|secs?)\b`)
	digitsPattern      = regexp.MustCompile(`\d{1,3}`)
	cssIdentPattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	skipFormPattern    = regexp.MustCompile(`(?i)search|login|signin|sign-in|subscribe|newsletter|comment`)
	countdownSelectors = "#countdown, .countdown, #timer, .timer, #counter, [id*=countdown], [class*=countdown]"
)

// metaRefreshStrategy follows <meta http-equiv="refresh" content="N;url=...">.
type metaRefreshStrategy struct{}

func (metaRefreshStrategy) Name() string { return "meta-refresh" }

func (metaRefreshStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	doc, err := htmlquery.Parse(strings.NewReader(s.Body()))
	if err != nil {
		return nil
	}
	var out []AdvanceAction
	for _, n := range htmlquery.Find(doc, "//meta[@http-equiv]") {
		if !strings.EqualFold(strings.TrimSpace(htmlquery.SelectAttr(n, "http-equiv")), "refresh") {
			continue
		}
		m := metaRefreshPattern.FindStringSubmatch(htmlquery.SelectAttr(n, "content"))
		if m == nil {
			continue
		}
		if target, ok := followTarget(s, strings.Trim(m[1], `'"`)); ok {
			out = append(out, FollowURL{Target: target})
		}
	}
	return out
}

// scriptRedirectStrategy follows location assignments in inline scripts,
// including the ones wrapped in setTimeout.
type scriptRedirectStrategy struct{}

func (scriptRedirectStrategy) Name() string { return "script-redirect" }

func (scriptRedirectStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	doc, err := htmlquery.Parse(strings.NewReader(s.Body()))
	if err != nil {
		return nil
	}
	var out []AdvanceAction
	for _, n := range htmlquery.Find(doc, "//script[not(@src)]") {
		code := htmlquery.InnerText(n)
		for _, p := range scriptRedirectPatterns {
			for _, m := range p.FindAllStringSubmatch(code, -1) {
				if target, ok := followTarget(s, m[1]); ok {
					out = append(out, FollowURL{Target: target})
				}
			}
		}
	}
	return out
}

// challengeStrategy detects embedded bot-check widgets.
type challengeStrategy struct{}

func (challengeStrategy) Name() string { return "challenge" }

func (challengeStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	frame := ""
	s.Document().Find("iframe[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := sel.AttrOr("src", "")
		if !isChallengeFrame(src) {
			return true
		}
		if resolved, err := s.ResolveReference(src); err == nil {
			frame = resolved
		} else {
			frame = src
		}
		return false
	})
	if frame == "" && !ChallengePresent(s.Title(), s.Body()) {
		return nil
	}
	return []AdvanceAction{SolveChallenge{FrameURL: frame}}
}

// formStrategy submits continuation forms.
type formStrategy struct{}

func (formStrategy) Name() string { return "form" }

func (formStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	var out []AdvanceAction
	s.Document().Find("form").Each(func(_ int, form *goquery.Selection) {
		if skipForm(form) {
			return
		}
		submit := submitControl(form)
		if !formQualifies(form, submit) {
			return
		}
		target := s.URL()
		if action := strings.TrimSpace(form.AttrOr("action", "")); action != "" {
			if !navigable(action) {
				return
			}
			resolved, err := s.ResolveReference(action)
			if err != nil {
				return
			}
			target = resolved
		}
		method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "post")))
		if method != "GET" {
			method = "POST"
		}
		out = append(out, SubmitForm{
			Action: target,
			Method: method,
			Fields: formFields(form, submit),
			AJAX:   isAJAXForm(form),
		})
	})
	return out
}

func skipForm(form *goquery.Selection) bool {
	if form.Find("input[type=password], input[type=search]").Length() > 0 {
		return true
	}
	if strings.EqualFold(form.AttrOr("role", ""), "search") {
		return true
	}
	return skipFormPattern.MatchString(form.AttrOr("action", "") + " " + form.AttrOr("id", "") + " " + form.AttrOr("class", ""))
}

func submitControl(form *goquery.Selection) *goquery.Selection {
	return form.Find("button[type=submit], input[type=submit], input[type=image], button:not([type])").First()
}

func submitLabel(submit *goquery.Selection) string {
	if submit.Length() == 0 {
		return ""
	}
	if goquery.NodeName(submit) == "input" {
		if v := submit.AttrOr("value", ""); v != "" {
			return normalizeWhitespace(v)
		}
		return normalizeWhitespace(submit.AttrOr("alt", ""))
	}
	return controlLabel(submit)
}

func formQualifies(form, submit *goquery.Selection) bool {
	id := form.AttrOr("id", "") + " " + form.AttrOr("name", "")
	if formIDPattern.MatchString(id) || formIDPattern.MatchString(form.AttrOr("action", "")) {
		return true
	}
	attrs := id + " " + form.AttrOr("class", "") + " " + form.AttrOr("action", "")
	if formLabelPattern.MatchString(attrs) {
		return true
	}
	return formLabelPattern.MatchString(submitLabel(submit))
}

// formFields collects what a browser would send: named inputs, checked
// boxes, selected options and the name of the submit control used.
func formFields(form, submit *goquery.Selection) url.Values {
	fields := url.Values{}
	isSubmit := func(sel *goquery.Selection) bool {
		return submit.Length() > 0 && sel.Get(0) == submit.Get(0)
	}
	form.Find("input[name], select[name], textarea[name], button[name]").Each(func(_ int, in *goquery.Selection) {
		name := in.AttrOr("name", "")
		if _, disabled := in.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(in) {
		case "input":
			switch strings.ToLower(in.AttrOr("type", "text")) {
			case "submit", "image":
				if isSubmit(in) {
					fields.Add(name, in.AttrOr("value", ""))
				}
			case "button", "reset", "file":
			case "checkbox", "radio":
				if _, checked := in.Attr("checked"); checked {
					fields.Add(name, in.AttrOr("value", "on"))
				}
			default:
				fields.Add(name, in.AttrOr("value", ""))
			}
		case "select":
			opt := in.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = in.Find("option").First()
			}
			if opt.Length() > 0 {
				fields.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		case "textarea":
			fields.Add(name, in.Text())
		case "button":
			if isSubmit(in) {
				fields.Add(name, in.AttrOr("value", ""))
			}
		}
	})
	return fields
}

func isAJAXForm(form *goquery.Selection) bool {
	if v, ok := form.Attr("data-ajax"); ok && !strings.EqualFold(v, "false") {
		return true
	}
	if _, ok := form.Attr("data-remote"); ok {
		return true
	}
	return ajaxPattern.MatchString(form.AttrOr("class", "") + " " + form.AttrOr("id", ""))
}

// controlStrategy follows continue anchors and clicks continue buttons.
type controlStrategy struct{}

func (controlStrategy) Name() string { return "control" }

func (controlStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	doc := s.Document()
	// Controls in page chrome go after everything else.
	var out, chrome []AdvanceAction
	seen := make(map[*html.Node]bool)
	add := func(sel *goquery.Selection) {
		dst := &out
		if isBoilerplate(linkPosition(sel)) {
			dst = &chrome
		}
		node := sel.Get(0)
		if seen[node] || isDisabled(sel) {
			return
		}
		seen[node] = true
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if goquery.NodeName(sel) == "a" && navigable(href) {
			target, err := s.ResolveReference(href)
			if err != nil || excludedHref(target) {
				return
			}
			*dst = append(*dst, FollowURL{Target: target})
			return
		}
		if excludedHref(href) {
			return
		}
		*dst = append(*dst, ClickSelector{Selector: cssPath(sel)})
	}
	doc.Find(continueSelectors).Each(func(_ int, sel *goquery.Selection) {
		add(sel)
	})
	doc.Find("a, button, input[type=button], [role=button]").Each(func(_ int, sel *goquery.Selection) {
		if matchesContinue(sel) {
			add(sel)
		}
	})
	return append(out, chrome...)
}

func matchesContinue(sel *goquery.Selection) bool {
	label := controlLabel(sel)
	if label != "" && len(label) <= 60 && anchorTextPattern.MatchString(label) {
		return true
	}
	matched := false
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if iconPattern.MatchString(img.AttrOr("alt", "")) || iconPattern.MatchString(path.Base(img.AttrOr("src", ""))) {
			matched = true
		}
		return !matched
	})
	return matched
}

func isDisabled(sel *goquery.Selection) bool {
	if _, ok := sel.Attr("disabled"); ok {
		return true
	}
	if strings.EqualFold(sel.AttrOr("aria-disabled", ""), "true") {
		return true
	}
	return sel.HasClass("disabled")
}

// cssPath builds a selector for sel that survives a reload of the same
// markup: the nearest ancestor id, then nth-child steps.
func cssPath(sel *goquery.Selection) string {
	var parts []string
	for cur := sel; cur.Length() > 0; cur = cur.Parent() {
		name := goquery.NodeName(cur)
		if id, ok := cur.Attr("id"); ok && cssIdentPattern.MatchString(id) {
			parts = append(parts, name+"#"+id)
			break
		}
		if name == "html" {
			parts = append(parts, name)
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", name, cur.PrevAll().Length()+1))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// countdownStrategy waits out "N seconds" gates.
type countdownStrategy struct {
	floor time.Duration
	cap   time.Duration
}

func (countdownStrategy) Name() string { return "countdown" }

func (c countdownStrategy) Propose(s *PageSnapshot) []AdvanceAction {
	doc := s.Document()
	if m := countdownPattern.FindStringSubmatch(s.Text()); m != nil {
		n, _ := strconv.Atoi(m[1])
		return []AdvanceAction{c.wait(n)}
	}
	timer := doc.Find(countdownSelectors).First()
	if timer.Length() == 0 {
		return nil
	}
	if d := digitsPattern.FindString(timer.Text()); d != "" {
		n, _ := strconv.Atoi(d)
		return []AdvanceAction{c.wait(n)}
	}
	return []AdvanceAction{WaitThenReevaluate{Duration: c.floor}}
}

func (c countdownStrategy) wait(seconds int) WaitThenReevaluate {
	if seconds < 1 {
		seconds = 1
	}
	d := time.Duration(seconds) * time.Second
	if c.cap > 0 && d > c.cap {
		d = c.cap
	}
	return WaitThenReevaluate{Duration: d}
}

// followTarget resolves a redirect target, rejecting script URLs and
// self references.
func followTarget(s *PageSnapshot, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !navigable(raw) {
		return "", false
	}
	target, err := s.ResolveReference(raw)
	if err != nil {
		return "", false
	}
	if normalizeURL(target) == normalizeURL(s.URL()) {
		return "", false
	}
	return target, true
}
