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
	"strings"

	"github.com/gobwas/glob"
)

// TerminalPredicate decides whether a snapshot is a resolved destination.
type TerminalPredicate interface {
	Match(s *PageSnapshot) bool
}

// TerminalFunc adapts a plain function to TerminalPredicate.
type TerminalFunc func(s *PageSnapshot) bool

func (f TerminalFunc) Match(s *PageSnapshot) bool {
	return f(s)
}

// IsTerminal evaluates p against s. A nil predicate never matches.
func IsTerminal(s *PageSnapshot, p TerminalPredicate) bool {
	if s == nil || p == nil {
		return false
	}
	return p.Match(s)
}

// HostAllowList matches snapshots whose host is in a declared set.
//
// Entries are interpreted as:
//   - glob patterns when they contain *, ? or [ ("*.gofile.io")
//   - domains when they contain a dot, matching the domain and its subdomains
//   - keywords otherwise, matching any host that contains them ("hubcloud")
type HostAllowList struct {
	domains  []string
	keywords []string
	globs    []glob.Glob
}

// NewHostAllowList compiles the given host entries.
func NewHostAllowList(entries ...string) (*HostAllowList, error) {
	h := &HostAllowList{}
	for _, e := range entries {
		if err := h.add(e); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// lenientHostAllowList compiles entries, skipping any that do not compile.
func lenientHostAllowList(entries []string) (*HostAllowList, []error) {
	h := &HostAllowList{}
	var errs []error
	for _, e := range entries {
		if err := h.add(e); err != nil {
			errs = append(errs, err)
		}
	}
	return h, errs
}

func (h *HostAllowList) add(entry string) error {
	e := strings.ToLower(strings.TrimSpace(entry))
	if e == "" {
		return ErrEmptyPattern
	}
	switch {
	case strings.ContainsAny(e, "*?["):
		g, err := glob.Compile(e, '.')
		if err != nil {
			return fmt.Errorf("host pattern %q: %w", entry, err)
		}
		h.globs = append(h.globs, g)
	case strings.Contains(e, "."):
		h.domains = append(h.domains, strings.TrimPrefix(e, "."))
	default:
		h.keywords = append(h.keywords, e)
	}
	return nil
}

// MustHostAllowList is like NewHostAllowList but panics on a bad pattern.
func MustHostAllowList(entries ...string) *HostAllowList {
	h, err := NewHostAllowList(entries...)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *HostAllowList) Match(s *PageSnapshot) bool {
	return h.MatchHost(s.Host())
}

// MatchHost reports whether host is allowed.
func (h *HostAllowList) MatchHost(host string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, d := range h.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	for _, k := range h.keywords {
		if strings.Contains(host, k) {
			return true
		}
	}
	for _, g := range h.globs {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// Empty reports whether the list has no entries.
func (h *HostAllowList) Empty() bool {
	return len(h.domains) == 0 && len(h.keywords) == 0 && len(h.globs) == 0
}

// HasSelector matches pages exposing an element for the CSS selector,
// e.g. "a#downloadButton".
func HasSelector(selector string) TerminalPredicate {
	return TerminalFunc(func(s *PageSnapshot) bool {
		return s.Document().Find(selector).Length() > 0
	})
}

// AnyOf matches when any of the predicates matches.
func AnyOf(predicates ...TerminalPredicate) TerminalPredicate {
	return TerminalFunc(func(s *PageSnapshot) bool {
		for _, p := range predicates {
			if IsTerminal(s, p) {
				return true
			}
		}
		return false
	})
}

// AllOf matches when every predicate matches.
func AllOf(predicates ...TerminalPredicate) TerminalPredicate {
	return TerminalFunc(func(s *PageSnapshot) bool {
		for _, p := range predicates {
			if !IsTerminal(s, p) {
				return false
			}
		}
		return len(predicates) > 0
	})
}

// DefaultTerminal returns the allow-list of DefaultTerminalHosts.
func DefaultTerminal() TerminalPredicate {
	return MustHostAllowList(DefaultTerminalHosts...)
}
