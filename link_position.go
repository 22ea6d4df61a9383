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
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link positions reported by linkPosition.
const (
	PositionContent     = "content"
	PositionNavigation  = "navigation"
	PositionHeader      = "header"
	PositionFooter      = "footer"
	PositionSidebar     = "sidebar"
	PositionBreadcrumbs = "breadcrumbs"
	PositionPagination  = "pagination"
	PositionUnknown     = "unknown"
)

// linkPosition classifies where sel sits in the page layout.
func linkPosition(sel *goquery.Selection) string {
	return classifyLinkPosition(sel, buildDOMPath(sel))
}

// buildDOMPath constructs a simplified DOM path from the link element up to the body.
// Returns a path like "body > main > article > p > a"
// Includes important attributes like id, class, and role for better classification.
func buildDOMPath(selection *goquery.Selection) string {
	var pathParts []string

	current := selection
	for current.Length() > 0 {
		nodeName := goquery.NodeName(current)

		// Stop at html or body tag to keep paths manageable
		if nodeName == "html" {
			break
		}

		// Build element descriptor with tag name and important attributes
		descriptor := nodeName

		// Add role attribute if present (important for semantic identification)
		if role, exists := current.Attr("role"); exists && role != "" {
			descriptor += `[role="` + role + `"]`
		}

		// Add id if present (useful for debugging)
		if id, exists := current.Attr("id"); exists && id != "" {
			descriptor += "#" + id
		}

		// Add first class if present (helps identify navigation, menus, etc.)
		if class, exists := current.Attr("class"); exists && class != "" {
			classes := strings.Fields(class)
			if len(classes) > 0 {
				descriptor += "." + classes[0]
			}
		}

		pathParts = append([]string{descriptor}, pathParts...)

		current = current.Parent()
	}

	return strings.Join(pathParts, " > ")
}

// classifyLinkPosition classifies a link's position based on its DOM path and parent elements.
// This implements a heuristic approach that checks for semantic HTML5 elements,
// ARIA roles, and common class/id patterns.
func classifyLinkPosition(selection *goquery.Selection, domPath string) string {
	domPathLower := strings.ToLower(domPath)

	// Priority 1: Check ancestors for semantic HTML5 elements and ARIA roles
	// Walk up the DOM tree to find semantic containers
	current := selection.Parent()
	for current.Length() > 0 {
		nodeName := goquery.NodeName(current)
		role, _ := current.Attr("role")
		class, _ := current.Attr("class")
		id, _ := current.Attr("id")

		// Combine attributes for pattern matching
		attributes := strings.ToLower(nodeName + " " + role + " " + class + " " + id)

		// Check for content areas (highest priority)
		if nodeName == "main" || nodeName == "article" || role == "main" || role == "article" {
			return PositionContent
		}

		// Check for breadcrumbs BEFORE navigation (more specific)
		if strings.Contains(attributes, "breadcrumb") {
			return PositionBreadcrumbs
		}

		// Check for pagination BEFORE navigation (more specific)
		if strings.Contains(attributes, "pagination") || strings.Contains(attributes, "pager") ||
			strings.Contains(attributes, "page-number") {
			return PositionPagination
		}

		// Check for navigation
		if nodeName == "nav" || role == "navigation" || strings.Contains(attributes, "nav") ||
			strings.Contains(attributes, "menu") || strings.Contains(attributes, "navbar") ||
			strings.Contains(attributes, "megamenu") {
			return PositionNavigation
		}

		// Check for header
		if nodeName == "header" || role == "banner" || strings.Contains(attributes, "header") ||
			strings.Contains(attributes, "masthead") || strings.Contains(attributes, "topbar") {
			return PositionHeader
		}

		// Check for footer
		if nodeName == "footer" || role == "contentinfo" || strings.Contains(attributes, "footer") {
			return PositionFooter
		}

		// Check for sidebar/aside
		if nodeName == "aside" || role == "complementary" || strings.Contains(attributes, "sidebar") ||
			strings.Contains(attributes, "aside") {
			return PositionSidebar
		}

		current = current.Parent()
	}

	// Priority 2: Fallback to DOM path analysis if no semantic parent found
	// Check domPath for common patterns

	// Breadcrumbs patterns
	if strings.Contains(domPathLower, "breadcrumb") {
		return PositionBreadcrumbs
	}

	// Pagination patterns
	if strings.Contains(domPathLower, "pagination") || strings.Contains(domPathLower, "pager") ||
		strings.Contains(domPathLower, "page-number") {
		return PositionPagination
	}

	// Navigation patterns
	if strings.Contains(domPathLower, "nav") || strings.Contains(domPathLower, "menu") {
		return PositionNavigation
	}

	// Header patterns
	if strings.Contains(domPathLower, "header") || strings.Contains(domPathLower, "masthead") ||
		strings.Contains(domPathLower, "topbar") {
		return PositionHeader
	}

	// Footer patterns
	if strings.Contains(domPathLower, "footer") {
		return PositionFooter
	}

	// Sidebar patterns
	if strings.Contains(domPathLower, "sidebar") || strings.Contains(domPathLower, "aside") {
		return PositionSidebar
	}

	// Content patterns (main, article)
	if strings.Contains(domPathLower, "main") || strings.Contains(domPathLower, "article") ||
		strings.Contains(domPathLower, `role="main"`) {
		return PositionContent
	}

	// Default: unknown
	return PositionUnknown
}

// isBoilerplate reports whether position is site chrome rather than page
// content.
func isBoilerplate(position string) bool {
	switch position {
	case PositionNavigation, PositionHeader, PositionFooter, PositionSidebar, PositionBreadcrumbs, PositionPagination:
		return true
	}
	return false
}
