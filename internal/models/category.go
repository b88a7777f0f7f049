// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Visibility tags a category with the audience allowed to see it. It is
// either VisibilityAll or the string value of a MemberType.
type Visibility string

// VisibilityAll marks a category that every visitor can see.
const VisibilityAll Visibility = "ALL"

// AllSubcategories is the synthesized subcategory id meaning "every item
// under the parent category". It is never sent to the CMS as a filter.
const AllSubcategories = 0

// NewsletterID is the URL value that selects the newsletter pseudo-category.
const NewsletterID = "newsletter"

// DisplayType controls how a category's listing is laid out and therefore
// how many items make up one page.
type DisplayType string

const (
	DisplayCard    DisplayType = "card"    // large-card grid
	DisplaySnippet DisplayType = "snippet" // compact-snippet list
	DisplayTable   DisplayType = "table"   // tabular list
)

// PageSize returns the fixed page size for the display tier.
// Unknown tiers are laid out as cards.
func (d DisplayType) PageSize() int {
	switch d {
	case DisplaySnippet:
		return 10
	case DisplayTable:
		return 15
	default:
		return 9
	}
}

// Normalize maps unknown display types to DisplayCard.
func (d DisplayType) Normalize() DisplayType {
	switch d {
	case DisplayCard, DisplaySnippet, DisplayTable:
		return d
	default:
		return DisplayCard
	}
}

// ItemRef is a lightweight reference to a content item embedded in the
// category hierarchy. Content bodies are fetched separately.
type ItemRef struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// SubcategoryNode is the second level of the hierarchy.
type SubcategoryNode struct {
	ID    int       `json:"id"`
	Name  string    `json:"name"`
	Items []ItemRef `json:"items,omitempty"`
}

// CategoryNode is a top-level category. Children are kept in display
// order; when the category has children the first one is the synthesized
// AllSubcategories node.
type CategoryNode struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Visibility   Visibility        `json:"visibility"`
	DisplayType  DisplayType       `json:"display_type"`
	DisplayOrder int               `json:"display_order"`
	Children     []SubcategoryNode `json:"children,omitempty"`
}

// Sub returns the child with the given id.
func (c CategoryNode) Sub(id int) (SubcategoryNode, bool) {
	for _, s := range c.Children {
		if s.ID == id {
			return s, true
		}
	}
	return SubcategoryNode{}, false
}

// Items returns the item references of one subcategory, or of every child
// when sub is AllSubcategories. Duplicates across children are kept once.
func (c CategoryNode) Items(sub int) []ItemRef {
	if sub != AllSubcategories {
		s, ok := c.Sub(sub)
		if !ok {
			return nil
		}
		return s.Items
	}
	seen := make(map[int]bool)
	var out []ItemRef
	for _, s := range c.Children {
		for _, it := range s.Items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	return out
}

// Hierarchy is an immutable snapshot of the category tree, ordered by
// display order. A refetch produces a new Hierarchy; it is never patched.
type Hierarchy []CategoryNode

// Find returns the category with the given id.
func (h Hierarchy) Find(id int) (CategoryNode, bool) {
	for _, c := range h {
		if c.ID == id {
			return c, true
		}
	}
	return CategoryNode{}, false
}

// First returns the first category by display order.
func (h Hierarchy) First() (CategoryNode, bool) {
	if len(h) == 0 {
		return CategoryNode{}, false
	}
	return h[0], true
}
