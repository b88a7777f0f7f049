// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"strconv"

	"taxportal/internal/models"
)

// Options carries the external switches the resolver depends on.
type Options struct {
	// NewsletterEnabled turns the newsletter pseudo-category on.
	NewsletterEnabled bool
}

// Resolution is the resolver's output.
type Resolution struct {
	Selection models.Selection

	// Category is the selected node when Selection.Kind is SelectCategory.
	Category models.CategoryNode

	// Corrected is set when the requested category or subcategory could
	// not be honored and a fallback was applied. Corrections reset the page.
	Corrected bool
}

// ResolveSelection filters the hierarchy for the viewer and resolves the
// selection against the result. All surfaces go through this function.
func ResolveSelection(h models.Hierarchy, auth models.AuthState, p Params, opts Options) Resolution {
	return Resolve(Filter(h, auth), p, opts)
}

// Resolve computes the selection for an already filtered hierarchy.
//
// The requested ids are re-validated against filtered on every call, so a
// category that was hidden or deleted since the last request falls back
// instead of being trusted. Resolve is idempotent: resolving the
// canonical parameters of a result yields the same result.
func Resolve(filtered models.Hierarchy, p Params, opts Options) Resolution {
	page, ok := parsePositive(p.Page)
	if !ok {
		page = 1
	}

	if p.Category == models.NewsletterID && opts.NewsletterEnabled {
		return Resolution{Selection: newsletter(p.Search, page)}
	}

	node, found := lookup(filtered, p.Category)
	if !found {
		first, ok := filtered.First()
		switch {
		case ok:
			node = first
		case opts.NewsletterEnabled:
			return Resolution{Selection: newsletter(p.Search, 1), Corrected: true}
		default:
			return Resolution{
				Selection: models.Selection{Kind: models.SelectNone, Search: p.Search, Page: 1},
				Corrected: p.Category != "",
			}
		}
	}

	corrected := !found
	sub, subOK := resolveSub(node, p.Sub)
	if !subOK {
		corrected = true
	}
	if corrected {
		page = 1
	}

	return Resolution{
		Selection: models.Selection{
			Kind:          models.SelectCategory,
			CategoryID:    node.ID,
			SubcategoryID: sub,
			Search:        p.Search,
			Page:          page,
		},
		Category:  node,
		Corrected: corrected,
	}
}

// lookup finds the category named by a raw URL value.
func lookup(h models.Hierarchy, raw string) (models.CategoryNode, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return models.CategoryNode{}, false
	}
	return h.Find(id)
}

// resolveSub returns the subcategory to select and whether the request
// was honored. An absent request is honored by AllSubcategories; anything
// that is not a child of node falls back to it.
func resolveSub(node models.CategoryNode, raw string) (int, bool) {
	if raw == "" {
		return models.AllSubcategories, true
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return models.AllSubcategories, false
	}
	if id == models.AllSubcategories {
		return id, true
	}
	if _, ok := node.Sub(id); ok {
		return id, true
	}
	return models.AllSubcategories, false
}

func newsletter(search string, page int) models.Selection {
	return models.Selection{Kind: models.SelectNewsletter, Search: search, Page: page}
}

func parsePositive(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
