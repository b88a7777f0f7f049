// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package navigation keeps three sources of truth consistent for every
// category-driven surface of the site (menu, insights, service areas):
// the URL query string, the category hierarchy fetched from the CMS, and
// the viewer's visibility entitlements.
//
// The pipeline for one request is: fetch the hierarchy once per visitor
// session, filter it for the current auth state, resolve the selection
// from the URL, compute the canonical URL, then fetch the listing page.
package navigation

import "taxportal/internal/models"

// Visible reports whether a category can be shown to the viewer.
func Visible(c models.CategoryNode, auth models.AuthState) bool {
	if c.Visibility == models.VisibilityAll {
		return true
	}
	return auth.LoggedIn && auth.MemberType != "" &&
		string(c.Visibility) == string(auth.MemberType)
}

// Filter returns the categories of h visible to the viewer, in the same
// order. The input is never modified.
func Filter(h models.Hierarchy, auth models.AuthState) models.Hierarchy {
	out := make(models.Hierarchy, 0, len(h))
	for _, c := range h {
		if Visible(c, auth) {
			out = append(out, c)
		}
	}
	return out
}
