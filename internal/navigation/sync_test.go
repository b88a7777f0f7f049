// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"net/url"
	"testing"

	"taxportal/internal/models"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestSync(t *testing.T) {
	tests := []struct {
		name       string
		current    string
		sel        models.Selection
		wantTarget string
		wantChange bool
	}{
		{
			name:       "already canonical",
			current:    "/insights?category=5&sub=12",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, SubcategoryID: 12, Page: 1},
			wantChange: false,
		},
		{
			name:       "fallback rewritten",
			current:    "/insights?category=99",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, SubcategoryID: 0, Page: 1},
			wantTarget: "/insights?category=5&sub=0",
			wantChange: true,
		},
		{
			name:       "newsletter drops sub",
			current:    "/insights?category=newsletter&sub=3",
			sel:        models.Selection{Kind: models.SelectNewsletter, Page: 1},
			wantTarget: "/insights?category=newsletter",
			wantChange: true,
		},
		{
			name:       "legacy names migrated",
			current:    "/services?categoryId=5&tab=5",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, Page: 1},
			wantTarget: "/services?category=5&sub=0",
			wantChange: true,
		},
		{
			name:       "unrelated parameters kept",
			current:    "/insights?utm_source=mail&category=99",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, Page: 1},
			wantTarget: "/insights?category=5&sub=0&utm_source=mail",
			wantChange: true,
		},
		{
			name:       "explicit first page dropped",
			current:    "/insights?category=5&sub=0&page=1",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, Page: 1},
			wantTarget: "/insights?category=5&sub=0",
			wantChange: true,
		},
		{
			name:       "search and page kept",
			current:    "/insights?category=5&sub=0&search=vat+refund&page=2",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, Search: "vat refund", Page: 2},
			wantChange: false,
		},
		{
			name:       "duplicate values collapsed",
			current:    "/insights?category=5&category=7&sub=0",
			sel:        models.Selection{Kind: models.SelectCategory, CategoryID: 5, Page: 1},
			wantTarget: "/insights?category=5&sub=0",
			wantChange: true,
		},
		{
			name:       "no selection clears navigation",
			current:    "/insights?category=5&sub=3",
			sel:        models.Selection{Kind: models.SelectNone, Page: 1},
			wantTarget: "/insights",
			wantChange: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, changed := Sync(mustURL(t, tt.current), tt.sel)
			if changed != tt.wantChange {
				t.Fatalf("changed = %v, want %v (target %q)", changed, tt.wantChange, target)
			}
			if target != tt.wantTarget {
				t.Errorf("target = %q, want %q", target, tt.wantTarget)
			}
			if !changed {
				return
			}
			// Syncing the synchronized URL must be a no-op.
			if again, changed := Sync(mustURL(t, target), tt.sel); changed {
				t.Errorf("second sync rewrote %q to %q", target, again)
			}
		})
	}
}

// TestResolveAndSyncExample walks the nonexistent-category example end to
// end: resolve, rewrite, then resolve the rewritten URL.
func TestResolveAndSyncExample(t *testing.T) {
	h := models.Hierarchy{{
		ID: 5, Name: "Tax", Visibility: models.VisibilityAll,
		Children: []models.SubcategoryNode{{ID: 0, Name: "All"}, {ID: 12, Name: "Audit"}},
	}}

	u := mustURL(t, "/insights?category=99")
	res := ResolveSelection(h, models.Anonymous(), ParseParams(u.Query()), Options{})
	target, changed := Sync(u, res.Selection)
	if !changed || target != "/insights?category=5&sub=0" {
		t.Fatalf("got (%q, %v), want rewrite to /insights?category=5&sub=0", target, changed)
	}

	u2 := mustURL(t, target)
	res2 := ResolveSelection(h, models.Anonymous(), ParseParams(u2.Query()), Options{})
	if _, changed := Sync(u2, res2.Selection); changed {
		t.Error("canonical URL should not be rewritten again")
	}
	if res2.Selection != res.Selection {
		t.Errorf("selection changed across the rewrite: %+v then %+v", res.Selection, res2.Selection)
	}
}

func TestHref(t *testing.T) {
	sel := models.Selection{Kind: models.SelectCategory, CategoryID: 5, SubcategoryID: 12, Page: 1}
	if got := Href("/insights", sel.WithPage(3)); got != "/insights?category=5&page=3&sub=12" {
		t.Errorf("Href page 3 = %q", got)
	}
	if got := Href("/insights", models.Selection{}); got != "/insights" {
		t.Errorf("Href empty = %q", got)
	}
}
