// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"context"
	"net/url"

	"taxportal/internal/models"
)

// Surface describes one category-driven page of the site.
type Surface struct {
	// Name scopes the surface's own copy of the hierarchy.
	Name string
	// Resource is the CMS resource whose hierarchy drives the surface.
	Resource string
	// ListingResource is fetched for listing pages. When empty, listing
	// pages are cut from the item references inside the hierarchy.
	ListingResource string
	// NewsletterResource is listed when the newsletter is selected.
	NewsletterResource string
	NewsletterEnabled  bool
}

// View is everything a surface needs to render one request.
type View struct {
	Surface    Surface
	Categories models.Hierarchy // filtered for the viewer
	Category   models.CategoryNode
	Selection  models.Selection
	Corrected  bool

	// ReplaceURL is set when the request URL does not match the
	// selection; the browser should replace it without a history entry.
	ReplaceURL string

	Listing    models.ListingPage
	ListingErr error
	PageSize   int
}

// NeedsSync reports whether the request URL must be replaced.
func (v View) NeedsSync() bool { return v.ReplaceURL != "" }

// TotalPages returns the number of listing pages.
func (v View) TotalPages() int { return v.Listing.TotalPages(v.PageSize) }

// Navigator runs the navigation pipeline for one surface.
type Navigator struct {
	surface Surface
	hier    *Hierarchies
	pagers  *Paginators
}

// NewNavigator creates a Navigator and registers its hierarchy scope.
// pagers may be nil for surfaces that list from the hierarchy.
func NewNavigator(s Surface, hier *Hierarchies, pagers *Paginators) *Navigator {
	hier.Register(s.Name, s.Resource)
	return &Navigator{surface: s, hier: hier, pagers: pagers}
}

// Surface returns the surface definition.
func (n *Navigator) Surface() Surface { return n.surface }

// Resolve fetches (or reuses) the hierarchy, filters it for the viewer,
// resolves the selection from u and computes the canonical URL. It does
// not fetch the listing.
func (n *Navigator) Resolve(ctx context.Context, sess *Session, u *url.URL) View {
	visible := sess.Visible(ctx, n.surface.Name, n.surface.Resource)
	res := Resolve(visible, ParseParams(u.Query()), Options{NewsletterEnabled: n.surface.NewsletterEnabled})

	v := View{
		Surface:    n.surface,
		Categories: visible,
		Category:   res.Category,
		Selection:  res.Selection,
		Corrected:  res.Corrected,
	}
	if target, changed := Sync(u, res.Selection); changed {
		v.ReplaceURL = target
	}

	switch res.Selection.Kind {
	case models.SelectNewsletter:
		v.PageSize = models.DisplaySnippet.PageSize()
	case models.SelectCategory:
		v.PageSize = res.Category.DisplayType.PageSize()
	}
	return v
}

// Load fills in the listing of a resolved view. A CMS failure is kept in
// ListingErr; the only returned error is ErrSuperseded.
func (n *Navigator) Load(ctx context.Context, sess *Session, v View) (View, error) {
	sel := v.Selection
	switch {
	case sel.Kind == models.SelectNone:
		return v, nil
	case sel.Kind == models.SelectCategory && n.surface.ListingResource == "":
		v.Listing = PaginateItems(v.Category, sel.SubcategoryID, sel.Page, v.PageSize)
		return v, nil
	}

	resource := n.surface.ListingResource
	if sel.IsNewsletter() {
		resource = n.surface.NewsletterResource
	}
	q, ok := BuildQuery(sel, v.PageSize, sess.Auth())
	if !ok || resource == "" || n.pagers == nil {
		return v, nil
	}

	res, err := n.pagers.For(sess.ID(), n.surface.Name).Fetch(ctx, resource, q)
	if err != nil {
		return v, err
	}
	v.Listing = res.Page
	v.ListingErr = res.Err
	return v, nil
}
