// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"net/url"
	"slices"
	"strconv"

	"taxportal/internal/models"
)

// Canonical returns the query parameters that represent sel. Page 1 and
// an empty search are omitted; the newsletter has no subcategory.
func Canonical(sel models.Selection) url.Values {
	v := url.Values{}
	switch sel.Kind {
	case models.SelectCategory:
		v.Set(ParamCategory, strconv.Itoa(sel.CategoryID))
		v.Set(ParamSub, strconv.Itoa(sel.SubcategoryID))
	case models.SelectNewsletter:
		v.Set(ParamCategory, models.NewsletterID)
	}
	if sel.Search != "" {
		v.Set(ParamSearch, sel.Search)
	}
	if sel.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(sel.Page))
	}
	return v
}

// Href builds a link to path carrying the canonical parameters of sel.
func Href(path string, sel models.Selection) string {
	q := Canonical(sel).Encode()
	if q == "" {
		return path
	}
	return path + "?" + q
}

// Sync compares the navigation parameters of current with sel and, when
// they differ, returns the URL the browser should be moved to in place of
// current. Parameters unrelated to navigation are preserved and legacy
// names are dropped. Syncing the returned URL again reports no change,
// so callers never rewrite in a loop.
func Sync(current *url.URL, sel models.Selection) (string, bool) {
	q := current.Query()
	want := Canonical(sel)

	changed := false
	for _, k := range navParams {
		if !slices.Equal(q[k], want[k]) {
			changed = true
			break
		}
	}
	for _, k := range legacyParams {
		if q.Has(k) {
			changed = true
		}
	}
	if !changed {
		return "", false
	}

	for _, k := range navParams {
		q.Del(k)
	}
	for _, k := range legacyParams {
		q.Del(k)
	}
	for k, vs := range want {
		q[k] = vs
	}

	target := current.EscapedPath()
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	return target, true
}
