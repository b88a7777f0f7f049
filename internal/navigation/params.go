// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"net/url"
	"strings"

	"taxportal/internal/models"
)

// Canonical query parameter names.
const (
	ParamCategory = "category"
	ParamSub      = "sub"
	ParamSearch   = "search"
	ParamPage     = "page"
)

// Legacy parameter names accepted on read and dropped on write.
const (
	legacyCategoryID = "categoryId"
	legacyTab        = "tab"
	legacyDataRoom   = "dataRoom"
)

var (
	navParams    = []string{ParamCategory, ParamSub, ParamSearch, ParamPage}
	legacyParams = []string{legacyCategoryID, legacyTab, legacyDataRoom}
)

// Params are the raw navigation parameters of a request, after legacy
// names have been folded into canonical ones. Values are not validated
// here; the resolver treats anything malformed as absent.
type Params struct {
	Category string
	Sub      string
	Search   string
	Page     string

	// Legacy is set when the query used any legacy parameter name.
	Legacy bool
}

// ParseParams reads navigation parameters from a query string.
// Canonical names win over legacy ones when both are present.
func ParseParams(q url.Values) Params {
	p := Params{
		Category: strings.TrimSpace(q.Get(ParamCategory)),
		Sub:      strings.TrimSpace(q.Get(ParamSub)),
		Search:   strings.TrimSpace(q.Get(ParamSearch)),
		Page:     strings.TrimSpace(q.Get(ParamPage)),
	}

	for _, k := range legacyParams {
		if q.Has(k) {
			p.Legacy = true
		}
	}

	if p.Category == "" {
		switch {
		case truthy(q.Get(legacyDataRoom)):
			p.Category = models.NewsletterID
		case strings.TrimSpace(q.Get(legacyCategoryID)) != "":
			p.Category = strings.TrimSpace(q.Get(legacyCategoryID))
		case strings.TrimSpace(q.Get(legacyTab)) != "":
			p.Category = strings.TrimSpace(q.Get(legacyTab))
		}
	}

	return p
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
