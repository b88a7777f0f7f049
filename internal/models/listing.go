// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Item is one entry of a listing page, or a full article when Body is set.
type Item struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	CategoryID    int       `json:"category_id,omitempty"`
	SubcategoryID int       `json:"subcategory_id,omitempty"`
	Author        string    `json:"author,omitempty"`
	Body          string    `json:"body,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

// ListingQuery holds the filters of one listing request. A zero
// SubcategoryID means no subcategory filter, and Newsletter queries carry
// no category filter at all.
type ListingQuery struct {
	CategoryID    int
	SubcategoryID int
	Newsletter    bool
	Page          int
	Limit         int
	Search        string
	Auth          AuthState
}

// ListingPage is one page of listing results plus the total match count.
type ListingPage struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// TotalPages returns the number of pages for the given page size.
func (p ListingPage) TotalPages(size int) int {
	if size <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total-1)/size + 1
}
