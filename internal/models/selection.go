// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// SelectionKind distinguishes what a Selection points at.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectCategory
	SelectNewsletter
)

// Selection is the resolved navigation state of a listing surface. It
// mirrors the category, sub, search and page URL parameters.
type Selection struct {
	Kind          SelectionKind `json:"kind"`
	CategoryID    int           `json:"category_id,omitempty"`
	SubcategoryID int           `json:"subcategory_id"`
	Search        string        `json:"search,omitempty"`
	Page          int           `json:"page"`
}

// IsNewsletter reports whether the newsletter pseudo-category is selected.
func (s Selection) IsNewsletter() bool { return s.Kind == SelectNewsletter }

// IsCategory reports whether the selection points at category id.
func (s Selection) IsCategory(id int) bool {
	return s.Kind == SelectCategory && s.CategoryID == id
}

// WithCategory selects a category and resets the subcategory and page.
func (s Selection) WithCategory(id int) Selection {
	s.Kind = SelectCategory
	s.CategoryID = id
	s.SubcategoryID = AllSubcategories
	s.Page = 1
	return s
}

// WithNewsletter selects the newsletter pseudo-category.
func (s Selection) WithNewsletter() Selection {
	s.Kind = SelectNewsletter
	s.CategoryID = 0
	s.SubcategoryID = AllSubcategories
	s.Page = 1
	return s
}

// WithSubcategory keeps the category and selects a subcategory.
func (s Selection) WithSubcategory(id int) Selection {
	s.SubcategoryID = id
	s.Page = 1
	return s
}

// WithSearch changes the search term and resets the page.
func (s Selection) WithSearch(term string) Selection {
	s.Search = term
	s.Page = 1
	return s
}

// WithPage moves to another page without touching any filter.
func (s Selection) WithPage(page int) Selection {
	if page < 1 {
		page = 1
	}
	s.Page = page
	return s
}
