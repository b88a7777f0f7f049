// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"context"
	"sync"

	"taxportal/internal/models"
)

// taxHierarchy is the hierarchy used by most tests: one public category
// with a subcategory, one insurance-only category and one general-only
// category.
func taxHierarchy() models.Hierarchy {
	return models.Hierarchy{
		{
			ID: 5, Name: "Tax", Visibility: models.VisibilityAll, DisplayType: models.DisplayCard,
			Children: []models.SubcategoryNode{
				{ID: models.AllSubcategories, Name: "All"},
				{ID: 12, Name: "Audit", Items: []models.ItemRef{{ID: 100, Title: "Audit basics"}}},
			},
		},
		{
			ID: 7, Name: "Insurance", Visibility: models.Visibility(models.MemberInsurance), DisplayType: models.DisplayTable,
			Children: []models.SubcategoryNode{
				{ID: models.AllSubcategories, Name: "All"},
				{ID: 21, Name: "Agency"},
			},
		},
		{ID: 9, Name: "Payroll", Visibility: models.Visibility(models.MemberGeneral), DisplayType: models.DisplaySnippet},
	}
}

// fakeSource is a Source that counts calls and can be made to fail or
// to block until released.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	cats  models.Hierarchy
	err   error

	started chan struct{} // receives once per call when non-nil
	release chan struct{} // calls wait on it when non-nil
}

func (f *fakeSource) Hierarchy(ctx context.Context, resource string) (models.Hierarchy, error) {
	f.mu.Lock()
	f.calls++
	cats, err := f.cats, f.err
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return cats, err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeFetcher is a Fetcher whose responses are released one by one by
// the test, in whatever order it chooses.
type fakeFetcher struct {
	mu      sync.Mutex
	queries []models.ListingQuery
	pages   map[int]models.ListingPage // keyed by page number
	err     error
	gates   map[int]chan struct{} // keyed by page number
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[int]models.ListingPage),
		gates: make(map[int]chan struct{}),
	}
}

func (f *fakeFetcher) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func (f *fakeFetcher) Listing(ctx context.Context, resource string, q models.ListingQuery) (models.ListingPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gates[q.Page]
	page, err := f.pages[q.Page], f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return page, err
}

func (f *fakeFetcher) Queries() []models.ListingQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ListingQuery, len(f.queries))
	copy(out, f.queries)
	return out
}
