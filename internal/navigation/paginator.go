// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"taxportal/internal/models"
)

// ErrSuperseded is returned for a listing response that arrived after a
// newer request was initiated by the same paginator. Its result must be
// discarded.
var ErrSuperseded = errors.New("navigation: listing superseded by a newer request")

// Fetcher retrieves one page of a listing from the CMS.
type Fetcher interface {
	Listing(ctx context.Context, resource string, q models.ListingQuery) (models.ListingPage, error)
}

// Result is an applied listing response. Err is the CMS error, if any; it
// replaces the listing but leaves the selection alone.
type Result struct {
	Query models.ListingQuery
	Page  models.ListingPage
	Err   error
	Seq   uint64
}

// BuildQuery turns a selection into listing filters. It reports false
// when there is nothing to list.
func BuildQuery(sel models.Selection, pageSize int, auth models.AuthState) (models.ListingQuery, bool) {
	q := models.ListingQuery{
		Page:   max(sel.Page, 1),
		Limit:  pageSize,
		Search: sel.Search,
		Auth:   auth,
	}
	switch sel.Kind {
	case models.SelectCategory:
		q.CategoryID = sel.CategoryID
		q.SubcategoryID = sel.SubcategoryID
	case models.SelectNewsletter:
		q.Newsletter = true
	default:
		return models.ListingQuery{}, false
	}
	return q, true
}

// Paginator fetches listing pages and applies only the response of the
// most recently initiated request. Older responses are dropped on
// arrival; requests are not cancelled.
type Paginator struct {
	fetcher Fetcher

	mu      sync.Mutex
	latest  uint64
	applied *Result
}

// NewPaginator creates a Paginator that fetches through f.
func NewPaginator(f Fetcher) *Paginator {
	return &Paginator{fetcher: f}
}

// Fetch requests one page. It returns ErrSuperseded when another Fetch
// started after this one.
func (p *Paginator) Fetch(ctx context.Context, resource string, q models.ListingQuery) (Result, error) {
	p.mu.Lock()
	p.latest++
	seq := p.latest
	p.mu.Unlock()

	page, err := p.fetcher.Listing(ctx, resource, q)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.latest {
		return Result{}, ErrSuperseded
	}
	res := Result{Query: q, Page: page, Err: err, Seq: seq}
	p.applied = &res
	return res, nil
}

// Current returns the last applied result.
func (p *Paginator) Current() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applied == nil {
		return Result{}, false
	}
	return *p.applied, true
}

// pagerEntry tracks one paginator and when it was last used.
type pagerEntry struct {
	p        *Paginator
	lastUsed time.Time
}

// Paginators hands out one Paginator per visitor session and surface, so
// rapid tab switching by one visitor supersedes that visitor's earlier
// requests and nobody else's. Idle entries are swept in the background.
type Paginators struct {
	fetcher Fetcher
	idle    time.Duration

	mu      sync.Mutex
	entries map[string]*pagerEntry

	stopCh chan struct{}
	done   chan struct{}
}

// NewPaginators creates the registry and starts its sweeper.
func NewPaginators(f Fetcher, idle time.Duration) *Paginators {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	r := &Paginators{
		fetcher: f,
		idle:    idle,
		entries: make(map[string]*pagerEntry),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(idle)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				r.sweep(now)
			case <-r.stopCh:
				return
			}
		}
	}()

	return r
}

// Stop terminates the sweeper and waits for it to exit.
func (r *Paginators) Stop() {
	close(r.stopCh)
	<-r.done
}

// For returns the paginator of a visitor session on a surface.
func (r *Paginators) For(sessionID, surface string) *Paginator {
	key := sessionID + "/" + surface

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = &pagerEntry{p: NewPaginator(r.fetcher)}
		r.entries[key] = e
	}
	e.lastUsed = time.Now()
	return e.p
}

// Len returns the number of live paginators.
func (r *Paginators) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// sweep drops paginators idle since before now-idle.
func (r *Paginators) sweep(now time.Time) {
	cutoff := now.Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, key)
		}
	}
}

// PaginateItems pages through the item references stored in the
// hierarchy itself, for surfaces that have no separate listing endpoint.
func PaginateItems(c models.CategoryNode, sub, page, size int) models.ListingPage {
	refs := c.Items(sub)
	out := models.ListingPage{Items: []models.Item{}, Total: len(refs)}
	if size <= 0 {
		size = len(refs)
	}
	page = max(page, 1)
	// Compare page counts before multiplying; page comes from the URL.
	if len(refs) == 0 || page-1 > (len(refs)-1)/size {
		return out
	}
	start := (page - 1) * size
	end := min(start+size, len(refs))
	for _, ref := range refs[start:end] {
		out.Items = append(out.Items, models.Item{
			ID:            ref.ID,
			Title:         ref.Title,
			Summary:       ref.Summary,
			ThumbnailURL:  ref.ThumbnailURL,
			CategoryID:    c.ID,
			SubcategoryID: sub,
		})
	}
	return out
}
