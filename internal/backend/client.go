// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package backend is a read-only client for the CMS REST API that owns
// categories, insights, service areas and newsletters.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taxportal/internal/models"
)

// ErrNotFound is returned when a CMS resource cannot be located.
var ErrNotFound = errors.New("backend: not found")

// StatusError is returned for any other non-2xx answer.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s answered %d", e.URL, e.Status)
}

// DefaultTimeout bounds every CMS request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// maxBody caps how much of a response is decoded.
const maxBody = 4 << 20

// Client provides read-only access to CMS endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Hierarchy fetches GET /<resource>/hierarchical and returns the exposed
// categories ordered by display order.
func (c *Client) Hierarchy(ctx context.Context, resource string) (models.Hierarchy, error) {
	var raw []rawNode
	if err := c.get(ctx, nil, &raw, resource, "hierarchical"); err != nil {
		return nil, fmt.Errorf("hierarchy %s: %w", resource, err)
	}
	return buildHierarchy(raw), nil
}

// Listing fetches one page of GET /<resource> with the filters of q.
func (c *Client) Listing(ctx context.Context, resource string, q models.ListingQuery) (models.ListingPage, error) {
	var raw rawPage
	if err := c.get(ctx, ListingValues(q), &raw, resource); err != nil {
		return models.ListingPage{}, fmt.Errorf("listing %s: %w", resource, err)
	}

	page := models.ListingPage{Items: make([]models.Item, 0, len(raw.Items)), Total: raw.Total}
	for _, it := range raw.Items {
		page.Items = append(page.Items, it.item())
	}
	if page.Total < len(page.Items) {
		page.Total = len(page.Items)
	}
	return page, nil
}

// Item fetches a single entry of GET /<resource>/<id>.
func (c *Client) Item(ctx context.Context, resource string, id int) (models.Item, error) {
	var raw rawItem
	if err := c.get(ctx, nil, &raw, resource, strconv.Itoa(id)); err != nil {
		return models.Item{}, fmt.Errorf("item %s/%d: %w", resource, id, err)
	}
	return raw.item(), nil
}

// ListingValues encodes a listing query. Subcategory 0 and an empty
// search are omitted; an anonymous viewer is sent as memberType=null.
func ListingValues(q models.ListingQuery) url.Values {
	v := url.Values{}
	if !q.Newsletter && q.CategoryID != 0 {
		v.Set("categoryId", strconv.Itoa(q.CategoryID))
	}
	if !q.Newsletter && q.SubcategoryID != models.AllSubcategories {
		v.Set("subcategoryId", strconv.Itoa(q.SubcategoryID))
	}
	v.Set("page", strconv.Itoa(max(q.Page, 1)))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("memberType", q.Auth.ListingMemberType())
	v.Set("isApproved", "true")
	return v
}

func (c *Client) get(ctx context.Context, query url.Values, dst any, path ...string) error {
	endpoint, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("join path: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Status: resp.StatusCode, URL: endpoint}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
