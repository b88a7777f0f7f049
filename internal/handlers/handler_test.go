// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure. Site handlers run
// against an in-memory CMS; member portal tests need PostgreSQL and
// Valkey and are skipped when those services are unavailable.
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"taxportal/internal/backend"
	"taxportal/internal/database"
	"taxportal/internal/menu"
	"taxportal/internal/middleware"
	"taxportal/internal/models"
	"taxportal/internal/navigation"
	"taxportal/internal/render"
	"taxportal/internal/session"
)

// fakeCMS serves hierarchies, listings and items from memory. A gate
// registered for a listing page holds that request until closed.
type fakeCMS struct {
	mu          sync.Mutex
	hierarchies map[string]models.Hierarchy
	items       map[int]models.Item
	listingErr  error
	queries     []models.ListingQuery
	gates       map[int]chan struct{}
	started     chan int
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		hierarchies: map[string]models.Hierarchy{
			"insights": {
				{ID: 5, Name: "Tax", Visibility: models.VisibilityAll, DisplayType: models.DisplayCard,
					Children: []models.SubcategoryNode{
						{ID: models.AllSubcategories, Name: "All"},
						{ID: 12, Name: "Audit"},
					}},
				{ID: 7, Name: "Insurance", Visibility: models.Visibility(models.MemberInsurance), DisplayType: models.DisplayTable},
			},
			"services": {
				{ID: 30, Name: "Advisory", Visibility: models.VisibilityAll, DisplayType: models.DisplaySnippet,
					Children: []models.SubcategoryNode{
						{ID: models.AllSubcategories, Name: "All"},
						{ID: 31, Name: "Restructuring", Items: []models.ItemRef{{ID: 301, Title: "Mergers and acquisitions"}}},
						{ID: 32, Name: "Compliance", Items: []models.ItemRef{{ID: 302, Title: "Annual filings"}}},
					}},
			},
		},
		items: map[int]models.Item{
			501: {ID: 501, Title: "Budget 2026 briefing", CategoryID: 5, SubcategoryID: 12, Body: "**Rates** rise.\n\n<script>alert(1)</script>"},
			502: {ID: 502, Title: "Agency rules", CategoryID: 7, Body: "Members only."},
			900: {ID: 900, Title: "March newsletter", Body: "News."},
		},
		gates:   make(map[int]chan struct{}),
		started: make(chan int, 8),
	}
}

func (f *fakeCMS) Hierarchy(_ context.Context, resource string) (models.Hierarchy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hierarchies[resource], nil
}

func (f *fakeCMS) Listing(ctx context.Context, resource string, q models.ListingQuery) (models.ListingPage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gates[q.Page]
	err := f.listingErr
	f.mu.Unlock()

	select {
	case f.started <- q.Page:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.ListingPage{}, ctx.Err()
		}
	}
	if err != nil {
		return models.ListingPage{}, err
	}
	title := "Budget 2026 briefing"
	if q.Newsletter {
		title = "March newsletter"
	}
	return models.ListingPage{Total: 20, Items: []models.Item{{ID: 501, Title: title}}}, nil
}

func (f *fakeCMS) Item(_ context.Context, _ string, id int) (models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return models.Item{}, backend.ErrNotFound
	}
	return it, nil
}

func (f *fakeCMS) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[page] = ch
	return ch
}

func (f *fakeCMS) Queries() []models.ListingQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ListingQuery(nil), f.queries...)
}

// siteEnv wires the public site against a fakeCMS.
type siteEnv struct {
	CMS         *fakeCMS
	Hierarchies *navigation.Hierarchies
	Paginators  *navigation.Paginators
	Renderer    *render.Renderer
	Base        Base
	Site        *Site
}

func newSiteEnv(t *testing.T) *siteEnv {
	t.Helper()

	cms := newFakeCMS()
	hier := navigation.NewHierarchies(cms, navigation.NewMemoryStore())
	pagers := navigation.NewPaginators(cms, time.Minute)
	t.Cleanup(pagers.Stop)

	renderer, err := render.New(false, "TaxPortal")
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	def, err := menu.Load("")
	if err != nil {
		t.Fatalf("menu.Load: %v", err)
	}
	base := NewBase(renderer, menu.New(def, hier, true))

	insights := navigation.NewNavigator(navigation.Surface{
		Name:               "insights",
		Resource:           "insights",
		ListingResource:    "insights",
		NewsletterResource: "newsletters",
		NewsletterEnabled:  true,
	}, hier, pagers)
	services := navigation.NewNavigator(navigation.Surface{
		Name:     "services",
		Resource: "services",
	}, hier, pagers)

	return &siteEnv{
		CMS:         cms,
		Hierarchies: hier,
		Paginators:  pagers,
		Renderer:    renderer,
		Base:        base,
		Site:        NewSite(base, insights, services, cms),
	}
}

// serve runs h behind the Navigation middleware with sess as the visitor.
func (e *siteEnv) serve(h http.HandlerFunc, req *http.Request, sess *session.Data) *httptest.ResponseRecorder {
	if sess == nil {
		sess = anonymousSession("sess-anon")
	}
	req = req.WithContext(middleware.WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	middleware.Navigation(e.Hierarchies)(h).ServeHTTP(rec, req)
	return rec
}

func anonymousSession(id string) *session.Data {
	return &session.Data{ID: id}
}

func memberSession(id string, mt models.MemberType) *session.Data {
	return &session.Data{
		ID:          id,
		MemberID:    uuid.New(),
		Email:       "member@taxportal.local",
		DisplayName: "Test Member",
		MemberType:  mt,
		LoggedIn:    true,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "taxportal")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "taxportal")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:     envOr("VALKEY_HOST", "localhost") + ":" + envOr("VALKEY_PORT", "6379"),
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, "session:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}
