// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// csrfHandler wraps a handler that records the token it saw.
func csrfHandler(secure bool, seen *string) http.Handler {
	return NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = CSRFTokenFromCtx(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

// issueToken runs a GET through h and returns the token cookie it set.
func issueToken(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/consultation", nil))
	for _, c := range rec.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("CSRF cookie not set")
	return nil
}

func TestCSRFCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		c := issueToken(t, csrfHandler(secure, nil))

		if c.Secure != secure {
			t.Errorf("secure=%v: cookie Secure is %v", secure, c.Secure)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("SameSite: got %v, want Strict", c.SameSite)
		}
		// HTMX reads the token from the layout, the cookie stays JS-visible.
		if c.HttpOnly {
			t.Error("CSRF cookie should not be HttpOnly")
		}
		if len(c.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(c.Value))
		}
	}
}

func TestCSRFTokenInContext(t *testing.T) {
	var seen string
	h := csrfHandler(false, &seen)

	c := issueToken(t, h)
	if seen != c.Value {
		t.Errorf("context token %q differs from cookie %q", seen, c.Value)
	}

	// A request that already carries the cookie keeps its token.
	req := httptest.NewRequest(http.MethodGet, "/insights", nil)
	req.AddCookie(c)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != c.Value {
		t.Errorf("existing token not reused: got %q", seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("existing token should not be reissued")
	}

	if got := CSRFTokenFromCtx(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("no middleware: got %q, want empty", got)
	}
}

func TestCSRFValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		header string // "token" means the issued token
		form   string
		cookie bool
		want   int
	}{
		{"get passes", http.MethodGet, "", "", false, http.StatusOK},
		{"head passes", http.MethodHead, "", "", false, http.StatusOK},
		{"options passes", http.MethodOptions, "", "", false, http.StatusOK},
		{"post without token", http.MethodPost, "", "", true, http.StatusForbidden},
		{"post without cookie", http.MethodPost, "token", "", false, http.StatusForbidden},
		{"post with header", http.MethodPost, "token", "", true, http.StatusOK},
		{"post with form field", http.MethodPost, "", "token", true, http.StatusOK},
		{"post with wrong header", http.MethodPost, "forged", "", true, http.StatusForbidden},
		{"put without token", http.MethodPut, "", "", true, http.StatusForbidden},
		{"patch without token", http.MethodPatch, "", "", true, http.StatusForbidden},
		{"delete without token", http.MethodDelete, "", "", true, http.StatusForbidden},
		{"delete with header", http.MethodDelete, "token", "", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := csrfHandler(false, nil)
			issued := issueToken(t, h)

			value := func(v string) string {
				if v == "token" {
					return issued.Value
				}
				return v
			}

			var body *strings.Reader
			if tt.form != "" {
				body = strings.NewReader(url.Values{CSRFFormField: {value(tt.form)}}.Encode())
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, "/consultation", body)
			if tt.form != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, value(tt.header))
			}
			if tt.cookie {
				req.AddCookie(issued)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
