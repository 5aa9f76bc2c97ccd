package gitlab

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glinvent/glinvent/internal/crawl"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Options{
		Host:  srv.URL,
		Token: "glpat-test",
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, srv
}

func TestNewClientRequiresHostAndToken(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{Token: "x"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewClient(context.Background(), Options{Host: "gitlab.example.com"}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"username":"scanner"}`))
	}))

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user != "scanner" {
		t.Errorf("CurrentUser() = %q, want %q", user, "scanner")
	}
	if gotAuth != "Bearer glpat-test" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer glpat-test")
	}
}

func TestCurrentUserInvalidToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.CurrentUser(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("CurrentUser() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", apiErr.Status)
	}
}

func TestPagesParsesCursorAndTotalHeaders(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/groups" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("X-Next-Page", "2")
			w.Header().Set("X-Total", "3")
			_, _ = w.Write([]byte(`[{"full_path":"acme"},{"full_path":"beta"}]`))
		case "2":
			w.Header().Set("X-Total", "3")
			_, _ = w.Write([]byte(`[{"full_path":"gamma"}]`))
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))

	fetch := Pages[Group](c, GroupsPath(), nil, 2)

	groups, res, err := crawl.Collect(context.Background(), fetch)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("len(groups) = %d, want 3", len(groups))
	}
	if groups[2].FullPath != "gamma" {
		t.Errorf("groups[2].FullPath = %q, want %q", groups[2].FullPath, "gamma")
	}
	if res.Total != 3 {
		t.Errorf("Total = %d, want 3", res.Total)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}
}

func TestPagesNonOKIsAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	fetch := Pages[Issue](c, ProjectIssuesPath(7), nil, 100)
	page, err := fetch(context.Background(), nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("fetch error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", apiErr.Status)
	}
	if page.Status != http.StatusNotFound {
		t.Errorf("page.Status = %d, want 404", page.Status)
	}
	if page.Next != nil {
		t.Error("page.Next should be nil on failure")
	}
}

func TestPagesMalformedBodyIsDecodeError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))

	fetch := Pages[Issue](c, ProjectIssuesPath(7), nil, 100)
	_, err := fetch(context.Background(), nil)

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("fetch error = %v, want *DecodeError", err)
	}
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"username":"scanner"}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{
		Host:    srv.URL,
		Token:   "glpat-test",
		Retries: 2,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	user, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user != "scanner" {
		t.Errorf("CurrentUser() = %q, want %q", user, "scanner")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{
		Host:    srv.URL,
		Token:   "glpat-test",
		Retries: 3,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.CurrentUser(context.Background()); err == nil {
		t.Fatal("expected error on 403")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not be retried)", attempts)
	}
}

func TestProjectWithStatistics(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/projects/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("statistics") != "true" {
			t.Error("expected statistics=true query parameter")
		}
		_, _ = w.Write([]byte(`{"id":42,"path":"widgets","statistics":{"repository_size":4096}}`))
	}))

	p, err := c.ProjectWithStatistics(context.Background(), 42)
	if err != nil {
		t.Fatalf("ProjectWithStatistics() error = %v", err)
	}
	if p.Statistics == nil || p.Statistics.RepositorySize != 4096 {
		t.Errorf("Statistics = %+v, want repository_size 4096", p.Statistics)
	}
}

func TestHostStripsSchemeAndPort(t *testing.T) {
	c, err := NewClient(context.Background(), Options{Host: "https://gitlab.example.com", Token: "t"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Host() != "gitlab.example.com" {
		t.Errorf("Host() = %q, want %q", c.Host(), "gitlab.example.com")
	}

	c, err = NewClient(context.Background(), Options{Host: "gitlab.example.com:8443", Token: "t"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.Host() != "gitlab.example.com" {
		t.Errorf("Host() = %q, want %q", c.Host(), "gitlab.example.com")
	}
}
