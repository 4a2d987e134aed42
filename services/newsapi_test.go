package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetNews(t *testing.T) {
	var gotQuery, gotAPIKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAPIKey = r.Header.Get("X-Api-Key")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"totalResults": 2,
			"articles": [
				{
					"source": {"id": "reuters", "name": "Reuters"},
					"title": "Company announces record quarter",
					"description": "Earnings beat expectations",
					"url": "https://example.com/1",
					"publishedAt": "2024-03-01T12:00:00Z"
				},
				{
					"source": {"id": "", "name": "Bloomberg"},
					"title": "Shares rally on guidance",
					"description": "",
					"url": "https://example.com/2",
					"publishedAt": "2024-03-01T09:30:00Z"
				}
			]
		}`))
	}))
	defer server.Close()

	svc := NewNewsAPIService("test-key")
	svc.baseURL = server.URL

	articles, err := svc.GetNews(context.Background(), "ACME", 10)
	if err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}

	if gotQuery != "ACME" {
		t.Errorf("query = %q, want ACME", gotQuery)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("API key header = %q, want test-key", gotAPIKey)
	}

	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if articles[0].Title != "Company announces record quarter" {
		t.Errorf("Title = %q", articles[0].Title)
	}
	if articles[0].Source != "Reuters" {
		t.Errorf("Source = %q, want Reuters", articles[0].Source)
	}
	if articles[0].PublishedAt.IsZero() {
		t.Error("PublishedAt not parsed")
	}
}

func TestGetNewsBadTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok", "totalResults": 1, "articles": [
			{"source": {"name": "X"}, "title": "t", "url": "u", "publishedAt": "not-a-date"}
		]}`))
	}))
	defer server.Close()

	svc := NewNewsAPIService("test-key")
	svc.baseURL = server.URL

	articles, err := svc.GetNews(context.Background(), "ACME", 10)
	if err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	// Unparseable timestamps degrade to "now" instead of dropping the article
	if articles[0].PublishedAt.IsZero() {
		t.Error("PublishedAt should fall back to current time")
	}
}

func TestGetNewsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc := NewNewsAPIService("test-key")
	svc.baseURL = server.URL

	if _, err := svc.GetNews(context.Background(), "ACME", 10); err == nil {
		t.Error("GetNews() = nil error, want failure after retries")
	}
}

func TestGetNewsLimitClamped(t *testing.T) {
	var gotPageSize string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPageSize = r.URL.Query().Get("pageSize")
		w.Write([]byte(`{"status": "ok", "totalResults": 0, "articles": []}`))
	}))
	defer server.Close()

	svc := NewNewsAPIService("test-key")
	svc.baseURL = server.URL

	if _, err := svc.GetNews(context.Background(), "ACME", 5000); err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}
	if gotPageSize != "100" {
		t.Errorf("pageSize = %q, want clamped to 100", gotPageSize)
	}

	if _, err := svc.GetNews(context.Background(), "ACME", 0); err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}
	if gotPageSize != "10" {
		t.Errorf("pageSize = %q, want default 10", gotPageSize)
	}
}
