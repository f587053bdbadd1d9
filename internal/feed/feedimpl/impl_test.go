package feedimpl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orgball2608/story-playback-engine/internal/feed"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
)

func newTestClient(url string) *FeedImpl {
	cfg := &config.Config{}
	cfg.Feed.URL = url
	cfg.Feed.TimeoutSeconds = 5
	return New(Opts{Logger: logger.NewNop(), Config: cfg})
}

func TestFetchAllStoryRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "s1",
				"publisher_id": "alice",
				"publisher_name": "Alice",
				"media_url": "https://cdn.example.com/1.jpg",
				"created_at": "2025-01-10T12:00:00Z"
			},
			{
				"id": "s2",
				"publisher_id": "bob",
				"publisher_name": "Bob",
				"media_url": "https://cdn.example.com/2.mp4",
				"media_type": "video",
				"created_at": "2025-01-10T13:00:00Z"
			}
		]`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL).FetchAllStoryRecords(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "s1" || records[0].PublisherID != "alice" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].MediaType != "video" {
		t.Fatalf("media_type tag not decoded: %+v", records[1])
	}
	if records[0].CreatedAt.IsZero() {
		t.Fatal("created_at not decoded")
	}
}

func TestFetchReportsUnavailableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchAllStoryRecords(context.Background())
	if !errors.Is(err, feed.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchReportsUnavailableWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // reachable URL, dead server

	_, err := newTestClient(srv.URL).FetchAllStoryRecords(context.Background())
	if !errors.Is(err, feed.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFetchFailsOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).FetchAllStoryRecords(context.Background()); err == nil {
		t.Fatal("expected a decode error")
	}
}
