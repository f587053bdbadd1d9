package catalog

import (
	"testing"
	"time"

	"github.com/orgball2608/story-playback-engine/internal/domain"
)

func rawRecord(id, publisher, url string, createdAt time.Time) domain.RawStoryRecord {
	return domain.RawStoryRecord{
		ID:            id,
		PublisherID:   publisher,
		PublisherName: publisher,
		MediaURL:      url,
		CreatedAt:     createdAt,
	}
}

func TestBuildGroupsByPublisher(t *testing.T) {
	now := time.Now()
	raw := []domain.RawStoryRecord{
		rawRecord("s1", "alice", "https://cdn.example.com/a1.jpg", now),
		rawRecord("s2", "bob", "https://cdn.example.com/b1.jpg", now),
		rawRecord("s3", "alice", "https://cdn.example.com/a2.jpg", now.Add(time.Minute)),
	}

	groups := Build(raw)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].PublisherID != "alice" || groups[1].PublisherID != "bob" {
		t.Fatalf("group order should follow feed appearance, got %q then %q",
			groups[0].PublisherID, groups[1].PublisherID)
	}
	if len(groups[0].Items) != 2 {
		t.Fatalf("expected 2 items for alice, got %d", len(groups[0].Items))
	}
}

func TestBuildSortsItemsAscendingByCreatedAt(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	raw := []domain.RawStoryRecord{
		rawRecord("s3", "alice", "https://cdn.example.com/3.jpg", base.Add(2*time.Hour)),
		rawRecord("s1", "alice", "https://cdn.example.com/1.jpg", base),
		rawRecord("s2", "alice", "https://cdn.example.com/2.jpg", base.Add(time.Hour)),
	}

	groups := Build(raw)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	items := groups[0].Items
	for i := 0; i+1 < len(items); i++ {
		if items[i].CreatedAt.After(items[i+1].CreatedAt) {
			t.Fatalf("items not sorted ascending at index %d", i)
		}
	}
	if items[0].ID != "s1" || items[2].ID != "s3" {
		t.Fatalf("unexpected item order: %s, %s, %s", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestBuildDropsRecordsWithoutMediaURL(t *testing.T) {
	now := time.Now()
	raw := []domain.RawStoryRecord{
		rawRecord("s1", "alice", "", now),
		rawRecord("s2", "alice", "   ", now),
		rawRecord("s3", "bob", "https://cdn.example.com/b.jpg", now),
	}

	groups := Build(raw)
	if len(groups) != 1 {
		t.Fatalf("expected only bob's group to survive, got %d groups", len(groups))
	}
	if groups[0].PublisherID != "bob" {
		t.Fatalf("expected bob, got %s", groups[0].PublisherID)
	}
}

func TestBuildDropsEmptyGroups(t *testing.T) {
	raw := []domain.RawStoryRecord{
		rawRecord("s1", "alice", "", time.Now()),
	}
	if groups := Build(raw); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestResolveMediaTypeExplicitTagWins(t *testing.T) {
	got := ResolveMediaType("video", "https://cdn.example.com/asset.jpg")
	if got != domain.MediaTypeVideo {
		t.Fatalf("explicit tag should win, got %s", got)
	}
}

func TestResolveMediaTypeInference(t *testing.T) {
	cases := []struct {
		url  string
		want domain.MediaType
	}{
		{"https://cdn.example.com/clip.mp4", domain.MediaTypeVideo},
		{"https://cdn.example.com/clip.MOV", domain.MediaTypeVideo},
		{"https://cdn.example.com/clip.m4v?sig=abc", domain.MediaTypeVideo},
		{"https://cdn.example.com/clip.avi", domain.MediaTypeVideo},
		{"https://cdn.example.com/clip.webm", domain.MediaTypeVideo},
		{"https://cdn.example.com/fun.gif", domain.MediaTypeAnimatedImage},
		{"https://cdn.example.com/photo.jpg", domain.MediaTypeImage},
		{"https://cdn.example.com/photo.png?w=640", domain.MediaTypeImage},
		{"https://cdn.example.com/no-extension", domain.MediaTypeImage},
	}

	for _, tc := range cases {
		if got := ResolveMediaType("", tc.url); got != tc.want {
			t.Errorf("ResolveMediaType(%q) = %s, want %s", tc.url, got, tc.want)
		}
	}
}

func TestFullyViewed(t *testing.T) {
	group := domain.PublisherGroup{
		Items: []domain.StoryRecord{
			{ID: "s1", Viewed: true},
			{ID: "s2", Viewed: false},
		},
	}
	if group.FullyViewed() {
		t.Fatal("group with one unviewed item must not be fully viewed")
	}

	group.Items[1].Viewed = true
	if !group.FullyViewed() {
		t.Fatal("group with all items viewed must be fully viewed")
	}
}
