package domain

import "time"

type MediaType string

const (
	MediaTypeImage         MediaType = "image"
	MediaTypeAnimatedImage MediaType = "animated_image"
	MediaTypeVideo         MediaType = "video"
)

// RawStoryRecord is the shape delivered by the upstream feed. MediaType may be
// empty, in which case the catalog builder infers it from the URL.
type RawStoryRecord struct {
	ID                 string    `json:"id"`
	PublisherID        string    `json:"publisher_id"`
	PublisherName      string    `json:"publisher_name"`
	PublisherAvatarURL string    `json:"publisher_avatar_url"`
	MediaURL           string    `json:"media_url"`
	MediaType          string    `json:"media_type"`
	Caption            string    `json:"caption,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// StoryRecord is one playable unit. Immutable once built into a catalog,
// except for the Viewed overlay which is seeded before a session opens.
type StoryRecord struct {
	ID          string    `json:"id"`
	PublisherID string    `json:"publisher_id"`
	MediaURL    string    `json:"media_url"`
	MediaType   MediaType `json:"media_type"`
	Caption     string    `json:"caption,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Viewed      bool      `json:"viewed"`
}

// PublisherGroup is one publisher's stories, sorted ascending by CreatedAt.
type PublisherGroup struct {
	PublisherID        string        `json:"publisher_id"`
	PublisherName      string        `json:"publisher_name"`
	PublisherAvatarURL string        `json:"publisher_avatar_url"`
	Items              []StoryRecord `json:"items"`
}

// FullyViewed reports whether every item in the group has been viewed.
func (g PublisherGroup) FullyViewed() bool {
	for _, item := range g.Items {
		if !item.Viewed {
			return false
		}
	}
	return true
}
