package domain

import "time"

// ViewRecord is the outcome of watching one item once. Keyed by
// (StoryID, ViewerID); re-recording overwrites, never duplicates.
type ViewRecord struct {
	StoryID        string    `json:"story_id"`
	ViewerID       string    `json:"viewer_id"`
	WatchedSeconds float64   `json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	Timestamp      time.Time `json:"timestamp"`
}

// ViewStatus is the merged answer to "has this viewer seen this story".
type ViewStatus struct {
	HasViewed   bool `json:"has_viewed"`
	IsCompleted bool `json:"is_completed"`
}
