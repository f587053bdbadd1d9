package catalog

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/samber/lo"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".avi":  {},
	".webm": {},
}

// Build groups raw feed records by publisher, resolves media types, drops
// records without a usable media URL, sorts each group by creation time and
// drops groups left empty. Pure and deterministic; safe to recompute whenever
// the feed changes.
func Build(raw []domain.RawStoryRecord) []domain.PublisherGroup {
	playable := lo.Filter(raw, func(r domain.RawStoryRecord, _ int) bool {
		return strings.TrimSpace(r.MediaURL) != ""
	})

	byPublisher := lo.GroupBy(playable, func(r domain.RawStoryRecord) string {
		return r.PublisherID
	})

	// Group order follows first appearance in the feed, not map order.
	publisherIDs := make([]string, 0, len(byPublisher))
	seen := make(map[string]struct{}, len(byPublisher))
	for _, r := range playable {
		if _, ok := seen[r.PublisherID]; ok {
			continue
		}
		seen[r.PublisherID] = struct{}{}
		publisherIDs = append(publisherIDs, r.PublisherID)
	}

	groups := make([]domain.PublisherGroup, 0, len(publisherIDs))
	for _, publisherID := range publisherIDs {
		records := byPublisher[publisherID]
		if len(records) == 0 {
			continue
		}

		items := lo.Map(records, func(r domain.RawStoryRecord, _ int) domain.StoryRecord {
			return domain.StoryRecord{
				ID:          r.ID,
				PublisherID: r.PublisherID,
				MediaURL:    r.MediaURL,
				MediaType:   ResolveMediaType(r.MediaType, r.MediaURL),
				Caption:     r.Caption,
				CreatedAt:   r.CreatedAt,
			}
		})

		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})

		groups = append(groups, domain.PublisherGroup{
			PublisherID:        publisherID,
			PublisherName:      records[0].PublisherName,
			PublisherAvatarURL: records[0].PublisherAvatarURL,
			Items:              items,
		})
	}

	return groups
}

// ResolveMediaType returns the explicit tag when present, otherwise infers the
// type from the URL's file extension. Animated images are timed like video
// downstream, everything unrecognized plays as a static image.
func ResolveMediaType(explicit string, mediaURL string) domain.MediaType {
	switch domain.MediaType(explicit) {
	case domain.MediaTypeImage, domain.MediaTypeAnimatedImage, domain.MediaTypeVideo:
		return domain.MediaType(explicit)
	}

	ext := strings.ToLower(path.Ext(urlPath(mediaURL)))
	if _, ok := videoExtensions[ext]; ok {
		return domain.MediaTypeVideo
	}
	if ext == ".gif" {
		return domain.MediaTypeAnimatedImage
	}
	return domain.MediaTypeImage
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
