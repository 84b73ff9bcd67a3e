package metadata

import (
	"fmt"
	"sort"
	"strings"

	"bilisub/internal/services"
)

// ContentIdentifiers is the aid/cid pair the player endpoint is keyed on.
type ContentIdentifiers struct {
	AssetID   int64 `json:"aid"`
	ChannelID int64 `json:"cid"`
}

// Page describes one part of a multi-part video.
type Page struct {
	Number          int    `json:"page"`
	ChannelID       int64  `json:"cid"`
	Part            string `json:"part"`
	DurationSeconds int    `json:"duration"`
}

// VideoInfo is the subset of the view response the pipeline uses.
type VideoInfo struct {
	Code        string             `json:"code"`
	Title       string             `json:"title"`
	Identifiers ContentIdentifiers `json:"identifiers"`
	Pages       []Page             `json:"pages,omitempty"`
}

// PageIdentifiers returns the aid/cid pair for the 1-based page number.
// Page 1 (or 0) always maps to the identifiers of the first page.
func (v VideoInfo) PageIdentifiers(number int) (ContentIdentifiers, error) {
	if number <= 1 {
		return v.Identifiers, nil
	}
	for _, page := range v.Pages {
		if page.Number == number {
			return ContentIdentifiers{AssetID: v.Identifiers.AssetID, ChannelID: page.ChannelID}, nil
		}
	}
	return ContentIdentifiers{}, services.Wrap(services.ErrNotFound, stageMetadata, "page",
		fmt.Sprintf("%s has no page %d (%d pages)", v.Code, number, len(v.Pages)), nil)
}

// SubtitleTrack is one subtitle track offered by the player endpoint.
type SubtitleTrack struct {
	LanguageKey string `json:"lan"`
	Label       string `json:"label,omitempty"`
	CueListURL  string `json:"url"`
}

// LanguageFilter is an allow-list of exact, case-sensitive language keys.
// A nil filter keeps every track.
type LanguageFilter map[string]struct{}

// ParseLanguageFilter builds a filter from a comma-separated list. Blank input
// yields nil.
func ParseLanguageFilter(value string) LanguageFilter {
	return NewLanguageFilter(strings.Split(value, ",")...)
}

// NewLanguageFilter builds a filter from explicit keys, ignoring blanks.
func NewLanguageFilter(keys ...string) LanguageFilter {
	filter := LanguageFilter{}
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			filter[key] = struct{}{}
		}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// Allows reports whether key passes the filter.
func (f LanguageFilter) Allows(key string) bool {
	if f == nil {
		return true
	}
	_, ok := f[key]
	return ok
}

// Apply returns the tracks the filter keeps, preserving order.
func (f LanguageFilter) Apply(tracks []SubtitleTrack) []SubtitleTrack {
	if f == nil {
		return tracks
	}
	kept := make([]SubtitleTrack, 0, len(tracks))
	for _, track := range tracks {
		if f.Allows(track.LanguageKey) {
			kept = append(kept, track)
		}
	}
	return kept
}

// Keys returns the filter's keys in sorted order.
func (f LanguageFilter) Keys() []string {
	keys := make([]string, 0, len(f))
	for key := range f {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Language buckets used by SelectByPriority.
const (
	BucketEnglish = "en"
	BucketChinese = "zh"
	BucketOther   = "other"
)

// DefaultPriority is the bucket order used when a caller asks for priority
// selection without naming an order.
var DefaultPriority = []string{BucketEnglish, BucketChinese, BucketOther}

// Bucket classifies a language key as en, zh, or other. Machine-generated
// variants (ai-en, ai-zh) count toward their language.
func Bucket(key string) string {
	lower := strings.ToLower(strings.TrimSpace(key))
	switch {
	case lower == "en", strings.HasPrefix(lower, "en-"), strings.HasPrefix(lower, "ai-en"):
		return BucketEnglish
	case lower == "zh", strings.HasPrefix(lower, "zh-"), strings.HasPrefix(lower, "ai-zh"):
		return BucketChinese
	default:
		return BucketOther
	}
}

// SelectByPriority returns every track in the first non-empty bucket named by
// priority, along with that bucket. No match yields nil and "".
func SelectByPriority(tracks []SubtitleTrack, priority []string) ([]SubtitleTrack, string) {
	buckets := map[string][]SubtitleTrack{}
	for _, track := range tracks {
		bucket := Bucket(track.LanguageKey)
		buckets[bucket] = append(buckets[bucket], track)
	}
	for _, bucket := range priority {
		bucket = strings.ToLower(strings.TrimSpace(bucket))
		if selected := buckets[bucket]; len(selected) > 0 {
			return selected, bucket
		}
	}
	return nil, ""
}
