package pipeline

import (
	"context"

	"bilisub/internal/history"
	"bilisub/internal/metadata"
	"bilisub/internal/subtitles"
)

// Resolver turns a user reference into a canonical video code.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (string, error)
}

// MetadataSource looks up video details and subtitle tracks.
type MetadataSource interface {
	FetchVideo(ctx context.Context, code string) (metadata.VideoInfo, error)
	FetchTracks(ctx context.Context, ids metadata.ContentIdentifiers, filter metadata.LanguageFilter) ([]metadata.SubtitleTrack, error)
}

// TrackConverter downloads and converts one track.
type TrackConverter interface {
	Convert(ctx context.Context, track metadata.SubtitleTrack) (subtitles.Document, error)
}

// Recorder persists written files. Optional.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// State is a step of a pipeline run.
type State string

const (
	StateIdle             State = "idle"
	StateResolved         State = "resolved"
	StateIdentifiersKnown State = "identifiers_known"
	StateTracksKnown      State = "tracks_known"
	StateConverting       State = "converting"
	StateDone             State = "done"
)

// Outcome summarises what a run produced.
type Outcome string

const (
	// OutcomeReady means tracks were selected but nothing was written yet.
	OutcomeReady Outcome = "ready"
	// OutcomeWritten means at least one file was written.
	OutcomeWritten Outcome = "written"
	// OutcomeNoSubtitles means the video offers no subtitle tracks.
	OutcomeNoSubtitles Outcome = "no_subtitles"
	// OutcomeFilteredOut means the language allow-list removed every track.
	OutcomeFilteredOut Outcome = "filtered_out"
	// OutcomeNoPriorityMatch means no track fell into a requested priority bucket.
	OutcomeNoPriorityMatch Outcome = "no_priority_match"
	// OutcomeFailed means every selected track failed.
	OutcomeFailed Outcome = "failed"
)

// Options configures a single run.
type Options struct {
	Input     string
	OutDir    string
	Languages metadata.LanguageFilter
	// Priority enables bucket selection when no Languages filter is set.
	Priority []string
	Page     int
	Format   string

	// SubtitleURL skips metadata lookup and converts this cue list directly.
	SubtitleURL string
	LanguageKey string
}

// Plan is everything known before conversion starts.
type Plan struct {
	RequestID   string                      `json:"request_id"`
	Code        string                      `json:"video"`
	Title       string                      `json:"title,omitempty"`
	Identifiers metadata.ContentIdentifiers `json:"identifiers"`
	Available   []metadata.SubtitleTrack    `json:"available"`
	Tracks      []metadata.SubtitleTrack    `json:"tracks"`
	Bucket      string                      `json:"bucket,omitempty"`
	Outcome     Outcome                     `json:"outcome"`
	States      []State                     `json:"states"`
}

// State returns the most recent state reached.
func (p Plan) State() State {
	if len(p.States) == 0 {
		return StateIdle
	}
	return p.States[len(p.States)-1]
}

func (p *Plan) advance(state State) {
	p.States = append(p.States, state)
}

// Output describes one written file.
type Output struct {
	Track    metadata.SubtitleTrack `json:"track"`
	Path     string                 `json:"path"`
	Blocks   int                    `json:"blocks"`
	Document subtitles.Document     `json:"-"`
}

// Failure describes one track that could not be written.
type Failure struct {
	Track   metadata.SubtitleTrack `json:"track"`
	Message string                 `json:"error"`
	Err     error                  `json:"-"`
}

// Result is the outcome of Run.
type Result struct {
	Plan
	Outputs  []Output  `json:"outputs"`
	Failures []Failure `json:"failures,omitempty"`
}
