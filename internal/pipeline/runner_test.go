package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bilisub/internal/history"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
	"bilisub/internal/services"
	"bilisub/internal/subtitles"
)

var (
	sampleVideo = metadata.VideoInfo{
		Code:        "BV1xxxxxxx",
		Title:       "Sample",
		Identifiers: metadata.ContentIdentifiers{AssetID: 10, ChannelID: 20},
		Pages: []metadata.Page{
			{Number: 1, ChannelID: 20},
			{Number: 2, ChannelID: 21},
		},
	}
	trackEN   = metadata.SubtitleTrack{LanguageKey: "en", CueListURL: "https://cdn/en.json"}
	trackENUS = metadata.SubtitleTrack{LanguageKey: "en-US", CueListURL: "https://cdn/en-us.json"}
	trackZH   = metadata.SubtitleTrack{LanguageKey: "zh-CN", CueListURL: "https://cdn/zh.json"}
)

type fixture struct {
	resolver  *mockResolver
	metadata  *mockMetadata
	converter *mockConverter
	runner    *pipeline.Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resolver:  &mockResolver{},
		metadata:  &mockMetadata{},
		converter: &mockConverter{},
	}
	f.runner = pipeline.NewRunner(pipeline.Deps{
		Resolver:  f.resolver,
		Metadata:  f.metadata,
		Converter: f.converter,
	})
	t.Cleanup(func() {
		f.resolver.AssertExpectations(t)
		f.metadata.AssertExpectations(t)
		f.converter.AssertExpectations(t)
	})
	return f
}

func (f *fixture) expectTracks(tracks ...metadata.SubtitleTrack) {
	f.resolver.On("Resolve", mock.Anything, "BV1xxxxxxx").Return("BV1xxxxxxx", nil)
	f.metadata.On("FetchVideo", mock.Anything, "BV1xxxxxxx").Return(sampleVideo, nil)
	f.metadata.On("FetchTracks", mock.Anything, sampleVideo.Identifiers, metadata.LanguageFilter(nil)).
		Return(tracks, nil)
}

func document(language string, cues ...subtitles.Cue) subtitles.Document {
	return subtitles.BuildDocument(language, cues)
}

func TestRunZeroTracksSucceeds(t *testing.T) {
	f := newFixture(t)
	f.expectTracks()
	dir := t.TempDir()

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: dir})
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeNoSubtitles, result.Outcome)
	assert.Empty(t, result.Outputs)
	assert.Equal(t, pipeline.StateDone, result.State())
	assert.NotEmpty(t, result.RequestID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFilteredOutSucceeds(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackENUS, trackZH)

	result, err := f.runner.Run(context.Background(), pipeline.Options{
		Input:     "BV1xxxxxxx",
		OutDir:    t.TempDir(),
		Languages: metadata.NewLanguageFilter("en"),
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeFilteredOut, result.Outcome)
	assert.Len(t, result.Available, 2)
	assert.Empty(t, result.Tracks)
}

func TestRunWritesEachTrackAndWalksStates(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackEN, trackZH)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "hi"}), nil)
	f.converter.On("Convert", mock.Anything, trackZH).
		Return(document("zh-CN", subtitles.Cue{Start: 0, End: 1, Text: "你好"}), nil)
	dir := filepath.Join(t.TempDir(), "out")

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: dir})
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeWritten, result.Outcome)
	assert.Equal(t, []pipeline.State{
		pipeline.StateIdle,
		pipeline.StateResolved,
		pipeline.StateIdentifiersKnown,
		pipeline.StateTracksKnown,
		pipeline.StateConverting,
		pipeline.StateDone,
	}, result.States)
	require.Len(t, result.Outputs, 2)

	data, err := os.ReadFile(filepath.Join(dir, "BV1xxxxxxx.en.srt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\nhi\n\n", string(data))
	_, err = os.Stat(filepath.Join(dir, "BV1xxxxxxx.zh-CN.srt"))
	require.NoError(t, err)
}

func TestRunExactFilterKeepsOnlyMatchingKeys(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackEN, trackENUS)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "hi"}), nil)

	result, err := f.runner.Run(context.Background(), pipeline.Options{
		Input:     "BV1xxxxxxx",
		OutDir:    t.TempDir(),
		Languages: metadata.ParseLanguageFilter("en"),
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, "en", result.Outputs[0].Track.LanguageKey)
}

func TestRunPrioritySelectsFirstBucket(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackZH, trackEN, trackENUS)
	f.converter.On("Convert", mock.Anything, trackEN).Return(document("en"), nil)
	f.converter.On("Convert", mock.Anything, trackENUS).Return(document("en-US"), nil)

	result, err := f.runner.Run(context.Background(), pipeline.Options{
		Input:    "BV1xxxxxxx",
		OutDir:   t.TempDir(),
		Priority: []string{"en", "zh"},
	})
	require.NoError(t, err)
	assert.Equal(t, "en", result.Bucket)
	assert.Len(t, result.Outputs, 2)
}

func TestRunDuplicateKeysGetNumberedNames(t *testing.T) {
	f := newFixture(t)
	second := metadata.SubtitleTrack{LanguageKey: "en", CueListURL: "https://cdn/en2.json"}
	f.expectTracks(trackEN, second)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "one"}), nil)
	f.converter.On("Convert", mock.Anything, second).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "two"}), nil)
	dir := t.TempDir()

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: dir})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 2)
	assert.Equal(t, filepath.Join(dir, "BV1xxxxxxx.en.srt"), result.Outputs[0].Path)
	assert.Equal(t, filepath.Join(dir, "BV1xxxxxxx.en.2.srt"), result.Outputs[1].Path)

	data, err := os.ReadFile(result.Outputs[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "two")
}

func TestRunNumberedNamesNeverCollideWithRealKeys(t *testing.T) {
	f := newFixture(t)
	second := metadata.SubtitleTrack{LanguageKey: "en", CueListURL: "https://cdn/en2.json"}
	dotted := metadata.SubtitleTrack{LanguageKey: "en.2", CueListURL: "https://cdn/en-dot-2.json"}
	f.expectTracks(trackEN, second, dotted)
	for _, track := range []metadata.SubtitleTrack{trackEN, second, dotted} {
		f.converter.On("Convert", mock.Anything, track).
			Return(document(track.LanguageKey, subtitles.Cue{Start: 0, End: 1, Text: track.CueListURL}), nil)
	}
	dir := t.TempDir()

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: dir})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 3)
	seen := map[string]bool{}
	for _, output := range result.Outputs {
		assert.False(t, seen[output.Path], "path %s written twice", output.Path)
		seen[output.Path] = true
		data, err := os.ReadFile(output.Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), output.Track.CueListURL)
	}
	assert.Equal(t, filepath.Join(dir, "BV1xxxxxxx.en.2.2.srt"), result.Outputs[2].Path)
}

func TestRunWriteFailureIsNotBlamedOnUpstream(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackEN)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "one"}), nil)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: blocker})
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrUpstream)
	assert.Equal(t, 1, services.ExitCode(err))
	assert.Equal(t, pipeline.OutcomeFailed, result.Outcome)
}

func TestRunTrackFailureDoesNotAbortSiblings(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackEN, trackZH)
	convErr := services.Wrap(services.ErrConversion, "convert", "parse", "bad timestamp", nil)
	f.converter.On("Convert", mock.Anything, trackEN).Return(subtitles.Document{}, convErr)
	f.converter.On("Convert", mock.Anything, trackZH).
		Return(document("zh-CN", subtitles.Cue{Start: 0, End: 1, Text: "你好"}), nil)

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "en", result.Failures[0].Track.LanguageKey)
	assert.ErrorIs(t, result.Failures[0].Err, services.ErrConversion)
}

func TestRunAllTracksFailingReturnsJoinedError(t *testing.T) {
	f := newFixture(t)
	f.expectTracks(trackEN, trackZH)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(subtitles.Document{}, services.Wrap(services.ErrConversion, "convert", "parse", "bad", nil))
	f.converter.On("Convert", mock.Anything, trackZH).
		Return(subtitles.Document{}, services.Wrap(services.ErrUpstream, "convert", "fetch", "503", nil))

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConversion)
	assert.ErrorIs(t, err, services.ErrUpstream)
	assert.Equal(t, pipeline.OutcomeFailed, result.Outcome)
	assert.Len(t, result.Failures, 2)
}

func TestRunPropagatesPlanErrors(t *testing.T) {
	f := newFixture(t)
	notFound := services.Wrap(services.ErrNotFound, "metadata", "view", "video missing", nil)
	f.resolver.On("Resolve", mock.Anything, "BV1gone").Return("BV1gone", nil)
	f.metadata.On("FetchVideo", mock.Anything, "BV1gone").Return(metadata.VideoInfo{}, notFound)

	result, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1gone", OutDir: t.TempDir()})
	require.ErrorIs(t, err, services.ErrNotFound)
	assert.Equal(t, 3, services.ExitCode(err))
	assert.Equal(t, pipeline.StateResolved, result.State())
}

func TestRunRejectsUnknownFormatBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", Format: "vtt"})
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestRunSelectsRequestedPage(t *testing.T) {
	f := newFixture(t)
	pageTwo := metadata.ContentIdentifiers{AssetID: 10, ChannelID: 21}
	f.resolver.On("Resolve", mock.Anything, "BV1xxxxxxx").Return("BV1xxxxxxx", nil)
	f.metadata.On("FetchVideo", mock.Anything, "BV1xxxxxxx").Return(sampleVideo, nil)
	f.metadata.On("FetchTracks", mock.Anything, pageTwo, metadata.LanguageFilter(nil)).
		Return([]metadata.SubtitleTrack{}, nil)

	plan, err := f.runner.Plan(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, pageTwo, plan.Identifiers)
	assert.Equal(t, pipeline.OutcomeNoSubtitles, plan.Outcome)
}

func TestRunDirectSubtitleURLSkipsMetadata(t *testing.T) {
	f := newFixture(t)
	direct := metadata.SubtitleTrack{LanguageKey: "und", CueListURL: "https://cdn/ai.json"}
	f.resolver.On("Resolve", mock.Anything, "BV1xxxxxxx").Return("BV1xxxxxxx", nil)
	f.converter.On("Convert", mock.Anything, direct).
		Return(document("und", subtitles.Cue{Start: 0, End: 2, Text: "line"}), nil)
	dir := t.TempDir()

	result, err := f.runner.Run(context.Background(), pipeline.Options{
		Input:       "BV1xxxxxxx",
		OutDir:      dir,
		Format:      "txt",
		SubtitleURL: "https://cdn/ai.json",
	})
	require.NoError(t, err)
	require.Len(t, result.Outputs, 1)
	data, err := os.ReadFile(filepath.Join(dir, "BV1xxxxxxx.und.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}

func TestRunRecordsHistory(t *testing.T) {
	f := newFixture(t)
	recorder := &mockRecorder{}
	runner := pipeline.NewRunner(pipeline.Deps{
		Resolver:  f.resolver,
		Metadata:  f.metadata,
		Converter: f.converter,
		Recorder:  recorder,
	})
	f.expectTracks(trackEN)
	f.converter.On("Convert", mock.Anything, trackEN).
		Return(document("en", subtitles.Cue{Start: 0, End: 1, Text: "hi"}), nil)
	recorder.On("Record", mock.Anything, mock.MatchedBy(func(entry history.Entry) bool {
		return entry.VideoCode == "BV1xxxxxxx" && entry.LanguageKey == "en" &&
			entry.Format == "srt" && entry.Blocks == 1 && entry.Title == "Sample" &&
			filepath.IsAbs(entry.Path) && entry.RequestID != ""
	})).Return(history.Entry{}, errors.New("disk full"))

	result, err := runner.Run(context.Background(), pipeline.Options{Input: "BV1xxxxxxx", OutDir: t.TempDir()})
	require.NoError(t, err, "history failures must not fail the run")
	assert.Len(t, result.Outputs, 1)
	recorder.AssertExpectations(t)
}

func TestRunKeepsCallerRequestID(t *testing.T) {
	f := newFixture(t)
	f.expectTracks()
	ctx := services.WithRequestID(context.Background(), "req-123")

	result, err := f.runner.Run(ctx, pipeline.Options{Input: "BV1xxxxxxx", OutDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "req-123", result.RequestID)
}

func TestFileNamesMatchRunNaming(t *testing.T) {
	tracks := []metadata.SubtitleTrack{
		{LanguageKey: "en"},
		{LanguageKey: "en"},
		{LanguageKey: ""},
		{LanguageKey: "a/b"},
	}
	assert.Equal(t, []string{"BV1.en.srt", "BV1.en.2.srt", "BV1.und.srt", "BV1.a-b.srt"},
		pipeline.FileNames("BV1", tracks, ""))
	assert.Equal(t, []string{"BV1.zh-CN.txt"},
		pipeline.FileNames("BV1", []metadata.SubtitleTrack{{LanguageKey: "zh-CN"}}, "txt"))
}
