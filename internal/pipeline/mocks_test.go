package pipeline_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bilisub/internal/history"
	"bilisub/internal/metadata"
	"bilisub/internal/subtitles"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, reference string) (string, error) {
	args := m.Called(ctx, reference)
	return args.String(0), args.Error(1)
}

type mockMetadata struct {
	mock.Mock
}

func (m *mockMetadata) FetchVideo(ctx context.Context, code string) (metadata.VideoInfo, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(metadata.VideoInfo), args.Error(1)
}

func (m *mockMetadata) FetchTracks(ctx context.Context, ids metadata.ContentIdentifiers, filter metadata.LanguageFilter) ([]metadata.SubtitleTrack, error) {
	args := m.Called(ctx, ids, filter)
	return args.Get(0).([]metadata.SubtitleTrack), args.Error(1)
}

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) Convert(ctx context.Context, track metadata.SubtitleTrack) (subtitles.Document, error) {
	args := m.Called(ctx, track)
	return args.Get(0).(subtitles.Document), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, entry history.Entry) (history.Entry, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(history.Entry), args.Error(1)
}
