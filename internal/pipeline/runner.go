package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bilisub/internal/fileutil"
	"bilisub/internal/history"
	"bilisub/internal/logging"
	"bilisub/internal/metadata"
	"bilisub/internal/services"
	"bilisub/internal/subtitles"
	"bilisub/internal/textutil"
)

const (
	stagePlan  = "plan"
	stageWrite = "write"

	// UndeterminedLanguage names tracks without a language key.
	UndeterminedLanguage = "und"
)

// Deps holds the collaborators of a Runner.
type Deps struct {
	Resolver  Resolver
	Metadata  MetadataSource
	Converter TrackConverter
	Recorder  Recorder
	Logger    *slog.Logger
}

// Runner executes pipeline runs. It holds no per-run state and may be reused.
type Runner struct {
	resolver  Resolver
	metadata  MetadataSource
	converter TrackConverter
	recorder  Recorder
	logger    *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(deps Deps) *Runner {
	return &Runner{
		resolver:  deps.Resolver,
		metadata:  deps.Metadata,
		converter: deps.Converter,
		recorder:  deps.Recorder,
		logger:    logging.NewComponentLogger(deps.Logger, "pipeline"),
	}
}

// Plan resolves the reference and selects the tracks a run would write.
func (r *Runner) Plan(ctx context.Context, opts Options) (Plan, error) {
	ctx, plan := r.begin(ctx)
	err := r.plan(ctx, opts, &plan)
	return plan, err
}

// Run plans, then converts and writes every selected track under opts.OutDir.
// A failed track does not stop the others; Run only returns an error when
// planning fails or every selected track failed.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	ctx, plan := r.begin(ctx)
	result := Result{Plan: plan}

	format, err := normalizeFormat(opts.Format)
	if err != nil {
		return result, err
	}
	if err := r.plan(ctx, opts, &result.Plan); err != nil {
		return result, err
	}
	ctx = services.WithVideo(ctx, result.Code)
	logger := logging.WithContext(ctx, r.logger)

	if len(result.Tracks) == 0 {
		result.advance(StateDone)
		logger.Info("no subtitle files written",
			logging.String(logging.FieldEventType, "run_empty"),
			logging.String("outcome", string(result.Outcome)),
			logging.Int("available", len(result.Available)),
		)
		return result, nil
	}

	result.advance(StateConverting)
	ctx = services.WithStage(ctx, string(StateConverting))
	outDir := strings.TrimSpace(opts.OutDir)
	if outDir == "" {
		outDir = "."
	}
	names := newNameAllocator(result.Code, format)
	var errs []error
	for _, track := range result.Tracks {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled: %w", err)
		}
		path := filepath.Join(outDir, names.next(track.LanguageKey))
		output, err := r.writeTrack(ctx, track, path, format)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Track: track, Message: err.Error(), Err: err})
			errs = append(errs, err)
			logging.WarnWithContext(logger, "subtitle track failed", "track_failed",
				logging.String(logging.FieldLanguage, track.LanguageKey),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "other tracks continue"),
			)
			continue
		}
		result.Outputs = append(result.Outputs, output)
		r.record(ctx, result.Plan, output, format)
	}

	result.advance(StateDone)
	if len(result.Outputs) == 0 {
		result.Outcome = OutcomeFailed
		return result, errors.Join(errs...)
	}
	result.Outcome = OutcomeWritten
	logger.Info("subtitle run complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("written", len(result.Outputs)),
		logging.Int("failed", len(result.Failures)),
	)
	return result, nil
}

// ConvertTrack converts a single track without writing it.
func (r *Runner) ConvertTrack(ctx context.Context, track metadata.SubtitleTrack) (subtitles.Document, error) {
	if r.converter == nil {
		return subtitles.Document{}, services.Wrap(services.ErrConfiguration, stageWrite, "convert", "no converter configured", nil)
	}
	return r.converter.Convert(ctx, track)
}

func (r *Runner) begin(ctx context.Context) (context.Context, Plan) {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok || requestID == "" {
		requestID = uuid.NewString()
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx, Plan{RequestID: requestID, States: []State{StateIdle}}
}

func (r *Runner) plan(ctx context.Context, opts Options, plan *Plan) error {
	if r.resolver == nil {
		return services.Wrap(services.ErrConfiguration, stagePlan, "resolve", "no resolver configured", nil)
	}
	code, err := r.resolver.Resolve(services.WithStage(ctx, string(StateResolved)), opts.Input)
	if err != nil {
		return err
	}
	plan.Code = code
	plan.advance(StateResolved)
	ctx = services.WithVideo(ctx, code)
	logger := logging.WithContext(ctx, r.logger)

	if strings.TrimSpace(opts.SubtitleURL) != "" {
		key := strings.TrimSpace(opts.LanguageKey)
		if key == "" {
			key = UndeterminedLanguage
		}
		track := metadata.SubtitleTrack{LanguageKey: key, CueListURL: strings.TrimSpace(opts.SubtitleURL)}
		plan.Available = []metadata.SubtitleTrack{track}
		plan.Tracks = []metadata.SubtitleTrack{track}
		plan.Outcome = OutcomeReady
		plan.advance(StateTracksKnown)
		logger.Info("using direct subtitle url", logging.String(logging.FieldLanguage, key))
		return nil
	}

	if r.metadata == nil {
		return services.Wrap(services.ErrConfiguration, stagePlan, "metadata", "no metadata source configured", nil)
	}
	ctx = services.WithStage(ctx, string(StateIdentifiersKnown))
	video, err := r.metadata.FetchVideo(ctx, code)
	if err != nil {
		return err
	}
	plan.Title = video.Title
	ids, err := video.PageIdentifiers(opts.Page)
	if err != nil {
		return err
	}
	plan.Identifiers = ids
	plan.advance(StateIdentifiersKnown)

	available, err := r.metadata.FetchTracks(services.WithStage(ctx, string(StateTracksKnown)), ids, nil)
	if err != nil {
		return err
	}
	plan.Available = available
	plan.advance(StateTracksKnown)

	switch {
	case len(available) == 0:
		plan.Tracks = []metadata.SubtitleTrack{}
		plan.Outcome = OutcomeNoSubtitles
	case opts.Languages != nil:
		plan.Tracks = opts.Languages.Apply(available)
		plan.Outcome = OutcomeReady
		if len(plan.Tracks) == 0 {
			plan.Outcome = OutcomeFilteredOut
		}
	case len(opts.Priority) > 0:
		selected, bucket := metadata.SelectByPriority(available, opts.Priority)
		plan.Tracks = selected
		plan.Bucket = bucket
		plan.Outcome = OutcomeReady
		if len(selected) == 0 {
			plan.Tracks = []metadata.SubtitleTrack{}
			plan.Outcome = OutcomeNoPriorityMatch
		}
	default:
		plan.Tracks = available
		plan.Outcome = OutcomeReady
	}

	logger.Info("subtitle tracks selected",
		logging.String(logging.FieldEventType, "tracks_selected"),
		logging.String("title", textutil.Truncate(video.Title, 80)),
		logging.Int("available", len(available)),
		logging.Int("selected", len(plan.Tracks)),
		logging.String("outcome", string(plan.Outcome)),
	)
	return nil
}

func (r *Runner) writeTrack(ctx context.Context, track metadata.SubtitleTrack, path, format string) (Output, error) {
	doc, err := r.ConvertTrack(services.WithStage(ctx, string(StateConverting)), track)
	if err != nil {
		return Output{}, err
	}
	rendered, err := doc.Render(format)
	if err != nil {
		return Output{}, services.Wrap(services.ErrConversion, stageWrite, "render", track.LanguageKey, err)
	}
	if err := fileutil.WriteFileLocked(ctx, path, []byte(rendered), 0o644); err != nil {
		return Output{}, fmt.Errorf("write %s: %w", path, err)
	}
	logging.WithContext(ctx, r.logger).Info("subtitle file written",
		logging.String(logging.FieldLanguage, track.LanguageKey),
		logging.String("path", path),
		logging.Int("blocks", len(doc.Blocks)),
	)
	return Output{Track: track, Path: path, Blocks: len(doc.Blocks), Document: doc}, nil
}

func (r *Runner) record(ctx context.Context, plan Plan, output Output, format string) {
	if r.recorder == nil {
		return
	}
	path := output.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	_, err := r.recorder.Record(ctx, history.Entry{
		RequestID:   plan.RequestID,
		VideoCode:   plan.Code,
		Title:       plan.Title,
		LanguageKey: output.Track.LanguageKey,
		Format:      format,
		Path:        path,
		Blocks:      output.Blocks,
	})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history record failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "file was written but is missing from history"),
		)
	}
}

func normalizeFormat(format string) (string, error) {
	switch value := strings.ToLower(strings.TrimSpace(format)); value {
	case "":
		return subtitles.FormatSRT, nil
	case subtitles.FormatSRT, subtitles.FormatText:
		return value, nil
	default:
		return "", services.Wrap(services.ErrValidation, stagePlan, "format",
			fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

// nameAllocator hands out {code}.{key}.{ext} names. A name already handed
// out is never reused: repeats of a key are numbered from 2 upward, skipping
// numbers another key's name already took.
type nameAllocator struct {
	code  string
	ext   string
	taken map[string]struct{}
}

func newNameAllocator(code, ext string) *nameAllocator {
	return &nameAllocator{code: code, ext: ext, taken: map[string]struct{}{}}
}

func (a *nameAllocator) next(languageKey string) string {
	key := textutil.SanitizeFileName(languageKey)
	if key == "" {
		key = UndeterminedLanguage
	}
	name := fmt.Sprintf("%s.%s.%s", a.code, key, a.ext)
	for n := 2; ; n++ {
		if _, used := a.taken[name]; !used {
			break
		}
		name = fmt.Sprintf("%s.%s.%d.%s", a.code, key, n, a.ext)
	}
	a.taken[name] = struct{}{}
	return name
}

// FileNames returns the names Run would write tracks of code under, in order.
func FileNames(code string, tracks []metadata.SubtitleTrack, format string) []string {
	ext, err := normalizeFormat(format)
	if err != nil {
		ext = subtitles.FormatSRT
	}
	names := newNameAllocator(code, ext)
	out := make([]string, len(tracks))
	for i, track := range tracks {
		out[i] = names.next(track.LanguageKey)
	}
	return out
}
