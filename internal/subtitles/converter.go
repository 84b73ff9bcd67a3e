package subtitles

import (
	"context"
	"log/slog"
	"strings"

	"bilisub/internal/fetch"
	"bilisub/internal/logging"
	"bilisub/internal/metadata"
	"bilisub/internal/services"
)

// Converter downloads cue lists and renders them as SRT documents.
type Converter struct {
	getter fetch.Getter
	logger *slog.Logger
}

// NewConverter constructs a Converter around getter.
func NewConverter(getter fetch.Getter, logger *slog.Logger) *Converter {
	return &Converter{getter: getter, logger: logging.NewComponentLogger(logger, "converter")}
}

// Convert fetches track's cue list and converts it.
func (c *Converter) Convert(ctx context.Context, track metadata.SubtitleTrack) (Document, error) {
	if c.getter == nil {
		return Document{}, services.Wrap(services.ErrConfiguration, stageConvert, "fetch", "no http getter configured", nil)
	}
	if strings.TrimSpace(track.CueListURL) == "" {
		return Document{}, services.Wrap(services.ErrUpstream, stageConvert, "fetch",
			"track "+track.LanguageKey+" has no cue list url", nil)
	}
	data, err := c.getter.GetBytes(ctx, track.CueListURL)
	if err != nil {
		return Document{}, err
	}
	return c.ConvertBytes(ctx, track.LanguageKey, data)
}

// ConvertBytes converts an already downloaded cue-list payload.
func (c *Converter) ConvertBytes(ctx context.Context, language string, data []byte) (Document, error) {
	cues, repairs, err := ParseCues(data)
	if err != nil {
		return Document{}, err
	}
	logger := logging.WithContext(ctx, c.logger).With(logging.String(logging.FieldLanguage, language))
	for _, repair := range repairs {
		logger.Debug("cue repaired", logging.Int("cue", repair.Position), logging.String("reason", repair.Reason))
	}
	if len(repairs) > 0 {
		logging.WarnWithContext(logger, "cue timings repaired", "cue_repaired",
			logging.Int("repaired", len(repairs)),
			logging.Int("cues", len(cues)),
			logging.String(logging.FieldErrorHint, "upstream cue list has inverted or negative timings"),
			logging.String(logging.FieldImpact, "affected cues display for at least 1ms from their start"),
		)
	}
	doc := BuildDocument(language, cues)
	if issues := doc.Validate(); len(issues) > 0 {
		logging.WarnWithContext(logger, "subtitle document has issues", "subtitle_validation",
			logging.String("issues", strings.Join(issues, "; ")),
			logging.String(logging.FieldErrorHint, "inspect the upstream cue list"),
			logging.String(logging.FieldImpact, "file is written as delivered"),
		)
	}
	logger.Debug("cue list converted",
		logging.Int("blocks", len(doc.Blocks)),
		logging.Float64("duration_seconds", doc.Duration()),
	)
	return doc, nil
}
