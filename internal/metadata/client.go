package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"bilisub/internal/fetch"
	"bilisub/internal/logging"
	"bilisub/internal/services"
)

const stageMetadata = "metadata"

// Envelope codes the view endpoint uses for videos that do not exist or are
// not visible.
var notFoundCodes = map[int]struct{}{
	-404:  {},
	62002: {},
	62004: {},
}

// Config describes the metadata client.
type Config struct {
	ViewURL   string
	PlayerURL string
	Getter    fetch.Getter
	Logger    *slog.Logger
}

// Client queries the view and player endpoints.
type Client struct {
	viewURL   string
	playerURL string
	getter    fetch.Getter
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) *Client {
	return &Client{
		viewURL:   strings.TrimSpace(cfg.ViewURL),
		playerURL: strings.TrimSpace(cfg.PlayerURL),
		getter:    cfg.Getter,
		logger:    logging.NewComponentLogger(cfg.Logger, "metadata"),
	}
}

type envelope struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type viewData struct {
	BVID  string `json:"bvid"`
	Aid   *int64 `json:"aid"`
	Cid   *int64 `json:"cid"`
	Title string `json:"title"`
	Pages []Page `json:"pages"`
}

type playerData struct {
	Subtitle *struct {
		Subtitles []playerSubtitle `json:"subtitles"`
	} `json:"subtitle"`
}

type playerSubtitle struct {
	Lan         string `json:"lan"`
	LangKey     string `json:"lang_key"`
	LanDoc      string `json:"lan_doc"`
	SubtitleURL string `json:"subtitle_url"`
	URL         string `json:"url"`
}

// FetchVideo returns the identifiers, title and page list for code.
func (c *Client) FetchVideo(ctx context.Context, code string) (VideoInfo, error) {
	var data viewData
	if err := c.call(ctx, "view", c.viewURL, url.Values{"bvid": {code}}, &data); err != nil {
		return VideoInfo{}, err
	}
	if data.Aid == nil || *data.Aid == 0 || data.Cid == nil || *data.Cid == 0 {
		return VideoInfo{}, services.Wrap(services.ErrUpstream, stageMetadata, "view",
			fmt.Sprintf("response for %s is missing aid or cid", code), nil)
	}
	info := VideoInfo{
		Code:        code,
		Title:       strings.TrimSpace(data.Title),
		Identifiers: ContentIdentifiers{AssetID: *data.Aid, ChannelID: *data.Cid},
		Pages:       data.Pages,
	}
	logging.WithContext(ctx, c.logger).Debug("video metadata fetched",
		logging.String(logging.FieldVideo, code),
		logging.Int64("aid", info.Identifiers.AssetID),
		logging.Int64("cid", info.Identifiers.ChannelID),
		logging.Int("pages", len(info.Pages)),
	)
	return info, nil
}

// FetchIdentifiers returns the aid/cid pair of the first page of code.
func (c *Client) FetchIdentifiers(ctx context.Context, code string) (ContentIdentifiers, error) {
	info, err := c.FetchVideo(ctx, code)
	if err != nil {
		return ContentIdentifiers{}, err
	}
	return info.Identifiers, nil
}

// FetchTracks lists the subtitle tracks for ids. A missing subtitle section
// means the video has no subtitles and yields an empty slice.
func (c *Client) FetchTracks(ctx context.Context, ids ContentIdentifiers, filter LanguageFilter) ([]SubtitleTrack, error) {
	params := url.Values{
		"aid": {strconv.FormatInt(ids.AssetID, 10)},
		"cid": {strconv.FormatInt(ids.ChannelID, 10)},
	}
	var data playerData
	if err := c.call(ctx, "player", c.playerURL, params, &data); err != nil {
		return nil, err
	}

	tracks := []SubtitleTrack{}
	if data.Subtitle == nil {
		return tracks, nil
	}
	logger := logging.WithContext(ctx, c.logger)
	for _, entry := range data.Subtitle.Subtitles {
		key := firstNonEmpty(entry.Lan, entry.LangKey)
		cueURL := strings.TrimSpace(firstNonEmpty(entry.SubtitleURL, entry.URL))
		if cueURL == "" {
			logger.Debug("track without cue url skipped", logging.String(logging.FieldLanguage, key))
			continue
		}
		if strings.HasPrefix(cueURL, "//") {
			cueURL = "https:" + cueURL
		}
		track := SubtitleTrack{LanguageKey: key, Label: strings.TrimSpace(entry.LanDoc), CueListURL: cueURL}
		if !filter.Allows(track.LanguageKey) {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// call fetches an endpoint, checks the envelope and decodes data into out.
func (c *Client) call(ctx context.Context, operation, endpoint string, params url.Values, out any) error {
	if c.getter == nil {
		return services.Wrap(services.ErrConfiguration, stageMetadata, operation, "no http getter configured", nil)
	}
	var env envelope
	if err := c.getter.GetJSON(ctx, endpoint, params, &env); err != nil {
		return err
	}
	if env.Code == nil {
		return services.Wrap(services.ErrUpstream, stageMetadata, operation, "response has no code field", nil)
	}
	if *env.Code != 0 {
		marker := services.ErrUpstream
		if _, ok := notFoundCodes[*env.Code]; ok {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, stageMetadata, operation,
			fmt.Sprintf("api code %d: %s", *env.Code, strings.TrimSpace(env.Message)), nil)
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return services.Wrap(services.ErrUpstream, stageMetadata, operation, "response has no data", nil)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return services.Wrap(services.ErrUpstream, stageMetadata, operation, "decode data", err)
	}
	return nil
}

// firstNonEmpty returns the first value that is not blank, unmodified.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
