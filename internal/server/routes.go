package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bilisub/internal/language"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
	"bilisub/internal/services"
)

const maxRequestBody = 64 << 10

// NewRouter wires the API routes.
func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Route("/api", func(r chi.Router) {
		r.Post("/subtitle", subtitleHandler(cfg))
		r.Get("/tracks", tracksHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// subtitleHandler converts the first selected track. Processing failures are
// reported in the body with CodeError, matching the web client's contract.
func subtitleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubtitleRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			WriteError(w, http.StatusBadRequest, "url is required", "BAD_REQUEST")
			return
		}

		priority := req.LangPriority
		if len(priority) == 0 {
			priority = metadata.DefaultPriority
		}
		opts := pipeline.Options{
			Input:     req.URL,
			Languages: metadata.NewLanguageFilter(req.Whitelist...),
			Priority:  priority,
			Page:      req.Page,
		}
		plan, err := cfg.Planner.Plan(r.Context(), opts)
		if err != nil {
			WriteJSON(w, http.StatusOK, errorResult(plan.Code, err))
			return
		}

		resp := SubtitleResponse{Video: plan.Code}
		switch plan.Outcome {
		case pipeline.OutcomeNoSubtitles:
			resp.Code, resp.Msg = CodeNoSubtitles, "no subtitles available"
		case pipeline.OutcomeFilteredOut:
			resp.Code, resp.Msg = CodeFilteredOut, "no subtitles left after whitelist filtering"
		case pipeline.OutcomeNoPriorityMatch:
			resp.Code, resp.Msg = CodeNoPriorityMatch, "no subtitles matched the language priority"
		default:
			track := plan.Tracks[0]
			doc, err := cfg.Planner.ConvertTrack(r.Context(), track)
			if err != nil {
				WriteJSON(w, http.StatusOK, errorResult(plan.Code, err))
				return
			}
			resp.Code, resp.Msg = CodeOK, "ok"
			resp.Lang = track.LanguageKey
			resp.Text = doc.Plaintext()
			resp.SRT = doc.String()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func tracksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := strings.TrimSpace(r.URL.Query().Get("input"))
		if input == "" {
			WriteError(w, http.StatusBadRequest, "input is required", "BAD_REQUEST")
			return
		}
		page := 0
		if raw := r.URL.Query().Get("page"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				WriteError(w, http.StatusBadRequest, "page must be a positive integer", "BAD_REQUEST")
				return
			}
			page = parsed
		}

		plan, err := cfg.Planner.Plan(r.Context(), pipeline.Options{Input: input, Page: page})
		if err != nil {
			status, code := statusForError(err)
			WriteError(w, status, err.Error(), code)
			return
		}
		resp := TracksResponse{
			Video:  plan.Code,
			Title:  plan.Title,
			Aid:    plan.Identifiers.AssetID,
			Cid:    plan.Identifiers.ChannelID,
			Tracks: make([]TrackResponse, len(plan.Available)),
		}
		for i, track := range plan.Available {
			resp.Tracks[i] = TrackResponse{
				Lan:    track.LanguageKey,
				Label:  track.Label,
				Name:   language.DisplayName(track.LanguageKey),
				Bucket: metadata.Bucket(track.LanguageKey),
				URL:    track.CueListURL,
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func errorResult(code string, err error) SubtitleResponse {
	return SubtitleResponse{
		Code:  CodeError,
		Msg:   err.Error(),
		Kind:  services.Kind(err),
		Video: code,
	}
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrResolution):
		return http.StatusBadRequest, "RESOLUTION_ERROR"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrUpstream), errors.Is(err, services.ErrConversion):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
