package server

// Result codes returned in SubtitleResponse.Code.
const (
	CodeOK              = 0
	CodeNoSubtitles     = 1
	CodeFilteredOut     = 2
	CodeNoPriorityMatch = 3
	CodeError           = 99
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	UptimeS int64  `json:"uptime_s"`
}

// SubtitleRequest asks for the plaintext and SRT of the best matching track.
type SubtitleRequest struct {
	URL          string   `json:"url"`
	Whitelist    []string `json:"whitelist"`
	LangPriority []string `json:"lang_priority"`
	Page         int      `json:"page,omitempty"`
}

type SubtitleResponse struct {
	Code  int    `json:"code"`
	Msg   string `json:"msg"`
	Kind  string `json:"kind,omitempty"`
	Video string `json:"video,omitempty"`
	Lang  string `json:"lang"`
	Text  string `json:"text"`
	SRT   string `json:"srt"`
}

type TrackResponse struct {
	Lan    string `json:"lan"`
	Label  string `json:"label,omitempty"`
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
	URL    string `json:"url"`
}

type TracksResponse struct {
	Video  string          `json:"video"`
	Title  string          `json:"title,omitempty"`
	Aid    int64           `json:"aid"`
	Cid    int64           `json:"cid"`
	Tracks []TrackResponse `json:"tracks"`
}
