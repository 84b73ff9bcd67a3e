package config

const (
	defaultConfigPath     = "~/.config/bilisub/config.toml"
	projectConfigName     = "bilisub.toml"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64)"
	defaultReferer        = "https://www.bilibili.com/"
	defaultTimeoutSeconds = 15
	defaultMaxRedirects   = 5
	defaultViewURL        = "https://api.bilibili.com/x/web-interface/view"
	defaultPlayerURL      = "https://api.bilibili.com/x/player/wbi/v2"
	defaultOutputDir      = "."
	defaultOutputFormat   = "srt"
	defaultHistoryEnabled = true
	defaultHistoryFile    = "~/.local/share/bilisub/history.db"
	defaultServerBind     = "127.0.0.1:7488"
	defaultLogFormat      = "auto"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		HTTP: HTTP{
			UserAgent:      defaultUserAgent,
			Referer:        defaultReferer,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxRedirects:   defaultMaxRedirects,
		},
		API: API{
			ViewURL:   defaultViewURL,
			PlayerURL: defaultPlayerURL,
		},
		Output: Output{
			Dir:    defaultOutputDir,
			Format: defaultOutputFormat,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
			Path:    defaultHistoryPath(),
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
