package main

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"bilisub/internal/config"
	"bilisub/internal/fetch"
	"bilisub/internal/history"
	"bilisub/internal/logging"
	"bilisub/internal/metadata"
	"bilisub/internal/pipeline"
	"bilisub/internal/resolve"
	"bilisub/internal/services"
	"bilisub/internal/subtitles"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "config", "log-level", "", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "directories", "", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// components holds the wired pipeline for one command invocation.
type components struct {
	runner  *pipeline.Runner
	history *history.Store
	logger  *slog.Logger
}

func (c *components) Close() error {
	if c == nil || c.history == nil {
		return nil
	}
	return c.history.Close()
}

// buildComponents wires the pipeline from configuration. History is opened
// only when withHistory is set and the config enables it; an unusable
// history database is logged and skipped.
func (c *commandContext) buildComponents(withHistory bool) (*components, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout()}
	getter := fetch.New(fetch.Config{
		UserAgent:  cfg.HTTP.UserAgent,
		Referer:    cfg.HTTP.Referer,
		Timeout:    cfg.RequestTimeout(),
		HTTPClient: httpClient,
		Logger:     logger,
	})
	deps := pipeline.Deps{
		Resolver: resolve.New(resolve.Config{
			HTTPClient:   httpClient,
			UserAgent:    cfg.HTTP.UserAgent,
			MaxRedirects: cfg.HTTP.MaxRedirects,
			Logger:       logger,
		}),
		Metadata: metadata.New(metadata.Config{
			ViewURL:   cfg.API.ViewURL,
			PlayerURL: cfg.API.PlayerURL,
			Getter:    getter,
			Logger:    logger,
		}),
		Converter: subtitles.NewConverter(getter, logger),
		Logger:    logger,
	}

	built := &components{logger: logger}
	if withHistory && cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logging.WarnWithContext(logger, "history unavailable", "history_unavailable",
				logging.String("path", cfg.History.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "downloads will not be recorded"),
			)
		} else {
			built.history = store
			deps.Recorder = store
		}
	}
	built.runner = pipeline.NewRunner(deps)
	return built, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
