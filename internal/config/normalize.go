package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeHTTP()
	c.normalizeAPI()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeHTTP() {
	if value, ok := os.LookupEnv("BILISUB_USER_AGENT"); ok && strings.TrimSpace(value) != "" {
		c.HTTP.UserAgent = value
	}
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}
	c.HTTP.Referer = strings.TrimSpace(c.HTTP.Referer)
	if c.HTTP.Referer == "" {
		c.HTTP.Referer = defaultReferer
	}
	if c.HTTP.TimeoutSeconds == 0 {
		c.HTTP.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeAPI() {
	c.API.ViewURL = strings.TrimSpace(c.API.ViewURL)
	if c.API.ViewURL == "" {
		c.API.ViewURL = defaultViewURL
	}
	c.API.PlayerURL = strings.TrimSpace(c.API.PlayerURL)
	if c.API.PlayerURL == "" {
		c.API.PlayerURL = defaultPlayerURL
	}
}

func (c *Config) normalizeOutput() error {
	if value, ok := os.LookupEnv("BILISUB_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Output.Dir = value
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(strings.TrimSpace(c.Output.Dir)); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
	c.Output.Languages = trimList(c.Output.Languages)
	c.Output.LangPriority = trimList(c.Output.LangPriority)
	for i, bucket := range c.Output.LangPriority {
		c.Output.LangPriority[i] = strings.ToLower(bucket)
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath()
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "":
		c.Logging.Format = defaultLogFormat
	case "auto", "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv("BILISUB_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
