package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be positive")
	}
	if c.HTTP.MaxRedirects < 0 {
		return errors.New("http.max_redirects must be >= 0")
	}
	return nil
}

func (c *Config) validateAPI() error {
	for key, value := range map[string]string{
		"api.view_url":   c.API.ViewURL,
		"api.player_url": c.API.PlayerURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "srt", "txt":
	default:
		return fmt.Errorf("output.format must be srt or txt, got %q", c.Output.Format)
	}
	for _, bucket := range c.Output.LangPriority {
		switch bucket {
		case "en", "zh", "other":
		default:
			return fmt.Errorf("output.lang_priority entries must be en, zh, or other, got %q", bucket)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
