package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bilisub/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("BILISUB_USER_AGENT", "")
	t.Setenv("BILISUB_LOG_LEVEL", "")
	t.Setenv("BILISUB_OUTPUT_DIR", "")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "bilisub", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(home, ".local", "share", "bilisub", "history.db"); cfg.History.Path != want {
		t.Fatalf("unexpected history path: got %q want %q", cfg.History.Path, want)
	}
	if !filepath.IsAbs(cfg.Output.Dir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Output.Dir)
	}
	if cfg.HTTP.MaxRedirects != 5 {
		t.Fatalf("expected default max redirects 5, got %d", cfg.HTTP.MaxRedirects)
	}
	if cfg.HTTP.Referer != "https://www.bilibili.com/" {
		t.Fatalf("unexpected referer: %q", cfg.HTTP.Referer)
	}
	if cfg.Output.Format != "srt" {
		t.Fatalf("unexpected output format: %q", cfg.Output.Format)
	}
	if cfg.Logging.Format != "auto" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadProjectConfigWhenUserConfigMissing(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, "bilisub.toml"), []byte("[output]\nformat = \"txt\"\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected project config to be found")
	}
	if filepath.Base(resolved) != "bilisub.toml" {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Output.Format != "txt" {
		t.Fatalf("expected format txt, got %q", cfg.Output.Format)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "bilisub.toml")

	custom := config.Default()
	custom.HTTP.MaxRedirects = 2
	custom.API.ViewURL = "http://127.0.0.1:9999/view"
	custom.Output.Languages = []string{" en ", "", "zh-CN"}
	custom.Output.LangPriority = []string{"ZH", "en"}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: exists=%v resolved=%q", exists, resolved)
	}
	if cfg.HTTP.MaxRedirects != 2 {
		t.Fatalf("expected max redirects 2, got %d", cfg.HTTP.MaxRedirects)
	}
	if cfg.API.ViewURL != "http://127.0.0.1:9999/view" {
		t.Fatalf("unexpected view url: %q", cfg.API.ViewURL)
	}
	if strings.Join(cfg.Output.Languages, ",") != "en,zh-CN" {
		t.Fatalf("unexpected languages: %v", cfg.Output.Languages)
	}
	if strings.Join(cfg.Output.LangPriority, ",") != "zh,en" {
		t.Fatalf("unexpected lang priority: %v", cfg.Output.LangPriority)
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "bilisub.toml")
	contents := "[http]\nuser_agent = \"file-agent\"\n[logging]\nlevel = \"warn\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	outDir := t.TempDir()
	t.Setenv("BILISUB_USER_AGENT", "env-agent")
	t.Setenv("BILISUB_LOG_LEVEL", "DEBUG")
	t.Setenv("BILISUB_OUTPUT_DIR", outDir)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTP.UserAgent != "env-agent" {
		t.Errorf("expected user agent from env, got %q", cfg.HTTP.UserAgent)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level from env, got %q", cfg.Logging.Level)
	}
	if cfg.Output.Dir != outDir {
		t.Errorf("expected output dir from env, got %q", cfg.Output.Dir)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "bilisub.toml")
	if err := os.WriteFile(configPath, []byte("[http\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "max_redirects") {
		t.Fatalf("sample config missing max_redirects: %s", contents)
	}
	if strings.Contains(string(contents), "single track") || !strings.Contains(string(contents), "first bucket") {
		t.Fatalf("sample config misdescribes lang_priority: %s", contents)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !strings.HasSuffix(cfg.Output.Dir, "subtitles") {
		t.Fatalf("expected sample output dir, got %q", cfg.Output.Dir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"timeout", func(c *config.Config) { c.HTTP.TimeoutSeconds = -1 }},
		{"redirects", func(c *config.Config) { c.HTTP.MaxRedirects = -1 }},
		{"view url", func(c *config.Config) { c.API.ViewURL = "not a url" }},
		{"player url", func(c *config.Config) { c.API.PlayerURL = "/relative" }},
		{"format", func(c *config.Config) { c.Output.Format = "vtt" }},
		{"priority", func(c *config.Config) { c.Output.LangPriority = []string{"jp"} }},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Output.Dir = filepath.Join(base, "out")
	cfg.History.Path = filepath.Join(base, "state", "history.db")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Output.Dir, filepath.Dir(cfg.History.Path), cfg.Logging.Dir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
