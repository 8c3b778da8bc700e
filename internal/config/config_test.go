package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "httptimesync.yaml")
	os.WriteFile(path, []byte(`
IgnoreSslErrors: false
HttpTimeoutSec: 5
UseHeadThenGet: false
RunOnce: false
LoopIntervalMinutes: 10
TimeUrls: "https://a.example/,https://b.example/"
TimeHosts: "h1,h2"
TimePorts: "443"
FallbackTimeUrls: "https://fallback.example/"
`), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IgnoreSSLErrors {
		t.Error("expected IgnoreSslErrors=false")
	}
	if cfg.HTTPTimeoutSec != 5 {
		t.Errorf("expected 5, got %d", cfg.HTTPTimeoutSec)
	}
	if cfg.UseHeadThenGet || cfg.RunOnce {
		t.Error("expected UseHeadThenGet and RunOnce to be false")
	}
	if cfg.LoopIntervalMinutes != 10 {
		t.Errorf("expected 10, got %d", cfg.LoopIntervalMinutes)
	}
	if cfg.TimeHosts != "h1,h2" {
		t.Errorf("expected h1,h2, got %s", cfg.TimeHosts)
	}
	if cfg.FallbackTimeURLs != "https://fallback.example/" {
		t.Errorf("unexpected fallback %q", cfg.FallbackTimeURLs)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "httptimesync.yaml")
	os.WriteFile(path, []byte("TimeUrls: https://a.example/\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IgnoreSSLErrors || !cfg.UseHeadThenGet || !cfg.RunOnce {
		t.Error("expected boolean defaults to be true")
	}
	if cfg.HTTPTimeoutSec != 12 {
		t.Errorf("expected default 12, got %d", cfg.HTTPTimeoutSec)
	}
	if cfg.LoopIntervalMinutes != 1 {
		t.Errorf("expected default 1, got %d", cfg.LoopIntervalMinutes)
	}
	if cfg.TimePaths != "/" {
		t.Errorf("expected default path /, got %q", cfg.TimePaths)
	}
	if cfg.UserAgent != "TimeSync-Client" {
		t.Errorf("unexpected user agent %q", cfg.UserAgent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if cfg == nil || !cfg.RunOnce {
		t.Fatal("expected defaults alongside the not-exist error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("HttpTimeoutSec: [oops"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "httptimesync.yaml")
	cfg := Defaults()
	cfg.TimeURLs = "https://saved.example/"
	cfg.RunOnce = false
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.TimeURLs != "https://saved.example/" || loaded.RunOnce {
		t.Errorf("unexpected reload %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TIMESYNC_RUN_ONCE":              "false",
		"TIMESYNC_HTTP_TIMEOUT_SEC":      "30",
		"TIMESYNC_TIME_URLS":             " https://env.example/ ",
		"TIMESYNC_RETRY_DELAY_MINUTES":   "3",
		"TIMESYNC_USE_HEAD_THEN_GET":     "not-a-bool",
		"TIMESYNC_STARTUP_DELAY_MINUTES": "soon",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Defaults()
	errs := cfg.ApplyEnv(lookup)
	if len(errs) != 2 {
		t.Fatalf("expected 2 parse errors, got %v", errs)
	}
	if cfg.RunOnce {
		t.Error("expected RunOnce=false from env")
	}
	if cfg.HTTPTimeoutSec != 30 {
		t.Errorf("expected 30, got %d", cfg.HTTPTimeoutSec)
	}
	if cfg.TimeURLs != "https://env.example/" {
		t.Errorf("unexpected TimeUrls %q", cfg.TimeURLs)
	}
	if !cfg.UseHeadThenGet {
		t.Error("unparsable bool should keep the previous value")
	}
	if cfg.StartupDelayMinutes != nil {
		t.Error("unparsable int should leave StartupDelayMinutes unset")
	}
	if cfg.RetryDelay() != 3*time.Minute {
		t.Errorf("expected 3m retry delay, got %s", cfg.RetryDelay())
	}
	if Get() != cfg {
		t.Error("expected ApplyEnv to publish the config")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("TIMESYNC_TEST_DOTENV=from-file\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("TIMESYNC_TEST_DOTENV") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("TIMESYNC_TEST_DOTENV"); v != "from-file" {
		t.Errorf("expected from-file, got %q", v)
	}
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestDelays(t *testing.T) {
	cfg := Defaults()
	cfg.LoopIntervalMinutes = 5
	if cfg.StartupDelay() != 5*time.Minute || cfg.RetryDelay() != 5*time.Minute {
		t.Error("startup and retry delays should default to the loop interval")
	}
	zero := 0
	cfg.StartupDelayMinutes = &zero
	if cfg.StartupDelay() != 0 {
		t.Errorf("expected no startup delay, got %s", cfg.StartupDelay())
	}

	cfg.LoopIntervalMinutes = 0
	if cfg.LoopInterval() != time.Minute {
		t.Errorf("zero loop interval should fall back to 1m, got %s", cfg.LoopInterval())
	}
	if cfg.RetryDelay() != 0 {
		t.Errorf("zero interval should skip the retry wait, got %s", cfg.RetryDelay())
	}
}

func TestNormalizeClampsNegatives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neg.yaml")
	os.WriteFile(path, []byte("LoopIntervalMinutes: -4\nRetryDelayMinutes: -1\nHttpTimeoutSec: 0\n"), 0644)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LoopIntervalMinutes != 0 || *cfg.RetryDelayMinutes != 0 {
		t.Errorf("expected clamped values, got %d / %d", cfg.LoopIntervalMinutes, *cfg.RetryDelayMinutes)
	}
	if cfg.HTTPTimeoutSec != 12 {
		t.Errorf("expected default timeout, got %d", cfg.HTTPTimeoutSec)
	}
}
