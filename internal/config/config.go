package config

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHTTPTimeoutSec      = 12
	DefaultLoopIntervalMinutes = 1
	DefaultUserAgent           = "TimeSync-Client"
)

// Config keys use the App.config names of the Windows build so existing
// settings files carry over unchanged.
type Config struct {
	IgnoreSSLErrors     bool   `yaml:"IgnoreSslErrors" json:"ignore_ssl_errors"`
	HTTPTimeoutSec      int    `yaml:"HttpTimeoutSec" json:"http_timeout_sec"`
	UseHeadThenGet      bool   `yaml:"UseHeadThenGet" json:"use_head_then_get"`
	RunOnce             bool   `yaml:"RunOnce" json:"run_once"`
	LoopIntervalMinutes int    `yaml:"LoopIntervalMinutes" json:"loop_interval_minutes"`
	StartupDelayMinutes *int   `yaml:"StartupDelayMinutes" json:"startup_delay_minutes,omitempty"`
	RetryDelayMinutes   *int   `yaml:"RetryDelayMinutes" json:"retry_delay_minutes,omitempty"`
	LoopSchedule        string `yaml:"LoopSchedule" json:"loop_schedule,omitempty"`

	TimeURLs         string `yaml:"TimeUrls" json:"time_urls"`
	TimeHosts        string `yaml:"TimeHosts" json:"time_hosts"`
	TimePorts        string `yaml:"TimePorts" json:"time_ports"`
	TimePaths        string `yaml:"TimePaths" json:"time_paths"`
	FallbackTimeURLs string `yaml:"FallbackTimeUrls" json:"fallback_time_urls"`

	UserAgent        string `yaml:"UserAgent" json:"user_agent"`
	DryRun           bool   `yaml:"DryRun" json:"dry_run"`
	LogDir           string `yaml:"LogDir" json:"log_dir"`
	LockFile         string `yaml:"LockFile" json:"lock_file"`
	NotifyWebhookURL string `yaml:"NotifyWebhookUrl" json:"notify_webhook_url,omitempty"`
	StatusListen     string `yaml:"StatusListen" json:"status_listen,omitempty"`
}

var (
	current *Config
	mu      sync.RWMutex
)

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		IgnoreSSLErrors:     true,
		HTTPTimeoutSec:      DefaultHTTPTimeoutSec,
		UseHeadThenGet:      true,
		RunOnce:             true,
		LoopIntervalMinutes: DefaultLoopIntervalMinutes,
		TimePaths:           "/",
		UserAgent:           DefaultUserAgent,
		LogDir:              filepath.Join(baseDir(), "log"),
		LockFile:            filepath.Join(os.TempDir(), "httptimesync.lock"),
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// returned as an os.IsNotExist error together with the default config so the
// caller can decide whether that is fatal.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			set(cfg)
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	set(cfg)
	return cfg, nil
}

func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func set(cfg *Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
}

// Save writes cfg as YAML. Used by the -write-config flag to dump the
// effective configuration.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) normalize() {
	if c.HTTPTimeoutSec <= 0 {
		c.HTTPTimeoutSec = DefaultHTTPTimeoutSec
	}
	if c.LoopIntervalMinutes < 0 {
		c.LoopIntervalMinutes = 0
	}
	clamp(c.StartupDelayMinutes)
	clamp(c.RetryDelayMinutes)
	if c.TimePaths == "" {
		c.TimePaths = "/"
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.LogDir == "" {
		c.LogDir = filepath.Join(baseDir(), "log")
	}
	if c.LockFile == "" {
		c.LockFile = filepath.Join(os.TempDir(), "httptimesync.lock")
	}
}

func clamp(v *int) {
	if v != nil && *v < 0 {
		*v = 0
	}
}

// baseDir is the directory holding the executable, falling back to the
// working directory.
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}
