package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvPrefix = "TIMESYNC_"

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from TIMESYNC_* variables. Values that fail to
// parse are skipped and reported; the previous value stays in place.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) []error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = b
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
	optInt := func(key string, dst **int) {
		var n int
		before := len(errs)
		if _, ok := lookup(EnvPrefix + key); !ok {
			return
		}
		integer(key, &n)
		if len(errs) == before {
			*dst = &n
		}
	}

	boolean("IGNORE_SSL_ERRORS", &c.IgnoreSSLErrors)
	integer("HTTP_TIMEOUT_SEC", &c.HTTPTimeoutSec)
	boolean("USE_HEAD_THEN_GET", &c.UseHeadThenGet)
	boolean("RUN_ONCE", &c.RunOnce)
	integer("LOOP_INTERVAL_MINUTES", &c.LoopIntervalMinutes)
	optInt("STARTUP_DELAY_MINUTES", &c.StartupDelayMinutes)
	optInt("RETRY_DELAY_MINUTES", &c.RetryDelayMinutes)
	str("LOOP_SCHEDULE", &c.LoopSchedule)
	str("TIME_URLS", &c.TimeURLs)
	str("TIME_HOSTS", &c.TimeHosts)
	str("TIME_PORTS", &c.TimePorts)
	str("TIME_PATHS", &c.TimePaths)
	str("FALLBACK_TIME_URLS", &c.FallbackTimeURLs)
	str("USER_AGENT", &c.UserAgent)
	boolean("DRY_RUN", &c.DryRun)
	str("LOG_DIR", &c.LogDir)
	str("LOCK_FILE", &c.LockFile)
	str("NOTIFY_WEBHOOK_URL", &c.NotifyWebhookURL)
	str("STATUS_LISTEN", &c.StatusListen)

	c.normalize()
	set(c)
	return errs
}

// StartupDelay is the one-time wait before the first attempt.
func (c *Config) StartupDelay() time.Duration {
	if c.StartupDelayMinutes != nil {
		return minutes(*c.StartupDelayMinutes)
	}
	return minutes(c.LoopIntervalMinutes)
}

// RetryDelay is the wait between the two run-once attempts.
func (c *Config) RetryDelay() time.Duration {
	if c.RetryDelayMinutes != nil {
		return minutes(*c.RetryDelayMinutes)
	}
	return minutes(c.LoopIntervalMinutes)
}

// LoopInterval is the sleep between loop iterations. It is never zero.
func (c *Config) LoopInterval() time.Duration {
	if c.LoopIntervalMinutes <= 0 {
		return minutes(DefaultLoopIntervalMinutes)
	}
	return minutes(c.LoopIntervalMinutes)
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func minutes(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}
