package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/httptimesync/httptimesync/internal/config"
	"github.com/httptimesync/httptimesync/internal/fetch"
	"github.com/httptimesync/httptimesync/internal/logging"
	"github.com/httptimesync/httptimesync/internal/notify"
	"github.com/httptimesync/httptimesync/internal/state"
	"github.com/httptimesync/httptimesync/internal/system"
	"github.com/httptimesync/httptimesync/internal/targets"
	"github.com/httptimesync/httptimesync/internal/web"
)

var version = "dev"

const (
	exitOK        = 0
	exitFailed    = 1
	exitNoTargets = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("httptimesync", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	envPath := fs.String("env", ".env", "optional .env file with TIMESYNC_* overrides")
	dryRun := fs.Bool("dry-run", false, "fetch the time but never set the clock")
	verbose := fs.Bool("verbose", false, "log debug output")
	writeConfig := fs.String("write-config", "", "write the effective config to this path and exit")
	showVersion := fs.Bool("version", false, "print version")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailed
	}

	if *showVersion {
		fmt.Println(version)
		return exitOK
	}

	cfg, err := config.Load(*configPath)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		return exitFailed
	}
	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envPath, err)
	}
	envErrs := cfg.ApplyEnv(nil)
	if *dryRun {
		cfg.DryRun = true
	}

	if *writeConfig != "" {
		if err := config.Save(*writeConfig, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			return exitFailed
		}
		return exitOK
	}

	log, daily := logging.New(logging.Options{Dir: cfg.LogDir, Verbose: *verbose})
	defer daily.Close()
	for _, e := range envErrs {
		log.Warn().Err(e).Msg("ignoring environment override")
	}

	lock, err := system.AcquireLock(cfg.LockFile)
	if errors.Is(err, system.ErrAlreadyRunning) {
		log.Info().Msg("httptimesync is already running")
		return exitFailed
	}
	if err != nil {
		log.Error().Err(err).Msg("acquire instance lock")
		return exitFailed
	}
	defer lock.Release()

	urls := targets.Build(targets.FromConfig(cfg))
	if len(urls) == 0 {
		log.Error().Msg("no target URLs configured, set TimeUrls, TimeHosts/TimePorts or FallbackTimeUrls")
		return exitNoTargets
	}

	schedule, err := state.LoopSchedule(cfg.LoopSchedule, cfg.LoopInterval())
	if err != nil {
		log.Error().Err(err).Msg("invalid LoopSchedule")
		return exitFailed
	}

	client := fetch.NewClient(fetch.ClientOptions{
		Timeout:        cfg.HTTPTimeout(),
		IgnoreSSLError: cfg.IgnoreSSLErrors,
		UserAgent:      cfg.UserAgent,
	})
	fetcher := fetch.New(client, cfg.UseHeadThenGet, log)

	var clock system.ClockSetter = system.OSClock{}
	if cfg.DryRun {
		log.Info().Msg("dry run: the system clock will not be changed")
		clock = &system.DryRunClock{}
	}

	machine := state.New(fetcher, clock, notify.New(cfg.NotifyWebhookURL, log), log, state.Options{
		Targets:      urls,
		RunOnce:      cfg.RunOnce,
		StartupDelay: cfg.StartupDelay(),
		RetryDelay:   cfg.RetryDelay(),
		Schedule:     schedule,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StatusListen != "" {
		srv := web.NewServer(machine, version, daily, log)
		go func() {
			if err := srv.Start(ctx, cfg.StatusListen); err != nil {
				log.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	logStart(log, cfg, urls)
	if err := machine.Run(ctx); err != nil {
		return exitFailed
	}
	return exitOK
}

func logStart(log zerolog.Logger, cfg *config.Config, urls []string) {
	mode := "once"
	if !cfg.RunOnce {
		mode = "loop"
	}
	log.Info().
		Str("version", version).
		Str("mode", mode).
		Strs("targets", urls).
		Bool("head_then_get", cfg.UseHeadThenGet).
		Dur("timeout", cfg.HTTPTimeout()).
		Msg("httptimesync starting")
}

// defaultConfigPath looks next to the executable, like the daily log dir.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "httptimesync.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "httptimesync.yaml")
}
