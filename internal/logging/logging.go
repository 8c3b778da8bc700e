// Package logging sets up the process logger: every entry goes to the
// console, warnings and errors are also appended to a per-day file.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02 15:04:05"

type Options struct {
	Dir     string
	Verbose bool
	Console io.Writer
}

// New returns the logger and the daily file behind it.
func New(opts Options) (zerolog.Logger, *DailyFile) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	daily := NewDailyFile(opts.Dir)
	out := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"},
		&levelFilter{
			min: zerolog.WarnLevel,
			w:   zerolog.ConsoleWriter{Out: daily, NoColor: true, TimeFormat: timeFormat},
		},
	)
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), daily
}

// levelFilter passes entries at or above min to w and swallows the rest.
type levelFilter struct {
	min zerolog.Level
	w   io.Writer
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (f *levelFilter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < f.min || l == zerolog.NoLevel {
		return len(p), nil
	}
	// losing a log line never fails the caller
	f.w.Write(p)
	return len(p), nil
}

var _ zerolog.LevelWriter = (*levelFilter)(nil)

// Now is the clock used for day rollover; tests replace it.
var Now = time.Now
