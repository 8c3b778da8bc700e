// Package fetch reads the current time from HTTP response headers.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoTime is returned when every candidate URL has been tried and none of
// them produced a usable timestamp.
var ErrNoTime = errors.New("no target produced a time")

var errNoHeader = errors.New("no Date or Last-Modified header")

// drainLimit bounds how much of a GET body is read before closing, enough
// for small pages to be fully consumed so the connection can be reused.
const drainLimit = 64 << 10

// Result is the instant read from one response.
type Result struct {
	Time   time.Time
	URL    string
	Method string
	Header string
}

type Fetcher struct {
	Client      *http.Client
	HeadThenGet bool
	Log         zerolog.Logger
}

func New(client *http.Client, headThenGet bool, log zerolog.Logger) *Fetcher {
	return &Fetcher{Client: client, HeadThenGet: headThenGet, Log: log}
}

// Fetch walks urls in order and returns the first timestamp found. Failures
// on a single URL are logged and the walk continues.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) (Result, error) {
	var errs []error
	for _, u := range urls {
		res, err := f.fetchOne(ctx, u)
		if err == nil {
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		f.Log.Error().Err(err).Str("url", u).Msg("target failed")
		errs = append(errs, fmt.Errorf("%s: %w", u, err))
	}
	return Result{}, fmt.Errorf("%w: %w", ErrNoTime, errors.Join(errs...))
}

func (f *Fetcher) fetchOne(ctx context.Context, u string) (Result, error) {
	var errs []error
	if f.HeadThenGet {
		res, err := f.try(ctx, http.MethodHead, u)
		if err == nil {
			return res, nil
		}
		f.Log.Debug().Err(err).Str("url", u).Msg("HEAD gave no time, falling back to GET")
		errs = append(errs, fmt.Errorf("HEAD: %w", err))
	}
	res, err := f.try(ctx, http.MethodGet, u)
	if err == nil {
		return res, nil
	}
	errs = append(errs, fmt.Errorf("GET: %w", err))
	return Result{}, errors.Join(errs...)
}

func (f *Fetcher) try(ctx context.Context, method, u string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		resp.Body.Close()
	}()

	t, header, ok := TimeFromHeader(resp.Header)
	if !ok {
		return Result{}, fmt.Errorf("HTTP %d: %w", resp.StatusCode, errNoHeader)
	}
	return Result{Time: t, URL: u, Method: method, Header: header}, nil
}

// TimeFromHeader prefers Date and falls back to Last-Modified. Values that
// do not parse count as absent.
func TimeFromHeader(h http.Header) (time.Time, string, bool) {
	for _, name := range []string{"Date", "Last-Modified"} {
		v := h.Get(name)
		if v == "" {
			continue
		}
		t, err := http.ParseTime(v)
		if err != nil {
			continue
		}
		return t.UTC(), name, true
	}
	return time.Time{}, "", false
}
