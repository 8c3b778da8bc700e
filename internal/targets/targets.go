// Package targets builds the ordered list of URLs the fetcher queries.
package targets

import (
	"fmt"
	"strings"

	"github.com/httptimesync/httptimesync/internal/config"
)

// Sources are the three configured inputs, in priority order.
type Sources struct {
	URLs         string
	Hosts        string
	Ports        string
	Paths        string
	FallbackURLs string
}

func FromConfig(cfg *config.Config) Sources {
	return Sources{
		URLs:         cfg.TimeURLs,
		Hosts:        cfg.TimeHosts,
		Ports:        cfg.TimePorts,
		Paths:        cfg.TimePaths,
		FallbackURLs: cfg.FallbackTimeURLs,
	}
}

// Build returns literal URLs first, then every https://host:port/path
// combination, then the fallback URLs, with duplicates dropped in favor of
// their first position. Entries are not validated.
func Build(src Sources) []string {
	var urls []string
	urls = append(urls, SplitCSV(src.URLs)...)

	paths := SplitCSV(src.Paths)
	if strings.TrimSpace(src.Paths) == "" {
		paths = []string{"/"}
	}
	for _, h := range SplitCSV(src.Hosts) {
		for _, p := range SplitCSV(src.Ports) {
			for _, path := range paths {
				if !strings.HasPrefix(path, "/") {
					path = "/" + path
				}
				urls = append(urls, fmt.Sprintf("https://%s:%s%s", h, p, path))
			}
		}
	}

	urls = append(urls, SplitCSV(src.FallbackURLs)...)
	return dedup(urls)
}

// SplitCSV splits on commas, trims each entry and drops empty ones.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
