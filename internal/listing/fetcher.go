// Package listing converts raw gateway browse responses into typed
// directory listings for the navigator.
package listing

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dfslink/dfslink/internal/api"
	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/models"
)

// Fetcher issues one browse call per navigation and shapes the result.
// It never retries: a failed fetch is surfaced unmodified and the caller
// owns the retry decision.
type Fetcher struct {
	client *api.Client
}

// NewFetcher creates a Fetcher over the given gateway client.
func NewFetcher(client *api.Client) *Fetcher {
	return &Fetcher{client: client}
}

// List fetches the listing for one directory. Every call produces a fresh
// entry set; nothing is carried over from earlier fetches.
func (f *Fetcher) List(ctx context.Context, dir dfspath.Path) (models.Listing, error) {
	raw, err := f.client.Browse(ctx, dir.Display())
	if err != nil {
		return models.Listing{}, err
	}
	return buildListing(dir, raw), nil
}

// buildListing shapes a raw browse response into a Listing.
// Files are restricted to direct children of dir; the gateway reports every
// file under the prefix.
func buildListing(dir dfspath.Path, raw *models.BrowseResponse) models.Listing {
	out := models.Listing{Path: dir.Display()}

	for path, meta := range raw.Files {
		p := dfspath.Normalize(path)
		if !p.Parent().Equal(dir) {
			continue
		}
		out.Files = append(out.Files, models.DirectoryEntry{
			Name:       p.Base(),
			Path:       strings.TrimSuffix(p.Display(), "/"),
			Kind:       models.KindFile,
			Size:       meta.Size,
			ModifiedAt: parseModified(meta.LastModified),
		})
	}

	seen := make(map[string]bool)
	for _, rawDir := range raw.Directories {
		p := dfspath.Normalize(rawDir)
		display := p.Display()
		if seen[display] {
			continue
		}
		seen[display] = true
		out.Directories = append(out.Directories, models.DirectoryEntry{
			Name: directoryName(p),
			Path: display,
			Kind: models.KindDirectory,
		})
	}

	sort.Slice(out.Files, func(i, j int) bool {
		return strings.ToLower(out.Files[i].Name) < strings.ToLower(out.Files[j].Name)
	})
	sort.Slice(out.Directories, func(i, j int) bool {
		return strings.ToLower(out.Directories[i].Name) < strings.ToLower(out.Directories[j].Name)
	})

	return out
}

// directoryName is the last segment of a directory path, or "Root" when
// the path has none.
func directoryName(p dfspath.Path) string {
	if name := p.Base(); name != "" {
		return name
	}
	return "Root"
}

// parseModified tolerates the timestamp formats the gateway has been seen
// to emit; an unknown format yields the zero time rather than an error.
func parseModified(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
