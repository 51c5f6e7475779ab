package devengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/desertthunder/vidx/internal/shared"
)

const maxVariantDepth = 3

// Manifest is what a probe learns about an HLS source.
type Manifest struct {
	URL      string  // media playlist actually probed
	Segments int     // segments currently listed
	Duration float64 // seconds covered by the listed segments
	Live     bool    // no EXT-X-ENDLIST: the playlist keeps growing
}

// Prober fetches and inspects HLS manifests.
type Prober struct {
	client *http.Client
}

func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return &Prober{client: client}
}

// Probe fetches rawURL with the task's header lines. A master playlist is followed to its highest-bandwidth variant.
func (p *Prober) Probe(ctx context.Context, rawURL, headers string) (Manifest, error) {
	return p.probe(ctx, rawURL, parseHeaders(headers), 0)
}

func (p *Prober) probe(ctx context.Context, rawURL string, header http.Header, depth int) (Manifest, error) {
	if depth >= maxVariantDepth {
		return Manifest{}, fmt.Errorf("%w: too many nested variant playlists", shared.ErrManifestInvalid)
	}

	base, err := url.Parse(rawURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Manifest{}, fmt.Errorf("%w: invalid url %q", shared.ErrInvalidInput, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", shared.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Manifest{}, fmt.Errorf("%w: manifest returned %d", shared.ErrRequestFailed, resp.StatusCode)
	}

	pl, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", shared.ErrManifestInvalid, err)
	}

	switch listType {
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		if len(master.Variants) == 0 {
			return Manifest{}, fmt.Errorf("%w: master playlist has no variants", shared.ErrManifestInvalid)
		}
		best := master.Variants[0]
		for _, v := range master.Variants {
			if v != nil && v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		return p.probe(ctx, resolveURL(base, best.URI), header, depth+1)
	case m3u8.MEDIA:
		media := pl.(*m3u8.MediaPlaylist)
		m := Manifest{URL: rawURL, Live: !media.Closed}
		for _, seg := range media.Segments {
			if seg == nil || seg.URI == "" {
				continue
			}
			m.Segments++
			m.Duration += seg.Duration
		}
		if m.Segments == 0 && !m.Live {
			return Manifest{}, fmt.Errorf("%w: playlist has no segments", shared.ErrManifestInvalid)
		}
		return m, nil
	default:
		return Manifest{}, fmt.Errorf("%w: unknown playlist type", shared.ErrManifestInvalid)
	}
}

// resolveURL resolves a relative reference against a base URL
func resolveURL(base *url.URL, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// parseHeaders reads `Name: value` lines. Malformed lines are skipped.
func parseHeaders(raw string) http.Header {
	header := http.Header{}
	for _, line := range strings.Split(raw, "\n") {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		header.Add(name, strings.TrimSpace(value))
	}
	return header
}
