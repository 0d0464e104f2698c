// Package visual resolves a free-text query into a locally materialized
// slide image. Sources are tried in order (search, then generation); a
// drawn placeholder covers total failure. Resolution never returns an
// error to its caller: "no image" is an ordinary outcome.
package visual

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const scratchSubdir = "visuals"

// Source produces a candidate image URL for a visual query.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) (string, error)
}

// fileStorage defines the interface for materializing fetched images.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// Resolver runs the source chain and materializes the winning image as a
// PNG in scratch storage.
type Resolver struct {
	sources    []Source
	storage    fileStorage
	strategy   retry.Strategy
	httpClient *http.Client
}

// NewResolver creates a Resolver over the given sources. Nil sources
// (unconfigured upstreams) are skipped.
func NewResolver(storage fileStorage, strategy retry.Strategy, sources ...Source) *Resolver {
	kept := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}

	return &Resolver{
		sources:    kept,
		storage:    storage,
		strategy:   strategy,
		httpClient: &http.Client{},
	}
}

// Resolve returns a local file handle for the query's image, or "" when
// no image could be produced. Any failure inside the chain degrades to
// the next source and ultimately to a generated placeholder.
func (r *Resolver) Resolve(ctx context.Context, index int, query, accentColor string) string {
	for _, src := range r.sources {
		if ctx.Err() != nil {
			return ""
		}

		url, err := src.Fetch(ctx, query)
		if err != nil {
			zlog.Logger.Warn().Err(err).
				Str("source", src.Name()).
				Str("query", query).
				Msg("image source failed")
			continue
		}

		path, err := r.materialize(ctx, index, url)
		if err != nil {
			zlog.Logger.Warn().Err(err).
				Str("source", src.Name()).
				Str("url", url).
				Msg("failed to materialize image")
			continue
		}

		return path
	}

	// Total failure across the chain: draw a placeholder.
	path, err := r.placeholder(ctx, index, accentColor)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("query", query).Msg("failed to generate placeholder")
		return ""
	}

	return path
}

// materialize downloads the image, re-encodes it as PNG and stores it in
// the scratch directory under a per-run unique name.
func (r *Resolver) materialize(ctx context.Context, index int, url string) (string, error) {
	var body []byte
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download returned status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}, r.strategy)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	filename := fmt.Sprintf("visual_%d_%s.png", index, uuid.New().String()[:8])
	path, err := r.storage.Save(ctx, scratchSubdir, filename, buf)
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}

	return path, nil
}
