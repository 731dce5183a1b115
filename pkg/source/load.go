package source

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LoadOption configures Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	onUnreadable func(path string, err error)
}

// WithSkipUnreadable reports paths that cannot be read, or jars that cannot
// be opened, to fn and carries on without them. fn may be called from
// several goroutines at once.
func WithSkipUnreadable(fn func(path string, err error)) LoadOption {
	return func(c *loadConfig) {
		c.onUnreadable = fn
	}
}

// Load reads every path from src with at most limit reads in flight
// (0 = 2x NumCPU). Jar paths are expanded into their class entries. The
// blobs come back in input order, jar entries in archive order. Unless
// WithSkipUnreadable is given, the first read failure cancels the rest.
func Load(ctx context.Context, src ContentSource, paths []string, limit int, opts ...LoadOption) ([]Blob, error) {
	if limit <= 0 {
		limit = runtime.NumCPU() * 2
	}
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	fail := func(path string, err error) error {
		if cfg.onUnreadable == nil {
			return err
		}
		cfg.onUnreadable(path, err)
		return nil
	}

	slots := make([][]Blob, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := src.Read(p)
			if err != nil {
				return fail(p, fmt.Errorf("reading %s: %w", p, err))
			}
			if !IsJar(p) {
				slots[i] = []Blob{{Path: p, Data: data}}
				return nil
			}
			entries, err := ReadJar(p, data)
			if err != nil {
				return fail(p, fmt.Errorf("reading jar: %w", err))
			}
			slots[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blobs []Blob
	for _, s := range slots {
		blobs = append(blobs, s...)
	}
	return blobs, nil
}
