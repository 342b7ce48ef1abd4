package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/feedmirror/feedmirror/pkg/fetch"
	"github.com/feedmirror/feedmirror/pkg/plugin"
	"github.com/feedmirror/feedmirror/pkg/store"
	"golang.org/x/sync/errgroup"
)

// PayloadDir is the store subdirectory holding mirrored script payloads.
const PayloadDir = "js"

const (
	scriptExt = ".js"
	filePerm  = 0o644
)

// Processor mirrors plugin payloads into the content store and produces the
// two output collections: mirrored-URL descriptors and original-URL
// descriptors.
type Processor struct {
	Client  *fetch.Client
	Store   store.Store
	CDNBase string

	// Concurrency caps the number of in-flight descriptors when positive.
	// Zero means unlimited, which is fine for the tens-to-hundreds of
	// plugins a run actually sees.
	Concurrency int
}

// result is the outcome of one descriptor. original is always set; processed
// only when ok.
type result struct {
	ok        bool
	processed plugin.Descriptor
	original  plugin.Descriptor
}

// ProcessAll runs every descriptor concurrently and partitions the outcomes.
// Successes land in both returned collections; failures (exhausted downloads,
// duplicate URLs, write errors) land only in originals, carrying their
// unresolved name and URL. Output order is completion order, not input order.
func (p *Processor) ProcessAll(ctx context.Context, descs []plugin.Descriptor) (processed, originals []plugin.Descriptor) {
	seen := newURLSet()
	names := newRenamer()

	var mu sync.Mutex
	var g errgroup.Group
	if p.Concurrency > 0 {
		g.SetLimit(p.Concurrency)
	}

	for _, d := range descs {
		g.Go(func() error {
			res := p.processOne(ctx, d, seen, names)

			mu.Lock()
			defer mu.Unlock()
			if res.ok {
				processed = append(processed, res.processed)
			}
			originals = append(originals, res.original)
			return nil
		})
	}
	g.Wait()

	return processed, originals
}

// processOne runs the per-descriptor algorithm: dedupe, download, rename,
// sanitize, persist, build outputs. It never returns an error; every failure
// degrades to an original-only record.
func (p *Processor) processOne(ctx context.Context, d plugin.Descriptor, seen *urlSet, names *renamer) result {
	url := d.URL()
	if url == "" {
		slog.Warn("plugin has no url, skipping", "name", d.Name())
		return result{original: d.Clone()}
	}

	// A duplicate keeps its raw descriptor in the originals output: no term
	// substitution, no collision suffix. The asymmetry with successfully
	// processed siblings is long-standing published behavior.
	if !seen.Add(url) {
		slog.Warn("duplicate plugin url, skipping", "name", d.Name(), "url", url)
		return result{original: d.Clone()}
	}

	body, err := p.Client.Get(ctx, url)
	if err != nil {
		slog.Error("plugin download failed", "name", d.Name(), "url", url, "error", err)
		return result{original: d.Clone()}
	}

	resolved := names.Resolve(d.Name())
	filename := sanitizeFilename(resolved) + scriptExt

	if err := p.Store.WriteFile(body, filePerm, PayloadDir, filename); err != nil {
		slog.Error("persisting plugin payload failed", "name", resolved, "file", filename, "error", err)
		return result{original: d.Clone()}
	}

	slog.Info("plugin mirrored", "name", resolved, "file", filename)
	return result{
		ok:        true,
		processed: d.WithName(resolved).WithURL(p.rewriteURL(filename)),
		original:  d.WithName(resolved),
	}
}

// rewriteURL points a mirrored descriptor at its stored copy: CDN-prefixed
// when a CDN base is configured, relative to the dist directory otherwise.
func (p *Processor) rewriteURL(filename string) string {
	if p.CDNBase != "" {
		return strings.TrimRight(p.CDNBase, "/") + "/" + filename
	}
	return PayloadDir + "/" + filename
}
