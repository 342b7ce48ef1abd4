package source

import (
	"context"
	"log/slog"

	"github.com/feedmirror/feedmirror/pkg/config"
	"github.com/feedmirror/feedmirror/pkg/fetch"
	"github.com/feedmirror/feedmirror/pkg/plugin"
)

type Source interface {
	// Resolve produces the descriptors this source contributes to the run.
	// A source degrades to an empty list instead of failing the run; the
	// returned error is diagnostic only.
	Resolve(ctx context.Context) ([]plugin.Descriptor, error)
}

// Collect resolves every source in the config and flattens the results into
// one candidate list. Subscription feeds are resolved sequentially in config
// order so log output stays deterministic across runs (feed counts are small;
// concurrency here would buy nothing). Inline singles are appended last,
// verbatim, in declared order.
func Collect(ctx context.Context, cfg *config.SourceConfig, client *fetch.Client) []plugin.Descriptor {
	var all []plugin.Descriptor

	if len(cfg.Sources) > 0 {
		slog.Info("resolving subscription feeds", "count", len(cfg.Sources))
		for _, url := range cfg.Sources {
			sub := &SubscriptionSource{URL: url, Client: client}
			descs, err := sub.Resolve(ctx)
			if err != nil {
				continue
			}
			if len(descs) > 0 {
				slog.Info("feed resolved", "url", url, "plugins", len(descs))
				all = append(all, descs...)
			}
		}
	}

	if len(cfg.Singles) > 0 {
		slog.Info("adding standalone plugins", "count", len(cfg.Singles))
		static := &StaticSource{Singles: cfg.Singles}
		descs, _ := static.Resolve(ctx)
		all = append(all, descs...)
	}

	return all
}
