package cmd

import (
	"log/slog"

	"github.com/feedmirror/feedmirror/pkg/config"
	"github.com/feedmirror/feedmirror/pkg/fetch"
	"github.com/feedmirror/feedmirror/pkg/manifest"
	"github.com/feedmirror/feedmirror/pkg/pipeline"
	"github.com/feedmirror/feedmirror/pkg/source"
	"github.com/feedmirror/feedmirror/pkg/store"
	"github.com/spf13/cobra"
)

const (
	mirroredManifest = "all.json"
	originalManifest = "plugins.json"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Mirror all plugins and publish manifests",
		Long: `Runs the whole pipeline once: resolves subscription feeds, downloads every
plugin payload into the content store, and writes the two manifests
(all.json with mirrored links, plugins.json with original links).`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	slog.Info("starting plugin sync", "cdn", Cfg.UseCDN())
	if Cfg.UseCDN() {
		slog.Info("CDN base configured", "url", Cfg.CDNBase)
	}

	// The content store is run-scoped: wipe and recreate before any network
	// activity. Failure here is one of the two fatal startup conditions.
	st := store.New(Cfg.DistDir)
	if err := st.Reset(pipeline.PayloadDir); err != nil {
		slog.Error("resetting content store failed", "error", err)
		return err
	}

	origins, err := config.LoadOrigins(Cfg.DataFile)
	if err != nil {
		slog.Error("loading origins failed", "error", err)
		return err
	}
	if origins.Empty() {
		slog.Warn("origins file names nothing to mirror")
		return nil
	}

	client := fetch.New(fetch.Policy{
		Attempts: Cfg.Attempts,
		Delay:    Cfg.Delay,
		Timeout:  Cfg.Timeout,
	})

	candidates := source.Collect(ctx, origins, client)
	if len(candidates) == 0 {
		slog.Warn("no plugins collected")
		return nil
	}

	slog.Info("downloading plugins", "count", len(candidates))
	proc := &pipeline.Processor{
		Client:      client,
		Store:       st,
		CDNBase:     Cfg.CDNBase,
		Concurrency: Cfg.Concurrency,
	}
	mirrored, originals := proc.ProcessAll(ctx, candidates)

	if len(mirrored) == 0 {
		slog.Error("no plugins could be mirrored")
		return nil
	}
	slog.Info("plugins mirrored", "ok", len(mirrored), "total", len(originals))

	okMirrored := manifest.Write(st.Path(mirroredManifest), manifest.Manifest{
		Desc:    Version,
		Plugins: mirrored,
	})
	okOriginal := manifest.Write(st.Path(originalManifest), manifest.Manifest{
		Desc:    Version,
		Plugins: originals,
	})

	if okMirrored && okOriginal {
		if hash, err := st.HashDir(pipeline.PayloadDir); err == nil {
			slog.Info("content store integrity", "hash", hash)
		}
		slog.Info("sync complete", "plugins", len(mirrored))
	}
	return nil
}
