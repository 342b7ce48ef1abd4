package cmd

import (
	"log/slog"
	"os"

	"github.com/feedmirror/feedmirror/pkg/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Version is the desc tag embedded in published manifests.
const Version = "0.2.0"

var (
	flagVerbose     bool
	flagCDN         string
	flagData        string
	flagDist        string
	flagConcurrency int

	// Cfg holds the resolved run settings, available to all subcommands
	// after PersistentPreRunE completes.
	Cfg *config.Settings
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fmir",
		Short: "Plugin feed mirror",
		Long:  "fmir aggregates plugin descriptors from subscription feeds, mirrors their script payloads, and republishes consolidated manifests.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(flagVerbose)
			cfg, err := config.LoadSettings(config.Flags{
				CDNBase:     flagCDN,
				DataFile:    flagData,
				DistDir:     flagDist,
				Concurrency: flagConcurrency,
			})
			if err != nil {
				return err
			}
			Cfg = cfg
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagCDN, "cdn", "", "CDN base URL for rewritten plugin links (overrides CDN_URL)")
	root.PersistentFlags().StringVar(&flagData, "data", "", "path to the origins file (default data/origins.json)")
	root.PersistentFlags().StringVar(&flagDist, "dist", "", "output directory (default dist)")
	root.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "max concurrent plugin downloads (0 = unlimited)")

	root.AddCommand(newInitCmd())
	root.AddCommand(newSyncCmd())

	return root
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
