package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/feedmirror/feedmirror/pkg/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a feedmirror working directory",
		Long:  "Creates a feedmirror.toml settings file and a seed origins file.",
		RunE:  runInit,
		// init creates the settings file; skip the root PersistentPreRunE
		// that would try to resolve it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	answers, err := promptSettings()
	if err != nil {
		return err
	}

	path, err := config.WriteSettings(wd, answers)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", filepath.Base(path))

	created, err := seedOrigins(filepath.Join(wd, answers.DataFile))
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", answers.DataFile)
	}

	return nil
}

// promptSettings uses huh to collect the initial settings interactively.
func promptSettings() (*config.Settings, error) {
	s, err := config.LoadSettings(config.Flags{})
	if err != nil {
		return nil, err
	}

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Origins file").
				Description("JSON or YAML file listing subscription feeds and standalone plugins").
				Value(&s.DataFile),
			huh.NewInput().
				Title("Output directory").
				Value(&s.DistDir),
			huh.NewInput().
				Title("CDN base URL").
				Description("Leave empty to publish relative js/ links").
				Value(&s.CDNBase),
		),
	).Run()
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}

	return s, nil
}

// seedOrigins writes an empty origins file unless one already exists.
func seedOrigins(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	seed := []byte("{\n  \"sources\": [],\n  \"singles\": []\n}\n")
	if err := os.WriteFile(path, seed, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
