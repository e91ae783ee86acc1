// Package initcmder provides the init command for initializing a local
// .gleaner directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/gleaner/pkg/cliui"
	"github.com/papercomputeco/gleaner/pkg/config"
)

const (
	dirName      = ".gleaner"
	fetchTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .gleaner/ directory in the current working directory.

Creates a local .gleaner/ directory that takes precedence over the default
~/.gleaner/ directory for configuration, the memory database, the vector
index and watch state.

A config.toml is written on first init. Use --preset to pick a provider
preset (openai, ollama) or to fetch a config.toml from a URL; a preset
always overwrites the existing config.

Examples:
  gleaner init
  gleaner init --preset openai
  gleaner init --preset https://example.com/gleaner/config.toml`

const initShortDesc string = "Initialize a local .gleaner/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+") or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .gleaner directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := c.resolveConfig(ctx, cfger.GetTarget())
	if err != nil {
		return err
	}

	if cfg != nil {
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(cfger.GetTarget()))
	}

	if existed {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
		return nil
	}

	fmt.Fprintf(c.out, "Initialized .gleaner directory: %s\n", dir)
	return nil
}

// resolveConfig returns the config to write, or nil to keep the existing
// file.
func (c *initCommander) resolveConfig(ctx context.Context, target string) (*config.Config, error) {
	switch {
	case c.preset == "":
		if _, err := os.Stat(target); err == nil {
			return nil, nil
		}
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(ctx, c.preset)

	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
