// Package watchcmder provides the watch command, which tails transcript
// files and feeds new lines into the pipeline as they are written.
package watchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/gleaner/cmd/gleaner/stack"
	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/agents"
	"github.com/papercomputeco/gleaner/pkg/cliui"
	"github.com/papercomputeco/gleaner/pkg/dotdir"
)

const drainTimeout = 30 * time.Second

type watchCommander struct {
	conversationID string
	reset          bool

	configDir string
	viper     *viper.Viper
	logger    *slog.Logger

	outMu sync.Mutex
	out   io.Writer
}

const watchLongDesc string = `Tail transcript files and glean claims and actions as lines arrive.

Each file is one conversation, named after the file unless --conversation is
given. Lines use the same "speaker: text" format as gleaner ingest. Only
complete lines are ingested; a partial last line waits for its newline.

How far each file has been read is saved in the .gleaner/ directory, so a
restarted watch resumes where it stopped. Use --reset to read every file
from the start.

Suggested actions are printed as they are surfaced.

Examples:
  gleaner watch ~/notes/today.txt
  gleaner watch --conversation planning planning.log
  gleaner watch --reset a.txt b.txt`

const watchShortDesc string = "Tail transcripts and ingest new lines"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <transcript>...",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cmder.conversationID != "" && len(args) > 1 {
				return errors.New("--conversation can only be used with a single transcript")
			}
			var err error
			cmder.viper, cmder.configDir, err = stack.LoadViper(cmd, nil)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = stack.NewLogger(cmd)
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context(), args)
		},
	}

	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Conversation ID (default: transcript file name)")
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Forget saved positions and read every transcript from the start")
	stack.AddFlags(cmd)

	return cmd
}

func (c *watchCommander) run(ctx context.Context, paths []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.reset {
		if err := dotdir.NewManager().ClearWatchState(c.configDir); err != nil {
			return err
		}
	}

	s, err := stack.New(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	pc := s.PipelineConfig()
	pc.OnSuggestion = c.printSuggestion
	p, err := pipeline.New(pc, c.logger)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	if err := p.Start(); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer p.Stop()

	t, err := newTailer(p, c.configDir, c.logger)
	if err != nil {
		return err
	}

	for _, path := range paths {
		abs, err := t.add(path, c.conversationID)
		if err != nil {
			return err
		}
		if _, err := t.sync(ctx, abs); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating transcript watcher: %w", err)
	}
	defer watcher.Close()

	c.outMu.Lock()
	fmt.Fprintf(c.out, "  %s Watching %d transcript(s). Press Ctrl+C to stop.\n", cliui.SuccessMark, len(paths))
	c.outMu.Unlock()

	watchErr := t.watch(ctx, watcher)

	if err := p.Drain(context.Background(), drainTimeout); err != nil {
		c.logger.Warn("pipeline did not drain", "error", err, "queue", p.Queue().Stats())
	}
	return watchErr
}

func (c *watchCommander) printSuggestion(a agents.SuggestedAction) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, "  %s %s %s\n",
		cliui.KeyStyle.Render("suggested"),
		cliui.ValueStyle.Render(a.Title),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %s)", a.DueWindow, a.ConversationID)),
	)
}
