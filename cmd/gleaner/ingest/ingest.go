// Package ingestcmder provides the ingest command, which runs a transcript
// through the pipeline and reports what was gleaned from it.
package ingestcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/gleaner/cmd/gleaner/stack"
	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/cliui"
	"github.com/papercomputeco/gleaner/pkg/logger"
	"github.com/papercomputeco/gleaner/pkg/taskqueue"
	"github.com/papercomputeco/gleaner/pkg/transcript"
)

type ingestCommander struct {
	conversationID string
	timeout        time.Duration
	jsonOutput     bool

	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
	out       io.Writer
	in        io.Reader
}

const ingestLongDesc string = `Ingest a conversation transcript and report what was gleaned.

The transcript holds one turn per line in the form "speaker: text". Lines
without a speaker prefix are attributed to "user"; blank lines and lines
starting with # are skipped. Use - to read from stdin.

Every turn is queued into one conversation and the pipeline runs until the
queue is empty. The report lists the claims and actions linked to the
conversation, review items raised for them and the suggestions awaiting a
decision.

Examples:
  gleaner ingest standup.txt
  gleaner ingest --conversation weekly-sync notes.txt
  cat chat.log | gleaner ingest - --json`

const ingestShortDesc string = "Ingest a transcript and report claims and actions"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <transcript>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, cmder.configDir, err = stack.LoadViper(cmd, nil)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = stack.NewLogger(cmd)
			cmder.out = cmd.OutOrStdout()
			cmder.in = cmd.InOrStdin()
			return cmder.run(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Conversation ID (default: transcript file name)")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 5*time.Minute, "How long to wait for the pipeline to finish")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json", false, "Print the report as JSON")
	stack.AddFlags(cmd)

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, path string) error {
	turns, err := c.readTranscript(path)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("no turns found in %s", path)
	}

	convID := c.conversationID
	if convID == "" {
		convID = conversationFromPath(path)
	}

	s, err := stack.New(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := pipeline.New(s.PipelineConfig(), c.logger)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}
	if err := p.Start(); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer p.Stop()

	progress := c.out
	if c.jsonOutput {
		progress = io.Discard
	}

	err = cliui.Step(progress, fmt.Sprintf("Gleaning %d turns from %s", len(turns), convID), func() error {
		return Run(ctx, p, convID, turns, c.timeout)
	})
	if err != nil {
		return err
	}

	report, err := BuildReport(ctx, p, convID, len(turns))
	if err != nil {
		return err
	}

	return c.print(report)
}

func (c *ingestCommander) readTranscript(path string) ([]taskqueue.Turn, error) {
	if path == "-" {
		return transcript.Parse(c.in)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	return transcript.Parse(f)
}

func (c *ingestCommander) print(report *Report) error {
	if c.jsonOutput {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	md := report.Markdown()
	render := cliui.RenderMarkdownPlain
	if logger.IsTerminal() {
		render = cliui.RenderMarkdown
	}

	rendered, err := render(md)
	if err != nil {
		// fall back to the raw markdown
		rendered = md
	}
	_, err = fmt.Fprint(c.out, rendered)
	return err
}

// Run ingests turns into one conversation and waits for the pipeline to
// process them and everything they spawn.
func Run(ctx context.Context, p *pipeline.Pipeline, conversationID string, turns []taskqueue.Turn, timeout time.Duration) error {
	for i, turn := range turns {
		if _, err := p.Ingest(ctx, conversationID, turn); err != nil {
			return fmt.Errorf("ingesting turn %d: %w", i+1, err)
		}
	}

	if err := p.Drain(ctx, timeout); err != nil {
		return fmt.Errorf("waiting for pipeline: %w", err)
	}
	return nil
}

func conversationFromPath(path string) string {
	if path == "-" {
		return fmt.Sprintf("stdin-%d", time.Now().Unix())
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
