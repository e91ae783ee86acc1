// Package servecmder provides the serve command, which runs the pipeline
// behind the HTTP API and MCP endpoint.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/gleaner/api"
	"github.com/papercomputeco/gleaner/api/mcp"
	"github.com/papercomputeco/gleaner/cmd/gleaner/stack"
	"github.com/papercomputeco/gleaner/pipeline"
	"github.com/papercomputeco/gleaner/pkg/config"
)

const drainTimeout = 10 * time.Second

type serveCommander struct {
	listen    string
	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
}

var serveFlags = config.FlagSet{
	config.FlagAPIListen: {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
}

const serveLongDesc string = `Run the gleaner pipeline and its API server.

Turns posted to /conversations/:id/turns are queued, extracted into claims
and actions, validated against memory and published. Suggested actions are
surfaced one at a time through /suggestions. The MCP endpoint at /mcp
exposes the claims_search and claims_list tools.

On SIGINT or SIGTERM the server stops accepting requests and the pipeline
drains queued work before exiting.

Examples:
  gleaner serve
  gleaner serve --listen :9000 --storage-provider postgres --postgres-dsn postgres://localhost/gleaner
  gleaner serve --event-stream-provider kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the gleaner pipeline and API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, cmder.configDir, err = stack.LoadViper(cmd, serveFlags, config.FlagAPIListen)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.listen = cmder.viper.GetString("api.listen")
			cmder.logger = stack.NewLogger(cmd)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	stack.AddFlags(cmd)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := stack.New(ctx, c.viper, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := pipeline.New(s.PipelineConfig(), c.logger)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Searcher: p,
		Memory:   s.Memory,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server, err := api.NewServer(api.Config{
		ListenAddr: c.listen,
		MCPHandler: mcpServer.Handler(),
	}, p, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := p.Start(); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down")

		err := server.Shutdown()
		c.drain(p)
		p.Stop()
		return err
	})

	return g.Wait()
}

// drain lets queued turns finish after the listener has closed. A timeout
// leaves the remaining tasks unprocessed.
func (c *serveCommander) drain(p *pipeline.Pipeline) {
	if err := p.Drain(context.Background(), drainTimeout); err != nil {
		c.logger.Warn("pipeline did not drain", "error", err, "queue", p.Queue().Stats())
	}
}
