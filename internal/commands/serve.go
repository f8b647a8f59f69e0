package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/httpapi"
	"tasker/internal/observability"
	"tasker/internal/service"
)

func init() {
	Register(&ServeCmd{})
}

// Instrumented is implemented by services that carry their own logger and
// metrics, which serve then exposes.
type Instrumented interface {
	Logger() *slog.Logger
	Metrics() *observability.Metrics
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the task API over HTTP until interrupted" }
func (c *ServeCmd) Usage() string     { return "tasker serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsAuth() bool   { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	addr := c.addr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	var (
		logger  *slog.Logger
		metrics *observability.Metrics
	)
	if inst, ok := svc.(Instrumented); ok {
		logger, metrics = inst.Logger(), inst.Metrics()
	}

	if !cfg.Quiet {
		fmt.Fprintf(errOut, "serving on http://%s\n", addr)
	}
	if err := httpapi.New(svc, metrics, logger).ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(errOut, "error: serve: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
