package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime/debug"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

// Version is the application version. Set at build time.
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	verbose bool
}

// SetVerbose adds build and backend details (for testing).
func (c *VersionCmd) SetVerbose(on bool) { c.verbose = on }

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "tasker version [--verbose]" }
func (c *VersionCmd) NeedsAuth() bool   { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "verbose", false, "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "%s %s\n", config.AppName, Version)
	if !c.verbose {
		return exitcode.Success
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(out, "go:      %s\n", info.GoVersion)
	}
	fmt.Fprintf(out, "backend: %s\n", cfg.Backend)
	fmt.Fprintf(out, "cache:   %s (%s)\n", cfg.Cache.Driver, cfg.CachePath())
	fmt.Fprintf(out, "config:  %s\n", cfg.Dir)
	return exitcode.Success
}
