package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"tasker/internal/cache"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	purgeCache bool
}

// SetPurgeCache also removes the local cache file (for testing).
func (c *LogoutCmd) SetPurgeCache(purge bool) {
	c.purgeCache = purge
}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "tasker logout [--purge-cache]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.purgeCache, "purge-cache", false, "")
}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if c.purgeCache {
		if err := removeCacheFile(cfg); err != nil {
			fmt.Fprintf(errOut, "error: failed to remove cache: %v\n", err)
			return exitcode.BackendError
		}
	}

	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	if err := cfg.RemoveToken(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// removeCacheFile deletes the file-backed cache snapshot, if any. Postgres
// and memory caches have no file and are left alone.
func removeCacheFile(cfg *config.Config) error {
	switch cfg.Cache.Driver {
	case "", cache.DriverJSON, cache.DriverSQLite:
	default:
		return nil
	}
	err := os.Remove(cfg.CachePath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
