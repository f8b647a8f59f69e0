package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command (alias: create).
type AddCmd struct {
	description string
	printID     bool
}

// SetDescription sets the description (for testing).
func (c *AddCmd) SetDescription(desc string) {
	c.description = desc
}

// SetPrintID makes the command print the new task's id (for testing).
func (c *AddCmd) SetPrintID(on bool) {
	c.printID = on
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "tasker add [--desc <text>] [--print-id] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "desc", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.BoolVar(&c.printID, "print-id", false, "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		return usageError(errOut, "title required")
	}

	task, err := svc.CreateTask(ctx, title, c.description)
	if err != nil {
		return reportError(errOut, err)
	}

	switch {
	case c.printID:
		fmt.Fprintln(out, task.ID)
	case !cfg.Quiet:
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
