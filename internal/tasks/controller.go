package tasks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Controller issues control commands to the daemon.
type Controller interface {
	// Define registers a task from a tick script.
	Define(ctx context.Context, name, scriptPath string) error

	// Enable starts a defined task.
	Enable(ctx context.Context, name string) error
}

// CLIController drives the daemon through its command-line client.
// A command succeeds when it exits with status zero; output is only kept
// for error messages.
type CLIController struct {
	// Binary is the CLI executable, normally "kapacitor".
	Binary string

	// ScriptsDir is prepended to every tick script name.
	ScriptsDir string

	// SkipVerify passes -skipVerify. The CLI reaches the daemon by hostname
	// while the server certificate names the service, so verification fails
	// in secure mode without it.
	SkipVerify bool

	// WorkDir is the working directory for CLI invocations.
	WorkDir string
}

// Define runs "<cli> [-skipVerify] define <name> -tick <scripts>/<script>".
func (c *CLIController) Define(ctx context.Context, name, scriptPath string) error {
	return c.run(ctx, "define", name, "-tick", filepath.Join(c.ScriptsDir, scriptPath))
}

// Enable runs "<cli> [-skipVerify] enable <name>".
func (c *CLIController) Enable(ctx context.Context, name string) error {
	return c.run(ctx, "enable", name)
}

func (c *CLIController) args(sub ...string) []string {
	args := make([]string, 0, len(sub)+1)
	if c.SkipVerify {
		args = append(args, "-skipVerify")
	}
	return append(args, sub...)
}

func (c *CLIController) run(ctx context.Context, sub ...string) error {
	args := c.args(sub...)
	cmd := exec.CommandContext(ctx, c.Binary, args...) //nolint:gosec // binary comes from supervisor settings
	cmd.Dir = c.WorkDir
	// The CLI reads KAPACITOR_URL, which Launch has already rewritten.
	cmd.Env = os.Environ()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return &CommandError{
			Args:   append([]string{c.Binary}, args...),
			Output: strings.TrimSpace(out.String()),
			Err:    err,
		}
	}
	return nil
}
