package update

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

// Outcome is the result of handing an asset to the platform installer.
type Outcome int

const (
	Executed Outcome = iota
	NeedsManualExtraction
	Unsupported
)

func (o Outcome) String() string {
	switch o {
	case Executed:
		return "executed"
	case NeedsManualExtraction:
		return "needs_manual_extraction"
	default:
		return "unsupported"
	}
}

// Runner executes an installer command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands attached to the current terminal.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Action is what Install would do for an asset on a platform.
type Action struct {
	Outcome Outcome
	Command []string
}

// Plan maps an asset path to its installer command on goos.
func Plan(path, goos string) Action {
	ext := Ext(path)
	switch ext {
	case ".tar.gz", ".tgz", ".zip":
		return Action{Outcome: NeedsManualExtraction}
	}
	var cmd []string
	switch goos {
	case "windows":
		switch ext {
		case ".msi":
			cmd = []string{"msiexec", "/i", path}
		case ".exe":
			cmd = []string{path}
		}
	case "darwin":
		switch ext {
		case ".pkg":
			cmd = []string{"sudo", "installer", "-pkg", path, "-target", "/"}
		case ".dmg":
			cmd = []string{"open", path}
		}
	case "linux":
		switch ext {
		case ".deb":
			cmd = []string{"sudo", "dpkg", "-i", path}
		case ".rpm":
			cmd = []string{"sudo", "rpm", "-U", path}
		case ".sh":
			cmd = []string{"sh", path}
		}
	}
	if cmd == nil {
		return Action{Outcome: Unsupported}
	}
	return Action{Outcome: Executed, Command: cmd}
}

// Install runs the planned installer for path. Only Executed actions touch
// the runner.
func Install(ctx context.Context, r Runner, path, goos string) (Action, error) {
	a := Plan(path, goos)
	if a.Outcome != Executed {
		return a, nil
	}
	if err := r.Run(ctx, a.Command[0], a.Command[1:]...); err != nil {
		return a, domain.Wrap(domain.KindIO, "run installer "+strings.Join(a.Command, " "), err)
	}
	return a, nil
}
