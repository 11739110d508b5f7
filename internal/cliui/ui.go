// Package cliui renders operator output for the repozip CLI.
package cliui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

type UI struct {
	Title func(a ...any) string
	OK    func(a ...any) string
	Info  func(a ...any) string
	Warn  func(a ...any) string
	Err   func(a ...any) string
	Dim   func(a ...any) string

	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader
	inFd   int
	// animate enables spinners and progress bars.
	animate bool
}

// New returns a UI bound to the process streams.
func New() *UI {
	u := NewWithStreams(os.Stdin, os.Stdout, os.Stderr)
	u.inFd = int(os.Stdin.Fd())
	u.animate = term.IsTerminal(int(os.Stderr.Fd()))
	return u
}

// NewWithStreams returns a non-animated UI over arbitrary streams.
func NewWithStreams(in io.Reader, out, errOut io.Writer) *UI {
	return &UI{
		Title:  color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		OK:     color.New(color.FgGreen, color.Bold).SprintFunc(),
		Info:   color.New(color.FgCyan).SprintFunc(),
		Warn:   color.New(color.FgYellow).SprintFunc(),
		Err:    color.New(color.FgRed, color.Bold).SprintFunc(),
		Dim:    color.New(color.FgHiBlack).SprintFunc(),
		out:    out,
		errOut: errOut,
		in:     bufio.NewReader(in),
		inFd:   -1,
	}
}

func (u *UI) Out() io.Writer { return u.out }

func (u *UI) Okf(format string, args ...any) {
	fmt.Fprintf(u.out, "%s %s\n", u.OK("[OK]"), fmt.Sprintf(format, args...))
}

func (u *UI) Infof(format string, args ...any) {
	fmt.Fprintf(u.out, "%s %s\n", u.Info("[INFO]"), fmt.Sprintf(format, args...))
}

func (u *UI) Warnf(format string, args ...any) {
	fmt.Fprintf(u.out, "%s %s\n", u.Warn("[WARN]"), fmt.Sprintf(format, args...))
}

// Error writes err to the diagnostic stream.
func (u *UI) Error(err error) {
	fmt.Fprintln(u.errOut, u.Err("[ERROR]"), err.Error())
}

// Field prints an indented "label: value" line.
func (u *UI) Field(label string, value any) {
	fmt.Fprintf(u.out, "  %s %v\n", u.Dim(label+":"), value)
}

// Spin starts a spinner with suffix and returns its stop function.
func (u *UI) Spin(suffix string) func() {
	if !u.animate {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(u.errOut))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// EntryBar counts archive entries of unknown total.
func (u *UI) EntryBar(desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(u.barWriter()),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(18),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// BytesBar tracks a download of total bytes; -1 means unknown.
func (u *UI) BytesBar(total int64, desc string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(u.barWriter()),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(24),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (u *UI) barWriter() io.Writer {
	if !u.animate {
		return io.Discard
	}
	return u.errOut
}

// Prompt reads one line, returning def on empty input.
func (u *UI) Prompt(label, def string) string {
	if def != "" {
		fmt.Fprintf(u.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(u.out, "%s: ", label)
	}
	line, _ := u.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// Confirm asks a yes/no question. EOF without an answer means def.
func (u *UI) Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	fmt.Fprintf(u.out, "%s [%s]: ", label, hint)
	line, err := u.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PromptSecret reads a value without echo when stdin is a terminal.
func (u *UI) PromptSecret(label string) (string, error) {
	fmt.Fprintf(u.out, "%s: ", label)
	if u.inFd >= 0 && term.IsTerminal(u.inFd) {
		b, err := term.ReadPassword(u.inFd)
		fmt.Fprintln(u.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := u.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func MaskToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "<unset>"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

// Bytes renders n like "1.2 MB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Ago renders t relative to now, like "3 hours ago".
func Ago(t time.Time) string { return humanize.Time(t) }
