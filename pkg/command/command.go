// Package command runs the external tools chromabuild drives (pkg-config, cmake).
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotInstalled indicates the tool binary is not on PATH
var ErrNotInstalled = errors.New("command not installed")

// Cmd describes one invocation
type Cmd struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the process environment
}

// String renders the command line for logs
func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands. Run passes output through, Output captures stdout.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, cmd Cmd) error
	Output(ctx context.Context, cmd Cmd) ([]byte, error)
}

// Config configures an Exec runner
type Config struct {
	Stdout io.Writer // defaults to os.Stderr, stdout carries directives
	Stderr io.Writer // defaults to os.Stderr
	Logger logrus.FieldLogger
}

// Exec runs commands with os/exec
type Exec struct {
	stdout io.Writer
	stderr io.Writer
	logger logrus.FieldLogger
}

// NewExec creates a Runner backed by os/exec
func NewExec(cfg *Config) *Exec {
	if cfg == nil {
		cfg = &Config{}
	}

	x := &Exec{stdout: cfg.Stdout, stderr: cfg.Stderr, logger: cfg.Logger}
	if x.stdout == nil {
		x.stdout = os.Stderr
	}
	if x.stderr == nil {
		x.stderr = os.Stderr
	}
	if x.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		x.logger = l
	}
	return x
}

// LookPath reports where name is installed
func (x *Exec) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}
	return path, nil
}

func (x *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

// Run executes c with its output passed through
func (x *Exec) Run(ctx context.Context, c Cmd) error {
	x.logger.WithField("dir", c.Dir).Debugf("Running %s", c)

	cmd := x.command(ctx, c)
	cmd.Stdout = x.stdout
	cmd.Stderr = x.stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	return nil
}

// Output executes c and returns its standard output
func (x *Exec) Output(ctx context.Context, c Cmd) ([]byte, error) {
	x.logger.WithField("dir", c.Dir).Debugf("Running %s", c)

	cmd := x.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return out, fmt.Errorf("%s: %w: %s", c.Name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", c.Name, err)
	}
	return out, nil
}
