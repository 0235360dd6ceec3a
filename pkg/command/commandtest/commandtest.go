// Package commandtest provides a command.Runner that records invocations
// for tests.
package commandtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arc-language/chromabuild/pkg/command"
)

// Recorder is a command.Runner that records invocations instead of
// executing them.
// Tests register canned replies keyed by the rendered command line.
type Recorder struct {
	mu        sync.Mutex
	Installed map[string]bool           // binaries LookPath finds
	Replies   map[string]string         // command line -> stdout
	Failures  map[string]error          // command line -> error
	Hook      func(c command.Cmd) error // optional side effect for Run
	calls     []command.Cmd
}

var _ command.Runner = (*Recorder)(nil)

// NewRecorder creates a Recorder that finds the named binaries
func NewRecorder(installed ...string) *Recorder {
	r := &Recorder{
		Installed: make(map[string]bool),
		Replies:   make(map[string]string),
		Failures:  make(map[string]error),
	}
	for _, name := range installed {
		r.Installed[name] = true
	}
	return r
}

// Reply registers the stdout returned for a command line
func (r *Recorder) Reply(line, stdout string) *Recorder {
	r.Replies[line] = stdout
	return r
}

// Fail registers an error returned for a command line
func (r *Recorder) Fail(line string, err error) *Recorder {
	r.Failures[line] = err
	return r
}

// Calls returns every command run so far
func (r *Recorder) Calls() []command.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Cmd(nil), r.calls...)
}

// Lines returns the rendered command lines run so far
func (r *Recorder) Lines() []string {
	var lines []string
	for _, c := range r.Calls() {
		lines = append(lines, c.String())
	}
	return lines
}

// LookPath implements Runner
func (r *Recorder) LookPath(name string) (string, error) {
	if r.Installed[name] {
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("%w: %s", command.ErrNotInstalled, name)
}

func (r *Recorder) record(c command.Cmd) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	line := c.String()
	if err, ok := r.Failures[line]; ok {
		return "", err
	}
	if out, ok := r.Replies[line]; ok {
		return out, nil
	}
	// Prefix match lets tests register a reply for a family of arguments
	for key, out := range r.Replies {
		if strings.HasSuffix(key, "*") && strings.HasPrefix(line, strings.TrimSuffix(key, "*")) {
			return out, nil
		}
	}
	return "", nil
}

// Run implements Runner
func (r *Recorder) Run(ctx context.Context, c command.Cmd) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.record(c); err != nil {
		return err
	}
	if r.Hook != nil {
		return r.Hook(c)
	}
	return nil
}

// Output implements Runner
func (r *Recorder) Output(ctx context.Context, c command.Cmd) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := r.record(c)
	return []byte(out), err
}
