// pkg/core/interface.go
package core

import (
	"context"
	"fmt"
)

// Locator is one acquisition strategy for the native dependency
type Locator interface {
	// Name returns the strategy name (e.g., "pkg-config", "source")
	Name() string

	// Locate tries to produce headers and link instructions for spec.
	// A miss is reported as NotFound, never as an error.
	Locate(ctx context.Context, spec DependencySpec) Outcome
}

// Status tags an Outcome
type Status int

const (
	// StatusFound carries a Result
	StatusFound Status = iota
	// StatusNotFound means this strategy had nothing; try the next one
	StatusNotFound
	// StatusFailed aborts the whole run
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result of one Locate call
type Outcome struct {
	Status Status
	Result *Result // set when Found
	Reason string  // set when NotFound
	Err    error   // set when Failed
}

// Found wraps a successful result.
func Found(r *Result) Outcome {
	return Outcome{Status: StatusFound, Result: r}
}

// NotFound records a miss with a human-readable reason.
func NotFound(format string, args ...interface{}) Outcome {
	return Outcome{Status: StatusNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Failed records a hard error that ends the run.
func Failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}

// Result is what a successful strategy hands to the binding generator
type Result struct {
	Strategy        string   // Which strategy produced it
	Version         string   // Version of the located library, if known
	IncludePaths    []string // Directories to search for the public header
	LinkMode        LinkMode
	LinkSearchPaths []string // Ordered -L directories
	Libraries       []string // Libraries to link, chromaprint first
	SystemLibraries []string // Runtime libraries linked dynamically (stdc++, m)
	Frameworks      []string // macOS frameworks
}
