// errors.go
package chromabuild

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved indicates that no acquisition strategy produced chromaprint
	ErrUnresolved = errors.New("native dependency unresolved")

	// ErrInvalidConfig indicates the build configuration is rejected
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedPlatform indicates the target platform has no strategies
	ErrUnsupportedPlatform = errors.New("platform not supported")
)

// Error wraps an error with additional context
type Error struct {
	Op      string // Operation that failed
	Package string // Dependency name if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UnresolvedError lists why every attempted strategy missed.
type UnresolvedError struct {
	Package string
	Misses  []Miss
}

// Miss is one strategy's reason for not producing a result.
type Miss struct {
	Strategy string
	Reason   string
}

func (e *UnresolvedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Package, ErrUnresolved)
	for _, m := range e.Misses {
		fmt.Fprintf(&b, "\n  %s: %s", m.Strategy, m.Reason)
	}
	return b.String()
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolved
}
