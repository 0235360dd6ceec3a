// pkg/core/package.go
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arc-language/chromabuild/pkg/platform"
	"github.com/arc-language/chromabuild/pkg/version"
)

// DependencyName is the native library this tool acquires.
const DependencyName = "chromaprint"

var (
	// ErrInvalidFFT indicates an unknown or ambiguous transform backend
	ErrInvalidFFT = errors.New("invalid FFT backend")

	// ErrPlatformMismatch indicates a backend that cannot be built for the target
	ErrPlatformMismatch = errors.New("FFT backend not available on target")
)

// LinkMode selects how the consumer links chromaprint
type LinkMode string

const (
	LinkDynamic LinkMode = "dynamic"
	LinkStatic  LinkMode = "static"
)

// FFT names one of chromaprint's transform backends
type FFT string

const (
	// FFTDefault leaves the choice to chromaprint's CMake script
	FFTDefault FFT = ""
	FFTAvFFT   FFT = "avfft"
	FFTFFTW3   FFT = "fftw3"
	FFTKissFFT FFT = "kissfft"
	// FFTVDSP is Apple's Accelerate framework, darwin and ios only
	FFTVDSP FFT = "vdsp"
)

// AllFFT lists the selectable backends
var AllFFT = []FFT{FFTAvFFT, FFTFFTW3, FFTKissFFT, FFTVDSP}

// ParseFFT accepts a single backend name. A comma or space separated list
// naming more than one backend is rejected: the choices are exclusive.
func ParseFFT(s string) (FFT, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	switch len(fields) {
	case 0:
		return FFTDefault, nil
	case 1:
	default:
		return "", fmt.Errorf("%w: %q selects %d backends, pick one of %v", ErrInvalidFFT, s, len(fields), AllFFT)
	}

	name := FFT(strings.ToLower(fields[0]))
	for _, f := range AllFFT {
		if f == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q, pick one of %v", ErrInvalidFFT, fields[0], AllFFT)
}

// Supports reports whether the backend can be built for the target.
func (f FFT) Supports(t platform.Target) bool {
	if f == FFTVDSP {
		return t.IsApple()
	}
	return true
}

// DependencySpec is the immutable description of what to acquire.
// It is derived once per run and passed by value.
type DependencySpec struct {
	Name   string
	Tag    version.Tag
	Static bool
	FFT    FFT
	Target platform.Target
}

// LinkMode returns the requested link mode.
func (s DependencySpec) LinkMode() LinkMode {
	if s.Static {
		return LinkStatic
	}
	return LinkDynamic
}

// String is used in log fields and error messages.
func (s DependencySpec) String() string {
	fft := string(s.FFT)
	if fft == "" {
		fft = "default"
	}
	return fmt.Sprintf("%s@%s (%s, fft=%s, %s)", s.Name, s.Tag, s.LinkMode(), fft, s.Target)
}
