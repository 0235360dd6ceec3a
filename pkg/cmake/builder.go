package cmake

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/command"
)

// DefaultBinary is the cmake executable looked up on PATH
const DefaultBinary = "cmake"

// Config configures a Builder
type Config struct {
	Binary string
	Runner command.Runner
	Logger logrus.FieldLogger
}

// Builder runs the configure, build and install steps
type Builder struct {
	binary string
	runner command.Runner
	logger logrus.FieldLogger
}

// Report describes what a build produced
type Report struct {
	LibDir    string
	Artifacts []Artifact
	Library   *Artifact // the configured target, nil without a reply
}

// New creates a Builder
func New(cfg *Config) *Builder {
	if cfg == nil {
		cfg = &Config{}
	}

	b := &Builder{binary: cfg.Binary, runner: cfg.Runner, logger: cfg.Logger}
	if b.binary == "" {
		b.binary = DefaultBinary
	}
	if b.runner == nil {
		b.runner = command.NewExec(nil)
	}
	if b.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		b.logger = l
	}
	return b
}

// Build configures, builds and installs. Tool output passes through.
func (b *Builder) Build(ctx context.Context, c *Configuration) (*Report, error) {
	if _, err := b.runner.LookPath(b.binary); err != nil {
		return nil, err
	}

	log := b.logger.WithFields(logrus.Fields{
		"source":  c.SourceDir,
		"build":   c.BuildDir,
		"install": c.InstallDir,
	})

	if err := WriteQuery(c.BuildDir); err != nil {
		return nil, err
	}

	log.Info("Configuring")
	if err := b.runner.Run(ctx, command.Cmd{Name: b.binary, Args: c.ConfigureArgs()}); err != nil {
		return nil, fmt.Errorf("cmake configure: %w", err)
	}

	log.Info("Building and installing")
	if err := b.runner.Run(ctx, command.Cmd{Name: b.binary, Args: c.BuildArgs()}); err != nil {
		return nil, fmt.Errorf("cmake build: %w", err)
	}

	report := &Report{LibDir: c.LibDir()}

	artifacts, err := ReadReply(c.BuildDir)
	if err != nil {
		log.WithError(err).Debug("No file-api reply")
		return report, nil
	}
	report.Artifacts = artifacts

	checked := artifacts
	if c.Target != "" {
		for i := range artifacts {
			if artifacts[i].Target == c.Target {
				report.Library = &artifacts[i]
			}
		}
		if report.Library == nil {
			return nil, fmt.Errorf("cmake built no library target %q", c.Target)
		}
		checked = []Artifact{*report.Library}
	}

	for _, a := range checked {
		log.WithFields(logrus.Fields{"target": a.Target, "type": a.Type}).Debug("Built library")
		if c.Static && a.Shared() {
			log.WithField("target", a.Target).Warn("Static build requested but a shared library was produced")
		}
	}

	return report, nil
}
