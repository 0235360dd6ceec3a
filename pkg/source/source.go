// Package source obtains the chromaprint source tree at a pinned tag.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"

	"github.com/arc-language/chromabuild/pkg/archive"
	"github.com/arc-language/chromabuild/pkg/version"
)

// ErrCheckout indicates the vendored tree could not be moved to the tag
var ErrCheckout = errors.New("checkout failed")

// Cloner fetches one tag of a repository into dest
type Cloner interface {
	Clone(ctx context.Context, url, tag, dest string) error
}

// GitCloner clones in-process with go-git
type GitCloner struct {
	Progress io.Writer
}

// Clone makes a shallow, single-branch clone of the tag
func (c GitCloner) Clone(ctx context.Context, url, tag, dest string) error {
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewTagReferenceName(tag),
		SingleBranch:  true,
		Depth:         1,
		Tags:          git.NoTags,
		Progress:      c.Progress,
	})
	return err
}

// Config configures where sources come from
type Config struct {
	OutDir       string // clones and archives land in <OutDir>/chromaprint-<tag>
	Repository   string
	VendorDir    string // in-tree git working copy
	Archive      string // release tarball
	SkipCheckout bool
	Cloner       Cloner
	Logger       logrus.FieldLogger
}

// Fetcher produces a source tree for a tag
type Fetcher struct {
	config *Config
	cloner Cloner
	logger logrus.FieldLogger
}

// New creates a Fetcher
func New(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = &Config{}
	}

	logger := cfg.Logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	cloner := cfg.Cloner
	if cloner == nil {
		cloner = GitCloner{}
	}

	return &Fetcher{config: cfg, cloner: cloner, logger: logger}
}

// Dir is where Clone and Unpack place the tree for tag
func (f *Fetcher) Dir(tag version.Tag) string {
	return filepath.Join(f.config.OutDir, "chromaprint-"+tag.String())
}

// Clone removes any earlier clone and fetches the tag afresh.
// There is no retry and no mirror.
func (f *Fetcher) Clone(ctx context.Context, tag version.Tag) (string, error) {
	dest := f.Dir(tag)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("removing stale clone %s: %w", dest, err)
	}

	f.logger.WithFields(logrus.Fields{
		"repository": f.config.Repository,
		"tag":        tag.String(),
		"dest":       dest,
	}).Info("Cloning source")

	if err := f.cloner.Clone(ctx, f.config.Repository, tag.String(), dest); err != nil {
		return "", fmt.Errorf("git clone %s at %s failed: %w", f.config.Repository, tag, err)
	}
	return dest, nil
}

// Checkout moves the vendored working tree to the tag. Failures wrap
// ErrCheckout.
func (f *Fetcher) Checkout(ctx context.Context, tag version.Tag) (string, error) {
	dir := f.config.VendorDir
	log := f.logger.WithFields(logrus.Fields{"dir": dir, "tag": tag.String()})

	if f.config.SkipCheckout {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return "", fmt.Errorf("%w: vendored tree %s is missing", ErrCheckout, dir)
		}
		log.Info("Using vendored tree as is")
		return dir, nil
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrCheckout, dir, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(tag.String()))
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", ErrCheckout, tag, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCheckout, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCheckout, tag, err)
	}

	log.WithField("commit", hash.String()[:12]).Info("Checked out vendored tree")
	return dir, nil
}

// Unpack extracts the release tarball; its single top-level directory
// becomes the source root
func (f *Fetcher) Unpack(tag version.Tag) (string, error) {
	if f.config.Archive == "" {
		return "", fmt.Errorf("no source archive configured")
	}

	dest := f.Dir(tag)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("removing stale tree %s: %w", dest, err)
	}

	if _, _, err := archive.NewExtractor(f.logger).Extract(f.config.Archive, dest); err != nil {
		return "", fmt.Errorf("unpacking %s: %w", filepath.Base(f.config.Archive), err)
	}
	return archive.SingleRoot(dest)
}
