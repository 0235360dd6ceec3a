// Package archive unpacks source tarballs and prebuilt development packages.
package archive

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Kind identifies an archive format
type Kind string

const (
	KindUnknown Kind = ""
	KindTar     Kind = "tar"
	KindTarGz   Kind = "tar.gz"
	KindTarXz   Kind = "tar.xz"
	KindTarZst  Kind = "tar.zst"
	KindDeb     Kind = "deb"
	KindRPM     Kind = "rpm"
	KindNar     Kind = "nar"
	KindNarXz   Kind = "nar.xz"
)

// DetectKind guesses the archive format from the file name
func DetectKind(path string) Kind {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return KindTarXz
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return KindTarZst
	case strings.HasSuffix(name, ".tar"):
		return KindTar
	case strings.HasSuffix(name, ".deb"):
		return KindDeb
	case strings.HasSuffix(name, ".rpm"):
		return KindRPM
	case strings.HasSuffix(name, ".nar.xz"):
		return KindNarXz
	case strings.HasSuffix(name, ".nar"):
		return KindNar
	default:
		return KindUnknown
	}
}

// Stats counts what an extraction wrote
type Stats struct {
	Files    int
	Dirs     int
	Symlinks int
}

// Extractor unpacks archives into a destination directory
type Extractor struct {
	logger logrus.FieldLogger
}

// NewExtractor creates an Extractor. A nil logger discards output.
func NewExtractor(logger logrus.FieldLogger) *Extractor {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Extractor{logger: logger}
}

// Extract unpacks path into dest according to its detected kind
func (x *Extractor) Extract(path, dest string) (Kind, *Stats, error) {
	kind := DetectKind(path)
	if kind == KindUnknown {
		return kind, nil, fmt.Errorf("unrecognised archive format: %s", filepath.Base(path))
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return kind, nil, fmt.Errorf("creating destination directory: %w", err)
	}

	x.logger.WithFields(logrus.Fields{
		"archive": path,
		"kind":    kind,
		"dest":    dest,
	}).Debug("Extracting archive")

	var stats *Stats
	var err error

	switch kind {
	case KindDeb:
		stats, err = x.extractDeb(path, dest)
	case KindRPM:
		stats, err = x.extractRPM(path, dest)
	case KindNar, KindNarXz:
		stats, err = x.extractNAR(path, dest, kind == KindNarXz)
	default:
		stats, err = x.extractTarFile(path, dest)
	}
	if err != nil {
		return kind, nil, err
	}

	x.logger.WithFields(logrus.Fields{
		"files":    stats.Files,
		"dirs":     stats.Dirs,
		"symlinks": stats.Symlinks,
	}).Debug("Extraction complete")

	return kind, stats, nil
}

func (x *Extractor) extractTarFile(path, dest string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	return x.extractTar(bufio.NewReader(f), filepath.Base(path), dest)
}

// extractDeb extracts a .deb package using the ar and tar formats
func (x *Extractor) extractDeb(debPath, dest string) (*Stats, error) {
	f, err := os.Open(debPath)
	if err != nil {
		return nil, fmt.Errorf("opening .deb file: %w", err)
	}
	defer f.Close()

	arReader := ar.NewReader(f)

	for {
		header, err := arReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ar entry: %w", err)
		}

		x.logger.Debugf("Found ar member: %s (%d bytes)", header.Name, header.Size)

		// data.tar.xz, data.tar.gz, data.tar.zst, ...
		if strings.HasPrefix(header.Name, "data.tar") {
			return x.extractTar(arReader, header.Name, dest)
		}
	}

	return nil, fmt.Errorf("no data.tar.* found in .deb package")
}

// decompress wraps r according to the compression suffix of name
func decompress(r io.Reader, name string) (io.Reader, func(), error) {
	noop := func() {}
	name = strings.TrimSuffix(strings.ToLower(name), "/")

	switch {
	case strings.HasSuffix(name, ".gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case strings.HasSuffix(name, ".xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating xz reader: %w", err)
		}
		return xr, noop, nil
	case strings.HasSuffix(name, ".zst"), strings.HasSuffix(name, ".tzst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, fmt.Errorf("creating zstd reader: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, noop, nil
	}
}

// extractTar extracts a possibly compressed tar stream
func (x *Extractor) extractTar(r io.Reader, name, dest string) (*Stats, error) {
	plain, closeFn, err := decompress(r, name)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	tarReader := tar.NewReader(plain)
	stats := &Stats{}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}

		// Clean the path (remove leading ./)
		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}

		targetPath, err := safeJoin(dest, cleanPath)
		if err != nil {
			return nil, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", targetPath, err)
			}
			stats.Dirs++

		case tar.TypeSymlink:
			if err := writeSymlink(targetPath, header.Linkname); err != nil {
				return nil, err
			}
			stats.Symlinks++

		case tar.TypeReg:
			if err := writeFile(targetPath, tarReader, os.FileMode(header.Mode)&0777, header.Size); err != nil {
				return nil, err
			}
			stats.Files++

		default:
			x.logger.Debugf("Skipping unsupported file type %v for %s", header.Typeflag, cleanPath)
		}
	}

	return stats, nil
}

// safeJoin rejects entries that would land outside dest
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func writeSymlink(target, linkname string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory for symlink: %w", err)
	}
	// Remove existing symlink if it exists
	os.Remove(target)
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("creating symlink %s -> %s: %w", target, linkname, err)
	}
	return nil
}

// writeFile copies r into target; size < 0 skips the length check
func writeFile(target string, r io.Reader, perm os.FileMode, size int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	if perm == 0 {
		perm = 0644
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", target, err)
	}

	written, err := io.Copy(outFile, r)
	outFile.Close()
	if err != nil {
		return fmt.Errorf("writing file %s: %w", target, err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("file size mismatch for %s: expected %d, got %d", target, size, written)
	}

	return nil
}

// SingleRoot returns dir's only subdirectory when dir holds exactly one
// entry and it is a directory, as release tarballs do. Otherwise dir.
func SingleRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
