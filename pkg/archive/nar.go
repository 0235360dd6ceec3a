package archive

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"zombiezen.com/go/nix/nar"
)

// extractNAR extracts a Nix archive, optionally xz-compressed
func (x *Extractor) extractNAR(narPath, dest string, compressed bool) (*Stats, error) {
	f, err := os.Open(narPath)
	if err != nil {
		return nil, fmt.Errorf("opening NAR file: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if compressed {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		r = xr
	}

	narReader := nar.NewReader(r)
	stats := &Stats{}

	for {
		hdr, err := narReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading NAR entry: %w", err)
		}

		targetPath, err := safeJoin(dest, hdr.Path)
		if err != nil {
			return nil, err
		}

		switch hdr.Mode.Type() {
		case fs.ModeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", targetPath, err)
			}
			stats.Dirs++
		case fs.ModeSymlink:
			if err := writeSymlink(targetPath, hdr.LinkTarget); err != nil {
				return nil, err
			}
			stats.Symlinks++
		case 0: // Regular file
			perm := os.FileMode(0644)
			if hdr.Mode&0111 != 0 {
				perm = 0755
			}
			if err := writeFile(targetPath, narReader, perm, hdr.Size); err != nil {
				return nil, err
			}
			stats.Files++
		}
	}

	return stats, nil
}

func walkTree(dir string, fn func(os.FileMode)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		fn(d.Type())
		return nil
	})
}
