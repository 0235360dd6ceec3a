package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
	"github.com/sassoftware/go-rpmutils"
	"github.com/ulikunitz/xz"
)

// extractRPM extracts an .rpm package
func (x *Extractor) extractRPM(rpmPath, dest string) (*Stats, error) {
	f, err := os.Open(rpmPath)
	if err != nil {
		return nil, fmt.Errorf("opening rpm file: %w", err)
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		x.logger.Debugf("rpmutils could not read header (%v), scanning for cpio stream", err)
		return x.extractRPMPayload(rpmPath, dest)
	}

	name, _ := rpm.Header.GetString(rpmutils.NAME)
	ver, _ := rpm.Header.GetString(rpmutils.VERSION)
	x.logger.Debugf("RPM package %s-%s", name, ver)

	err = rpm.ExpandPayload(dest)
	if err == nil {
		return countTree(dest)
	}

	x.logger.Debugf("rpmutils could not expand payload (%v), scanning for cpio stream", err)
	return x.extractRPMPayload(rpmPath, dest)
}

// extractRPMPayload finds the compressed cpio payload by its magic bytes
// and unpacks it directly
func (x *Extractor) extractRPMPayload(rpmPath, dest string) (*Stats, error) {
	f, err := os.Open(rpmPath)
	if err != nil {
		return nil, fmt.Errorf("opening rpm file: %w", err)
	}
	defer f.Close()

	// Scanning the first 1MB should be enough to skip RPM headers.
	buf := make([]byte, 1024*1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var offset int64 = -1
	var format string

	for i := 0; i < n-6; i++ {
		if buf[i] == 0x1f && buf[i+1] == 0x8b {
			offset, format = int64(i), "gzip"
			break
		}
		if buf[i] == 0x28 && buf[i+1] == 0xb5 && buf[i+2] == 0x2f && buf[i+3] == 0xfd {
			offset, format = int64(i), "zstd"
			break
		}
		if buf[i] == 0xfd && buf[i+1] == 0x37 && buf[i+2] == 0x7a && buf[i+3] == 0x58 && buf[i+4] == 0x5a && buf[i+5] == 0x00 {
			offset, format = int64(i), "xz"
			break
		}
	}

	if offset == -1 {
		return nil, fmt.Errorf("could not find compressed archive within RPM (scanned %d bytes)", n)
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to payload: %w", err)
	}

	var reader io.Reader
	switch format {
	case "gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "zstd":
		zs, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zs.Close()
		reader = zs
	case "xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, err
		}
		reader = xr
	}

	return extractCPIO(reader, dest)
}

// cpio mode bits, as in stat(2)
const (
	cpioTypeMask    = 0170000
	cpioTypeDir     = 0040000
	cpioTypeReg     = 0100000
	cpioTypeSymlink = 0120000
)

func extractCPIO(r io.Reader, dest string) (*Stats, error) {
	cpioReader := cpio.NewReader(r)
	stats := &Stats{}

	for {
		header, err := cpioReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading cpio: %w", err)
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return nil, err
		}

		switch header.Mode & cpioTypeMask {
		case cpioTypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			stats.Dirs++
		case cpioTypeReg:
			if err := writeFile(target, cpioReader, os.FileMode(header.Mode&0777), header.Size); err != nil {
				return nil, err
			}
			stats.Files++
		case cpioTypeSymlink:
			if header.Linkname == "" {
				continue
			}
			if err := writeSymlink(target, header.Linkname); err != nil {
				return nil, err
			}
			stats.Symlinks++
		}
	}

	return stats, nil
}

// countTree tallies what an opaque extractor wrote
func countTree(dir string) (*Stats, error) {
	stats := &Stats{}
	err := walkTree(dir, func(mode os.FileMode) {
		switch {
		case mode.IsDir():
			stats.Dirs++
		case mode&os.ModeSymlink != 0:
			stats.Symlinks++
		default:
			stats.Files++
		}
	})
	return stats, err
}
