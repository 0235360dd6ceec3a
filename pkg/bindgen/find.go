package bindgen

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindHeader returns the first include path holding name
func FindHeader(includePaths []string, name string) (string, error) {
	for _, dir := range includePaths {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %v", ErrHeaderNotFound, name, includePaths)
}
