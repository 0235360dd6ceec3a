package cmake

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
)

const codemodelQuery = "codemodel-v2"

// Artifact is one library target CMake reports
type Artifact struct {
	Target string
	Type   string // STATIC_LIBRARY, SHARED_LIBRARY, ...
	Paths  []string
}

// Shared reports whether the target is a shared or module library
func (a Artifact) Shared() bool {
	return a.Type == "SHARED_LIBRARY" || a.Type == "MODULE_LIBRARY"
}

func apiDir(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1")
}

// WriteQuery asks CMake for a codemodel reply on the next configure
func WriteQuery(buildDir string) error {
	dir := filepath.Join(apiDir(buildDir), "query")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating file-api query: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, codemodelQuery), nil, 0644)
}

// ReadReply returns the library targets of the latest codemodel reply
func ReadReply(buildDir string) ([]Artifact, error) {
	replyDir := filepath.Join(apiDir(buildDir), "reply")

	indexes, err := filepath.Glob(filepath.Join(replyDir, "index-*.json"))
	if err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, fmt.Errorf("no file-api reply in %s", replyDir)
	}
	// Index names sort by creation time
	sort.Strings(indexes)

	index, err := os.ReadFile(indexes[len(indexes)-1])
	if err != nil {
		return nil, err
	}

	codemodelFile := gjson.GetBytes(index, `reply.codemodel-v2.jsonFile`).String()
	if codemodelFile == "" {
		return nil, fmt.Errorf("file-api reply has no %s object", codemodelQuery)
	}
	codemodel, err := os.ReadFile(filepath.Join(replyDir, codemodelFile))
	if err != nil {
		return nil, err
	}

	var artifacts []Artifact
	var readErr error
	gjson.GetBytes(codemodel, "configurations.0.targets").ForEach(func(_, target gjson.Result) bool {
		data, err := os.ReadFile(filepath.Join(replyDir, target.Get("jsonFile").String()))
		if err != nil {
			readErr = err
			return false
		}

		kind := gjson.GetBytes(data, "type").String()
		if kind != "STATIC_LIBRARY" && kind != "SHARED_LIBRARY" && kind != "MODULE_LIBRARY" {
			return true
		}

		a := Artifact{Target: target.Get("name").String(), Type: kind}
		for _, p := range gjson.GetBytes(data, "artifacts.#.path").Array() {
			a.Paths = append(a.Paths, p.String())
		}
		artifacts = append(artifacts, a)
		return true
	})
	if readErr != nil {
		return nil, readErr
	}

	return artifacts, nil
}
