package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"inferd/pkg/types"
)

// formatByExt maps model file extensions to backend-format tags.
var formatByExt = map[string]string{
	".gguf":        "gguf",
	".onnx":        "onnx",
	".safetensors": "safetensors",
}

// DirSource scans a local directory for model files and builds descriptors
// from filenames. The id is the filename without extension; the format tag
// derives from the extension.
type DirSource struct {
	dir string
}

// NewDirSource builds a DirSource for dir. A leading '~' expands to the
// user's home directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Name() string { return "dir:" + s.dir }

func (s *DirSource) Discover(ctx context.Context) ([]types.ModelDescriptor, error) {
	base, err := expandHome(s.dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var descs []types.ModelDescriptor
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		format, ok := formatByExt[ext]
		if !ok {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		descs = append(descs, types.ModelDescriptor{
			ID:     id,
			Name:   id,
			Kind:   types.KindTextGeneration,
			Format: format,
			Source: filepath.Join(abs, name),
		})
	}
	// ReadDir already sorts by filename, but keep the guarantee explicit.
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
