package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"inferd/pkg/types"
)

// ManifestSource reads descriptors from a yaml or json manifest file,
// covering models that are not plain files on disk (remote registries
// export such manifests).
type ManifestSource struct {
	path string
}

// NewManifestSource builds a ManifestSource for path.
func NewManifestSource(path string) *ManifestSource {
	return &ManifestSource{path: path}
}

func (s *ManifestSource) Name() string { return "manifest:" + s.path }

type manifest struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models"`
}

func (s *ManifestSource) Discover(ctx context.Context) ([]types.ModelDescriptor, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var m manifest
	switch ext := strings.ToLower(filepath.Ext(s.path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest extension: %s", ext)
	}
	for i, d := range m.Models {
		if d.ID == "" {
			return nil, fmt.Errorf("manifest entry %d: missing id", i)
		}
		if d.Kind != "" && !types.ValidKind(d.Kind) {
			return nil, fmt.Errorf("manifest entry %q: unknown kind %q", d.ID, d.Kind)
		}
	}
	return m.Models, nil
}
