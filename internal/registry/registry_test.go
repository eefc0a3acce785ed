package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSourceScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tiny.Q4.gguf"), "x")
	writeFile(t, filepath.Join(dir, "encoder.onnx"), "x")
	writeFile(t, filepath.Join(dir, "weights.safetensors"), "x")
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}

	descs, err := NewDirSource(dir).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(descs) != 3 {
		t.Fatalf("expected 3 descriptors, got %d: %+v", len(descs), descs)
	}
	byID := map[string]types.ModelDescriptor{}
	for _, d := range descs {
		byID[d.ID] = d
	}
	d, ok := byID["tiny.Q4"]
	if !ok {
		t.Fatalf("expected id from filename sans extension, got %+v", descs)
	}
	if d.Format != "gguf" {
		t.Fatalf("format: got %q want gguf", d.Format)
	}
	if d.Kind != types.KindTextGeneration {
		t.Fatalf("dir scan defaults kind to text-generation, got %s", d.Kind)
	}
	if !filepath.IsAbs(d.Source) {
		t.Fatalf("source must be absolute, got %q", d.Source)
	}
	if byID["encoder"].Format != "onnx" || byID["weights"].Format != "safetensors" {
		t.Fatalf("unexpected formats: %+v", byID)
	}
}

func TestDirSourceMissingDir(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope")).Discover(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestManifestSourceYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	writeFile(t, path, `
models:
  - id: remote-llm
    name: Remote LLM
    kind: text-generation
    format: gguf
    source: https://models.example.com/remote-llm
  - id: embedder
    kind: embedding
    format: onnx
    source: https://models.example.com/embedder
`)
	descs, err := NewManifestSource(path).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descs))
	}
	if descs[0].ID != "remote-llm" || descs[0].Name != "Remote LLM" {
		t.Fatalf("unexpected first entry: %+v", descs[0])
	}
	if descs[1].Kind != types.KindEmbedding {
		t.Fatalf("kind: got %s want embedding", descs[1].Kind)
	}
}

func TestManifestSourceJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")
	writeFile(t, path, `{"models":[{"id":"m1","kind":"vision","format":"onnx","source":"s3://bucket/m1"}]}`)
	descs, err := NewManifestSource(path).Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(descs) != 1 || descs[0].Kind != types.KindVision {
		t.Fatalf("unexpected descriptors: %+v", descs)
	}
}

func TestManifestSourceRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()

	noID := filepath.Join(dir, "noid.yaml")
	writeFile(t, noID, "models:\n  - name: nameless\n    format: gguf\n")
	if _, err := NewManifestSource(noID).Discover(context.Background()); err == nil {
		t.Fatalf("expected error for missing id")
	}

	badKind := filepath.Join(dir, "kind.yaml")
	writeFile(t, badKind, "models:\n  - id: m1\n    kind: juggling\n")
	if _, err := NewManifestSource(badKind).Discover(context.Background()); err == nil {
		t.Fatalf("expected error for unknown kind")
	}

	badExt := filepath.Join(dir, "models.toml")
	writeFile(t, badExt, "")
	if _, err := NewManifestSource(badExt).Discover(context.Background()); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

// failingSource always errors, standing in for an unreachable location.
type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Discover(ctx context.Context) ([]types.ModelDescriptor, error) {
	return nil, errors.New("unreachable")
}

func TestDiscoveryContinuesPastFailingSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tiny.gguf"), "x")

	d := NewDiscovery(zerolog.Nop(), failingSource{}, NewDirSource(dir))
	descs := d.Discover(context.Background())
	if len(descs) != 1 || descs[0].ID != "tiny" {
		t.Fatalf("expected surviving source's descriptor, got %+v", descs)
	}
}

func TestDiscoverySourceOrderPreserved(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirA, "zeta.gguf"), "x")
	writeFile(t, filepath.Join(dirB, "alpha.gguf"), "x")

	d := NewDiscovery(zerolog.Nop(), NewDirSource(dirA), NewDirSource(dirB))
	descs := d.Discover(context.Background())
	if len(descs) != 2 || descs[0].ID != "zeta" || descs[1].ID != "alpha" {
		t.Fatalf("expected source order preserved, got %+v", descs)
	}
}

func TestDirSourceCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tiny.gguf"), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDirSource(dir).Discover(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
