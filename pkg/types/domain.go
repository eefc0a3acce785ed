package types

// ModelKind classifies what a model does.
type ModelKind string

const (
	KindTextGeneration ModelKind = "text-generation"
	KindEmbedding      ModelKind = "embedding"
	KindVision         ModelKind = "vision"
	KindAudio          ModelKind = "audio"
)

// KnownKinds lists every kind the subsystem accepts.
func KnownKinds() []ModelKind {
	return []ModelKind{KindTextGeneration, KindEmbedding, KindVision, KindAudio}
}

// ValidKind reports whether k is one of the known model kinds.
func ValidKind(k ModelKind) bool {
	switch k {
	case KindTextGeneration, KindEmbedding, KindVision, KindAudio:
		return true
	}
	return false
}

// ModelDescriptor identifies a discoverable or loadable model.
// Descriptors are immutable: replacing a model means an explicit Replace
// with a new descriptor under the same id.
type ModelDescriptor struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" yaml:"id"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name" yaml:"name"`
	// What the model does (text-generation, embedding, vision, audio).
	// example: text-generation
	Kind ModelKind `json:"kind" yaml:"kind"`
	// Backend format tag used to pick the adapter.
	// example: gguf
	Format string `json:"format" yaml:"format"`
	// Source path or URI the model was discovered from.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Source string `json:"source" yaml:"source"`
	// Free-form description.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Equal reports whether two descriptors are identical field for field.
func (d ModelDescriptor) Equal(o ModelDescriptor) bool {
	return d == o
}

// ModelState is the lifecycle state of a catalog entry.
type ModelState string

const (
	StateRegistered ModelState = "registered"
	StateLoading    ModelState = "loading"
	StateLoaded     ModelState = "loaded"
)

// ModelStatus is a read-only projection of one catalog entry.
type ModelStatus struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	State      ModelState      `json:"state"`
	// Number of active holders of the loaded model.
	RefCount int `json:"ref_count"`
	// Last time the model served a request (unix seconds, 0 if never).
	LastUsed int64 `json:"last_used_unix,omitempty"`
}

// InferParams are the generation parameters for one inference call.
// They participate in cache keying, so semantically identical calls must
// build identical param sets.
type InferParams map[string]any

// InferResult is the opaque output of one inference call.
type InferResult struct {
	Output       string `json:"output"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	// True when the result was served from the cache.
	Cached bool `json:"cached"`
}
