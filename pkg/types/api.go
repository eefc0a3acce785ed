package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []ModelStatus `json:"models"`
}

// RegisterRequest is the payload for POST /models.
type RegisterRequest struct {
	Descriptor ModelDescriptor `json:"descriptor"`
	// Replace an existing descriptor under the same id. Replacement is an
	// explicit operation; plain registration refuses to overwrite.
	Replace bool `json:"replace,omitempty"`
}

// RunRequest is the payload for POST /run.
type RunRequest struct {
	// Model identifier. Required.
	// example: tinyllama-q4
	Model string `json:"model"`
	// Input text for the model.
	// example: Write a haiku about the ocean.
	Input string `json:"input"`
	// Generation parameters; part of the cache key.
	Params InferParams `json:"params,omitempty"`
}

// SelectRequest is the payload for POST /select.
type SelectRequest struct {
	// Caller role.
	// example: researcher
	Role string `json:"role"`
	// Task kind, matching a model kind.
	// example: text-generation
	Task string `json:"task"`
}

// SelectResponse is returned by POST /select.
type SelectResponse struct {
	ModelID string `json:"model_id"`
}

// AssignRequest is the payload for POST /assign.
type AssignRequest struct {
	Role    string `json:"role"`
	Task    string `json:"task"`
	ModelID string `json:"model_id"`
}

// LoadResponse is returned by POST /models/{id}/load.
type LoadResponse struct {
	ModelID  string     `json:"model_id"`
	State    ModelState `json:"state"`
	RefCount int        `json:"ref_count"`
}

// OpResponse is returned by async operations.
type OpResponse struct {
	// Operation id for log correlation.
	// example: 2b1c9ef6-3f3a-4bb5-bb0e-6e4cc7d4c1a2
	OpID string `json:"op_id"`
}

// PerformanceReport aggregates retained metric samples for one model.
// Derived on demand, never stored.
type PerformanceReport struct {
	ModelID string `json:"model_id"`
	// Number of samples in the rolling window.
	Samples int `json:"samples"`
	// Average end-to-end latency in milliseconds.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	// Average output tokens per second over samples that carried token
	// counts. Zero when no such samples exist.
	TokensPerSec float64 `json:"tokens_per_sec"`
	// Samples that carried token counts.
	TokenSamples int `json:"token_samples"`
}

// SystemSnapshot reports best-effort host metrics. A field whose
// Available flag is false carries no meaningful value.
type SystemSnapshot struct {
	CPU    CPUStat    `json:"cpu"`
	Memory MemoryStat `json:"memory"`
}

// CPUStat is the host load picture.
type CPUStat struct {
	Available bool    `json:"available"`
	Cores     int     `json:"cores,omitempty"`
	Load1     float64 `json:"load1,omitempty"`
}

// MemoryStat is the host memory picture in megabytes.
type MemoryStat struct {
	Available bool `json:"available"`
	TotalMB   int  `json:"total_mb,omitempty"`
	FreeMB    int  `json:"free_mb,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: tinyllama-q4
	Error string `json:"error"`
	// HTTP status code.
	// example: 404
	Code int `json:"code"`
}
