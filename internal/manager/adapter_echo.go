package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inferd/pkg/types"
)

// EchoAdapter is a self-contained backend used for development and
// tests: Load hands out a lightweight handle and Invoke echoes the input
// with deterministic token accounting. Real backends register their own
// Adapter per format tag.
type EchoAdapter struct {
	// LoadDelay simulates warmup; cancellable via context.
	LoadDelay time.Duration
}

type echoHandle struct {
	modelID string
	device  string
}

func (a *EchoAdapter) Load(ctx context.Context, desc types.ModelDescriptor, device string) (Handle, error) {
	if a.LoadDelay > 0 {
		select {
		case <-time.After(a.LoadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &echoHandle{modelID: desc.ID, device: device}, nil
}

func (a *EchoAdapter) Invoke(ctx context.Context, h Handle, input string, params types.InferParams) (types.InferResult, error) {
	eh, ok := h.(*echoHandle)
	if !ok {
		return types.InferResult{}, fmt.Errorf("foreign handle %T", h)
	}
	if err := ctx.Err(); err != nil {
		return types.InferResult{}, err
	}
	in := len(strings.Fields(input))
	out := fmt.Sprintf("%s> %s", eh.modelID, input)
	return types.InferResult{
		Output:       out,
		InputTokens:  in,
		OutputTokens: in + 1,
	}, nil
}

func (a *EchoAdapter) Release(h Handle) error { return nil }
