package registry

import (
	"context"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// Source produces candidate model descriptors from one configured location.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Discover returns candidate descriptors. It never mutates any catalog.
	Discover(ctx context.Context) ([]types.ModelDescriptor, error)
}

// Discovery fans out over configured sources. A failing source contributes
// zero descriptors and a warning; discovery itself does not abort.
type Discovery struct {
	sources []Source
	log     zerolog.Logger
}

// NewDiscovery builds a Discovery over the given sources.
func NewDiscovery(log zerolog.Logger, sources ...Source) *Discovery {
	return &Discovery{sources: sources, log: log}
}

// Discover queries every source and concatenates the candidates in source
// order. Within one source the source's own order is preserved, keeping
// repeated runs deterministic.
func (d *Discovery) Discover(ctx context.Context) []types.ModelDescriptor {
	var out []types.ModelDescriptor
	for _, s := range d.sources {
		descs, err := s.Discover(ctx)
		if err != nil {
			d.log.Warn().Str("source", s.Name()).Err(err).Msg("discovery source failed")
			continue
		}
		out = append(out, descs...)
	}
	return out
}
