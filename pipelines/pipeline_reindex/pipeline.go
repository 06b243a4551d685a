package pipeline_reindex

import (
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Execute rebuilds the named index from every archetype and writes it out.
// The number of entries written is returned.
func Execute(ctx rcontext.RequestContext, services *runtime.Services, name string) (int, error) {
	known := false
	for _, def := range services.Indexes {
		if def.Name == name {
			known = true
			break
		}
	}
	if !known {
		return 0, common.ErrNotFound
	}

	metrics.Invocations.With(prometheus.Labels{"origin": "reindex"}).Inc()
	engine := services.NewEngine()
	if err := engine.FullReindex(ctx, name); err != nil {
		engine.Discard()
		return 0, err
	}

	count := 0
	if ix, ok := engine.Cached(name); ok {
		count = len(ix.Entries)
	}
	if err := engine.Flush(ctx); err != nil {
		return 0, err
	}
	return count, nil
}
