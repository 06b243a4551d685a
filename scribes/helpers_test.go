package scribes

import (
	"context"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/pathstrategy"
)

type fixture struct {
	ctx       rcontext.RequestContext
	cfg       config.ArchiveConfig
	store     *datastores.MemoryStore
	archivist *archive.Archivist
	paths     *pathstrategy.Strategy
}

func newFixture() *fixture {
	cfg := config.NewDefaultConfig()
	store := datastores.NewMemoryStore("testbucket", 0)
	paths := pathstrategy.New(cfg.Paths)
	return &fixture{
		ctx:       rcontext.WithConfig(context.Background(), &cfg),
		cfg:       cfg,
		store:     store,
		archivist: archive.New(store, paths, cfg.Compression),
		paths:     paths,
	}
}

func fixedClock() time.Time {
	return time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
}
