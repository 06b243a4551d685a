package runtime

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/version"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/dispatcher"
	"github.com/mindvessel/bluebucket/indexer"
	"github.com/mindvessel/bluebucket/notifier"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/mindvessel/bluebucket/redislib"
	"github.com/mindvessel/bluebucket/scribes"
	"github.com/sirupsen/logrus"
)

// Services are the long-lived parts shared by every invocation.
type Services struct {
	Store      datastores.ResourceStore
	Paths      *pathstrategy.Strategy
	Archivist  *archive.Archivist
	Registry   *scribes.Registry
	Dispatcher *dispatcher.Dispatcher
	Indexes    []indexer.IndexDefinition
	Locker     indexer.Locker
}

// NewEngine starts the index engine for one invocation.
func (s *Services) NewEngine() *indexer.Engine {
	return indexer.NewEngine(s.Archivist, s.Paths, s.Indexes, s.Locker)
}

func NewServices(cfg *config.ArchiveConfig, store datastores.ResourceStore) (*Services, error) {
	paths := pathstrategy.New(cfg.Paths)
	archivist := archive.New(store, paths, cfg.Compression)

	registry, err := scribes.BuildRegistry(cfg, archivist, paths)
	if err != nil {
		return nil, err
	}

	var locker indexer.Locker
	if cfg.Redis.Enabled {
		locker = &redislib.MutexLocker{Expiry: time.Duration(cfg.Redis.LockTimeoutSecs) * time.Second}
		archivist.SetArtifactListener(notifier.NewArtifactNotifier(cfg.Redis.ChangesChannel))
	}

	return &Services{
		Store:      store,
		Paths:      paths,
		Archivist:  archivist,
		Registry:   registry,
		Dispatcher: dispatcher.New(registry, archivist),
		Indexes:    indexer.DefinitionsFromConfig(cfg.Indexes),
		Locker:     locker,
	}, nil
}

func RunStartupSequence() *Services {
	version.Print(true)
	return LoadServices()
}

func LoadServices() *Services {
	cfg := config.Get()

	logrus.Infof("Opening %s archive for bucket %s...", cfg.DataStore.Type, cfg.Archive.Bucket)
	store, err := datastores.Open(cfg.DataStore, cfg.Archive.Bucket)
	if err != nil {
		sentry.CaptureException(err)
		logrus.Fatal(err)
	}

	if checker, ok := store.(datastores.BucketChecker); ok {
		if err = checker.CheckBucket(rcontext.Initial()); err != nil {
			logrus.Warn("\tBucket check failed: ", err)
		}
	}

	services, err := NewServices(cfg, store)
	if err != nil {
		sentry.CaptureException(err)
		logrus.Fatal(err)
	}

	logrus.Info("Scribes:")
	for _, s := range services.Registry.All() {
		logrus.Info("\t", s.Name())
	}
	logrus.Info("Indexes:")
	for _, ix := range services.Indexes {
		logrus.Infof("\t%s -> %s", ix.Name, services.Paths.IndexKey(ix.Name))
	}
	return services
}
