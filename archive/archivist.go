package archive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

// ArtifactListener is told about every artifact the archivist writes or
// removes. Artifacts have no fixed prefix, so stores cannot be asked to notify
// for them.
type ArtifactListener interface {
	ArtifactChanged(ctx rcontext.RequestContext, r *Resource) error
}

// Reader is the read-only half of the archivist handed to scribes.
type Reader interface {
	Get(ctx rcontext.RequestContext, key string) (*Resource, error)
	SiteConfig(ctx rcontext.RequestContext) (*SiteConfig, error)
}

// Archivist owns validated access to a ResourceStore.
type Archivist struct {
	store       datastores.ResourceStore
	paths       *pathstrategy.Strategy
	compression config.CompressionConfig
	siteCache   *cache.Cache
	listener    ArtifactListener
}

func New(store datastores.ResourceStore, paths *pathstrategy.Strategy, compression config.CompressionConfig) *Archivist {
	return &Archivist{
		store:       store,
		paths:       paths,
		compression: compression,
		siteCache:   cache.New(siteConfigTtl, siteConfigTtl*2),
	}
}

func (a *Archivist) Bucket() string {
	return a.store.Bucket()
}

func (a *Archivist) Paths() *pathstrategy.Strategy {
	return a.paths
}

func (a *Archivist) SetArtifactListener(l ArtifactListener) {
	a.listener = l
}

func (a *Archivist) Get(ctx rcontext.RequestContext, key string) (*Resource, error) {
	obj, err := a.store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}

	r := &Resource{
		Key:             key,
		Bucket:          a.store.Bucket(),
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
		ACL:             obj.ACL,
		LastModified:    obj.LastModified,
		Metadata:        make(map[string]string, len(obj.Metadata)),
		UseCompression:  a.compression.Enabled,
	}
	for k, v := range obj.Metadata {
		r.Metadata[strings.ToLower(k)] = v
	}

	if obj.ContentEncoding == "gzip" {
		r.Content, err = gunzipBytes(obj.Body)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", key, err)
		}
	} else {
		r.Content = obj.Body
	}
	if r.Content == nil {
		r.Content = []byte{}
	}
	return r, nil
}

func (a *Archivist) Save(ctx rcontext.RequestContext, r *Resource) error {
	if r.Key == "" {
		return common.NewValidationError("key", "")
	}

	if r.Deleted {
		ctx.Log.Debug("Deleting tombstoned resource ", r.Key)
		if err := a.store.DeleteObject(ctx, r.Key); err != nil {
			return err
		}
		metrics.ResourcesPersisted.With(prometheus.Labels{"resourcetype": r.ResourceType(), "operation": "delete"}).Inc()
		a.announce(ctx, r)
		return nil
	}

	if r.ContentType == "" {
		return common.NewValidationError("contenttype", "")
	}
	if r.Content == nil {
		return common.NewValidationError("content", "use an empty byte slice to save an empty resource")
	}
	if r.ResourceType() == common.ResourceTypeArtifact && r.ArchetypeGuid() == "" {
		return common.NewSemanticError("archetype_guid", "artifacts must reference the archetype they were rendered from")
	}

	obj := &datastores.Object{
		Key:         r.Key,
		ContentType: r.ContentType,
		ACL:         r.ACL,
		Metadata:    r.Metadata,
		Body:        r.Content,
	}
	if r.IsCompressible() {
		body, err := gzipBytes(r.Content, a.compression.Level)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", r.Key, err)
		}
		obj.Body = body
		obj.ContentEncoding = "gzip"
	}

	if err := a.store.PutObject(ctx, obj); err != nil {
		return err
	}
	metrics.ResourcesPersisted.With(prometheus.Labels{"resourcetype": r.ResourceType(), "operation": "put"}).Inc()
	a.announce(ctx, r)
	return nil
}

func (a *Archivist) announce(ctx rcontext.RequestContext, r *Resource) {
	if a.listener == nil || r.ResourceType() != common.ResourceTypeArtifact {
		return
	}
	if r.Bucket == "" {
		r.Bucket = a.store.Bucket()
	}
	if err := a.listener.ArtifactChanged(ctx, r); err != nil {
		ctx.Log.Warn("Non-fatal error announcing artifact change: ", err)
		sentry.CaptureException(err)
	}
}

// Publish saves the resource as publicly readable.
func (a *Archivist) Publish(ctx rcontext.RequestContext, r *Resource) error {
	r.ACL = common.AclPublicRead
	return a.Save(ctx, r)
}

// PersistError reports the item a Persist call stopped at. Items before
// Position were already committed.
type PersistError struct {
	Position int
	Key      string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting item %d (%s): %v", e.Position, e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Persist saves each resource in order and stops at the first failure.
func (a *Archivist) Persist(ctx rcontext.RequestContext, resources []*Resource) error {
	for i, r := range resources {
		if err := a.Save(ctx, r); err != nil {
			return &PersistError{Position: i, Key: r.Key, Err: err}
		}
	}
	return nil
}

func (a *Archivist) Delete(ctx rcontext.RequestContext, key string) error {
	return a.store.DeleteObject(ctx, key)
}

// NewResource builds a resource in this archive. Archetype and config resources
// without a key inside the archetype tree get their key from the path strategy.
func (a *Archivist) NewResource(key string, opts ...ResourceOption) (*Resource, error) {
	r := &Resource{
		Key:            key,
		Bucket:         a.store.Bucket(),
		Metadata:       make(map[string]string),
		UseCompression: a.compression.Enabled,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	switch r.ResourceType() {
	case common.ResourceTypeArchetype, common.ResourceTypeConfig:
		if key == "" || !strings.HasPrefix(key, a.paths.ArchetypePrefix) {
			meta := make(map[string]string, len(r.Metadata)+2)
			for k, v := range r.Metadata {
				meta[k] = v
			}
			meta["key"] = key
			meta["contenttype"] = r.ContentType
			path, err := a.paths.PathFor(meta)
			if err != nil {
				return nil, err
			}
			r.Key = path
		}
	}
	return r, nil
}

// IsNotFound reports whether err means the requested key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
