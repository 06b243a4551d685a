package indexer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var ErrIndexNotLoaded = errors.New("index not loaded")

type Archive interface {
	Get(ctx rcontext.RequestContext, key string) (*archive.Resource, error)
	Publish(ctx rcontext.RequestContext, r *archive.Resource) error
	SiteConfig(ctx rcontext.RequestContext) (*archive.SiteConfig, error)
	AllArchetypes(ctx rcontext.RequestContext) *archive.ArchetypeIterator
	Bucket() string
}

// Locker serializes read-modify-write cycles on one index across processes.
type Locker interface {
	Lock(ctx rcontext.RequestContext, key string) (func(), error)
}

type noopLocker struct{}

func (noopLocker) Lock(ctx rcontext.RequestContext, key string) (func(), error) {
	return func() {}, nil
}

// Engine maintains the indexes for one invocation. Loaded indexes are cached
// until Flush writes the modified ones back and releases their locks.
type Engine struct {
	archive     Archive
	paths       *pathstrategy.Strategy
	definitions []IndexDefinition
	locker      Locker
	Now         func() time.Time

	indexes map[string]*Index
	dirty   map[string]bool
	unlocks map[string]func()
}

func NewEngine(archive Archive, paths *pathstrategy.Strategy, definitions []IndexDefinition, locker Locker) *Engine {
	if locker == nil {
		locker = noopLocker{}
	}
	return &Engine{
		archive:     archive,
		paths:       paths,
		definitions: definitions,
		locker:      locker,
		Now:         time.Now,
		indexes:     make(map[string]*Index),
		dirty:       make(map[string]bool),
		unlocks:     make(map[string]func()),
	}
}

func (e *Engine) Definitions() []IndexDefinition {
	return e.definitions
}

func (e *Engine) definition(name string) IndexDefinition {
	for _, d := range e.definitions {
		if d.Name == name {
			return d
		}
	}
	return IndexDefinition{Name: name}
}

// Cached returns the in-memory copy of a loaded index.
func (e *Engine) Cached(name string) (*Index, bool) {
	ix, ok := e.indexes[name]
	return ix, ok
}

func (e *Engine) lock(ctx rcontext.RequestContext, name string) error {
	if _, ok := e.unlocks[name]; ok {
		return nil
	}
	unlock, err := e.locker.Lock(ctx, e.paths.IndexKey(name))
	if err != nil {
		return fmt.Errorf("locking index %s: %w", name, err)
	}
	e.unlocks[name] = unlock
	return nil
}

// LoadIndex reads an index into the cache. A missing index is reported as
// not found and is not rebuilt here.
func (e *Engine) LoadIndex(ctx rcontext.RequestContext, name string) error {
	if _, ok := e.indexes[name]; ok {
		return nil
	}
	if err := e.lock(ctx, name); err != nil {
		return err
	}

	r, err := e.archive.Get(ctx, e.paths.IndexKey(name))
	if err != nil {
		return err
	}
	ix := &Index{}
	if err = r.Data(ix); err != nil {
		return fmt.Errorf("decoding index %s: %w", name, err)
	}
	if ix.Entries == nil {
		ix.Entries = make([]IndexEntry, 0)
	}
	e.indexes[name] = ix
	metrics.IndexEntries.With(prometheus.Labels{"index": name}).Set(float64(len(ix.Entries)))
	return nil
}

// RecordForResource projects an archetype onto an index entry, filling the
// category and author from site defaults.
func (e *Engine) RecordForResource(ctx rcontext.RequestContext, r *archive.Resource) (IndexEntry, error) {
	data, err := r.DataMap()
	if err != nil {
		return IndexEntry{}, fmt.Errorf("decoding archetype %s: %w", r.Key, err)
	}
	site, err := e.archive.SiteConfig(ctx)
	if err != nil {
		return IndexEntry{}, err
	}

	entry := IndexEntry{
		Published:   stringField(data["published"]),
		Updated:     stringField(data["updated"]),
		Category:    nameField(data["category"]),
		Title:       stringField(data["title"]),
		Author:      nameField(data["author"]),
		Description: stringField(data["description"]),
		Image:       stringField(data["image"]),
		Monograph:   stringField(data["monograph"]),
		ItemType:    stringField(data["itemtype"]),
		Archetype:   r.Key,
	}
	if entry.Category == "" {
		entry.Category = archive.DefaultCategory
	}
	if entry.Author == "" {
		entry.Author = site.Site.Author
	}
	return entry, nil
}

func itemTypeOf(r *archive.Resource) string {
	if t := r.Metadata["itemtype"]; t != "" {
		return t
	}
	if data, err := r.DataMap(); err == nil {
		return stringField(data["itemtype"])
	}
	return ""
}

func stringField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// nameField reads values that may be a plain string or an object with a name.
func nameField(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		return stringField(m["name"])
	}
	return stringField(v)
}

// insertPosition is the leftmost position whose entry is not newer than
// published, so ties go in front of existing entries.
func insertPosition(entries []IndexEntry, published string) int {
	return sort.Search(len(entries), func(i int) bool {
		return entries[i].Published <= published
	})
}

func removeArchetype(entries []IndexEntry, key string) ([]IndexEntry, bool) {
	for i, entry := range entries {
		if entry.Archetype == key {
			return append(entries[:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

// AddToIndex inserts the entry for r into a loaded index, replacing any entry
// for the same archetype.
func (e *Engine) AddToIndex(ctx rcontext.RequestContext, name string, r *archive.Resource) error {
	ix, ok := e.indexes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIndexNotLoaded, name)
	}
	entry, err := e.RecordForResource(ctx, r)
	if err != nil {
		return err
	}

	ix.insert(entry)
	e.dirty[name] = true
	metrics.IndexOperations.With(prometheus.Labels{"index": name, "operation": "insert"}).Inc()
	metrics.IndexEntries.With(prometheus.Labels{"index": name}).Set(float64(len(ix.Entries)))
	return nil
}

func (ix *Index) insert(entry IndexEntry) {
	ix.Entries, _ = removeArchetype(ix.Entries, entry.Archetype)
	at := insertPosition(ix.Entries, entry.Published)
	ix.Entries = append(ix.Entries, IndexEntry{})
	copy(ix.Entries[at+1:], ix.Entries[at:])
	ix.Entries[at] = entry
}

// OnSave adds an archetype to every index that collects its item type,
// rebuilding any index that cannot be loaded.
func (e *Engine) OnSave(ctx rcontext.RequestContext, r *archive.Resource) error {
	if !r.IsArchetype() {
		return nil
	}
	itemType := itemTypeOf(r)
	for _, def := range e.definitions {
		if !def.Accepts(itemType) {
			continue
		}
		ictx := ctx.LogWithFields(logrus.Fields{"index": def.Name})
		if err := e.LoadIndex(ictx, def.Name); err != nil {
			ictx.Log.Warn("Could not load index - rebuilding: ", err)
			if err = e.FullReindex(ictx, def.Name); err != nil {
				return err
			}
			continue
		}
		if err := e.AddToIndex(ictx, def.Name, r); err != nil {
			return err
		}
	}
	return nil
}

// FullReindex replaces an index with one built from every archetype in the
// archive. Store failures are returned and leave the cached index untouched.
func (e *Engine) FullReindex(ctx rcontext.RequestContext, name string) error {
	if err := e.lock(ctx, name); err != nil {
		return err
	}
	site, err := e.archive.SiteConfig(ctx)
	if err != nil {
		return err
	}

	category := site.Site.Category
	if category == "" {
		category = archive.DefaultCategory
	}
	ix := &Index{
		Title:       site.Site.Title,
		Description: site.Site.Description,
		Author:      site.Site.Author,
		Updated:     e.Now().UTC().Format(time.RFC3339),
		Category:    category,
		Links:       []Link{{Rel: []string{"alternate"}, Href: site.Site.Url}},
		Entries:     make([]IndexEntry, 0),
	}

	def := e.definition(name)
	it := e.archive.AllArchetypes(ctx)
	for it.Next() {
		r := it.Resource()
		if !def.Accepts(itemTypeOf(r)) {
			continue
		}
		entry, err := e.RecordForResource(ctx, r)
		if err != nil {
			return err
		}
		ix.insert(entry)
	}
	if err = it.Err(); err != nil {
		return fmt.Errorf("rebuilding index %s: %w", name, err)
	}

	e.indexes[name] = ix
	e.dirty[name] = true
	ctx.Log.Infof("Rebuilt index %s with %d entries", name, len(ix.Entries))
	metrics.IndexOperations.With(prometheus.Labels{"index": name, "operation": "rebuild"}).Inc()
	metrics.IndexEntries.With(prometheus.Labels{"index": name}).Set(float64(len(ix.Entries)))
	return nil
}

// OnDelete drops the entry for an archetype key from every index. Keys not
// present in an index are ignored.
func (e *Engine) OnDelete(ctx rcontext.RequestContext, key string) error {
	for _, def := range e.definitions {
		ictx := ctx.LogWithFields(logrus.Fields{"index": def.Name})
		if err := e.LoadIndex(ictx, def.Name); err != nil {
			if !archive.IsNotFound(err) {
				return err
			}
			ictx.Log.Warn("Index missing - rebuilding")
			if err = e.FullReindex(ictx, def.Name); err != nil {
				return err
			}
		}

		ix := e.indexes[def.Name]
		var removed bool
		if ix.Entries, removed = removeArchetype(ix.Entries, key); removed {
			e.dirty[def.Name] = true
			metrics.IndexOperations.With(prometheus.Labels{"index": def.Name, "operation": "remove"}).Inc()
			metrics.IndexEntries.With(prometheus.Labels{"index": def.Name}).Set(float64(len(ix.Entries)))
		}
	}
	return nil
}

// Flush publishes every modified index and releases all locks. The cache is
// emptied either way.
func (e *Engine) Flush(ctx rcontext.RequestContext) error {
	defer e.release()

	names := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ix := e.indexes[name]
		ix.Updated = e.Now().UTC().Format(time.RFC3339)
		r := &archive.Resource{
			Key:            e.paths.IndexKey(name),
			Bucket:         e.archive.Bucket(),
			ContentType:    "application/json",
			Metadata:       map[string]string{"resourcetype": common.ResourceTypeConfig},
			UseCompression: ctx.Config.Compression.Enabled,
		}
		if err := r.SetData(ix); err != nil {
			return err
		}
		if err := e.archive.Publish(ctx, r); err != nil {
			return fmt.Errorf("writing index %s: %w", name, err)
		}
		ctx.Log.WithFields(logrus.Fields{"index": name, "entries": len(ix.Entries)}).Info("Index written")
	}
	return nil
}

func (e *Engine) release() {
	for _, unlock := range e.unlocks {
		unlock()
	}
	e.indexes = make(map[string]*Index)
	e.dirty = make(map[string]bool)
	e.unlocks = make(map[string]func())
}

// Discard drops cached indexes without writing them and releases all locks.
func (e *Engine) Discard() {
	e.release()
}
