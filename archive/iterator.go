package archive

import (
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/datastores"
)

// ArchetypeIterator walks every archetype in the archive, one store page at a
// time. Abandoning it part way has no side effects.
type ArchetypeIterator struct {
	ctx       rcontext.RequestContext
	archivist *Archivist

	page    *datastores.ListPage
	pos     int
	marker  string
	started bool
	current *Resource
	err     error
}

func (a *Archivist) AllArchetypes(ctx rcontext.RequestContext) *ArchetypeIterator {
	return a.AllArchetypesAfter(ctx, "")
}

// AllArchetypesAfter restarts iteration after the key given by a previous
// iterator's Marker.
func (a *Archivist) AllArchetypesAfter(ctx rcontext.RequestContext, marker string) *ArchetypeIterator {
	return &ArchetypeIterator{ctx: ctx, archivist: a, marker: marker}
}

func (it *ArchetypeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	paths := it.archivist.paths
	for {
		if it.page == nil || it.pos >= len(it.page.Keys) {
			if it.started && (it.page == nil || !it.page.IsTruncated) {
				it.current = nil
				return false
			}
			marker := it.marker
			if it.page != nil {
				marker = it.page.NextMarker
			}
			page, err := it.archivist.store.ListObjects(it.ctx, paths.ArchetypePrefix, marker)
			if err != nil {
				it.err = err
				return false
			}
			it.started = true
			it.page = page
			it.pos = 0
			continue
		}

		key := it.page.Keys[it.pos]
		it.pos++
		it.marker = key
		if !paths.IsArchetypePath(key) {
			continue
		}
		r, err := it.archivist.Get(it.ctx, key)
		if err != nil {
			if IsNotFound(err) {
				// Removed between the listing and the read
				continue
			}
			it.err = err
			return false
		}
		if !r.IsArchetype() {
			continue
		}
		it.current = r
		return true
	}
}

func (it *ArchetypeIterator) Resource() *Resource {
	return it.current
}

func (it *ArchetypeIterator) Err() error {
	return it.err
}

// Marker is the last key examined; pass it to AllArchetypesAfter to resume.
func (it *ArchetypeIterator) Marker() string {
	return it.marker
}
