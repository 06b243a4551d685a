package datastores

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// MemoryStore is a process-local ResourceStore. Listings are paged so callers
// following markers behave the same as against a real bucket.
type MemoryStore struct {
	bucket   string
	pageSize int
	objects  map[string]*Object
	lock     sync.RWMutex
}

func NewMemoryStore(bucket string, pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MemoryStore{
		bucket:   bucket,
		pageSize: pageSize,
		objects:  make(map[string]*Object),
	}
}

func cloneObject(o *Object) *Object {
	c := *o
	c.Metadata = copyMetadata(o.Metadata)
	if o.Body != nil {
		c.Body = append([]byte{}, o.Body...)
	}
	return &c
}

func (m *MemoryStore) Bucket() string {
	return m.bucket
}

func (m *MemoryStore) GetObject(ctx rcontext.RequestContext, key string) (*Object, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "memory", "operation": "GetObject"}).Inc()
	m.lock.RLock()
	defer m.lock.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneObject(o), nil
}

func (m *MemoryStore) PutObject(ctx rcontext.RequestContext, obj *Object) error {
	metrics.StoreOperations.With(prometheus.Labels{"store": "memory", "operation": "PutObject"}).Inc()
	m.lock.Lock()
	defer m.lock.Unlock()
	c := cloneObject(obj)
	c.LastModified = time.Now()
	m.objects[obj.Key] = c
	return nil
}

func (m *MemoryStore) DeleteObject(ctx rcontext.RequestContext, key string) error {
	metrics.StoreOperations.With(prometheus.Labels{"store": "memory", "operation": "DeleteObject"}).Inc()
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) ListObjects(ctx rcontext.RequestContext, prefix string, marker string) (*ListPage, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "memory", "operation": "ListObjects"}).Inc()
	m.lock.RLock()
	defer m.lock.RUnlock()
	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return paginate(keys, m.pageSize), nil
}

// Keys returns every stored key in order.
func (m *MemoryStore) Keys() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
