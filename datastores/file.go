package datastores

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metaDirName = ".meta"

type fileMeta struct {
	ContentType     string            `json:"contentType"`
	ContentEncoding string            `json:"contentEncoding,omitempty"`
	ACL             string            `json:"acl,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

type fileStore struct {
	bucket   string
	basePath string
	pageSize int
	lock     sync.RWMutex
}

// NewFileStore keeps objects as plain files under basePath and their headers
// in a parallel tree under basePath/.meta.
func NewFileStore(bucket string, basePath string, pageSize int) (ResourceStore, error) {
	if basePath == "" {
		return nil, errors.New("file datastore requires a path option")
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if err := os.MkdirAll(path.Join(basePath, metaDirName), 0755); err != nil {
		return nil, pkgerrors.Wrap(err, "creating file datastore")
	}
	return &fileStore{bucket: bucket, basePath: basePath, pageSize: pageSize}, nil
}

func (f *fileStore) contentPath(key string) string {
	return path.Join(f.basePath, path.Clean("/"+key))
}

func (f *fileStore) metaPath(key string) string {
	return path.Join(f.basePath, metaDirName, path.Clean("/"+key)+".json")
}

func (f *fileStore) Bucket() string {
	return f.bucket
}

func (f *fileStore) GetObject(ctx rcontext.RequestContext, key string) (*Object, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "file", "operation": "GetObject"}).Inc()
	f.lock.RLock()
	defer f.lock.RUnlock()

	body, err := os.ReadFile(f.contentPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "reading %s", key)
	}

	meta := fileMeta{}
	if b, err := os.ReadFile(f.metaPath(key)); err == nil {
		if err = json.Unmarshal(b, &meta); err != nil {
			return nil, pkgerrors.Wrapf(err, "decoding metadata for %s", key)
		}
	} else if !os.IsNotExist(err) {
		return nil, pkgerrors.Wrapf(err, "reading metadata for %s", key)
	}

	var modified time.Time
	if st, err := os.Stat(f.contentPath(key)); err == nil {
		modified = st.ModTime()
	}

	ctx.Log.Debugf("Read %s (%s) from file store", key, humanize.Bytes(uint64(len(body))))
	return &Object{
		Key:             key,
		ContentType:     meta.ContentType,
		ContentEncoding: meta.ContentEncoding,
		ACL:             meta.ACL,
		Metadata:        copyMetadata(meta.Metadata),
		Body:            body,
		LastModified:    modified,
	}, nil
}

func (f *fileStore) PutObject(ctx rcontext.RequestContext, obj *Object) error {
	metrics.StoreOperations.With(prometheus.Labels{"store": "file", "operation": "PutObject"}).Inc()
	f.lock.Lock()
	defer f.lock.Unlock()

	cp := f.contentPath(obj.Key)
	mp := f.metaPath(obj.Key)
	if err := os.MkdirAll(path.Dir(cp), 0755); err != nil {
		return pkgerrors.Wrapf(err, "creating directory for %s", obj.Key)
	}
	if err := os.MkdirAll(path.Dir(mp), 0755); err != nil {
		return pkgerrors.Wrapf(err, "creating metadata directory for %s", obj.Key)
	}

	metaBytes, err := json.Marshal(fileMeta{
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
		ACL:             obj.ACL,
		Metadata:        copyMetadata(obj.Metadata),
	})
	if err != nil {
		return err
	}

	if err = os.WriteFile(cp, obj.Body, 0644); err != nil {
		return pkgerrors.Wrapf(err, "writing %s", obj.Key)
	}
	if err = os.WriteFile(mp, metaBytes, 0644); err != nil {
		return pkgerrors.Wrapf(err, "writing metadata for %s", obj.Key)
	}

	ctx.Log.Debugf("Wrote %s (%s) to file store", obj.Key, humanize.Bytes(uint64(len(obj.Body))))
	return nil
}

func (f *fileStore) DeleteObject(ctx rcontext.RequestContext, key string) error {
	metrics.StoreOperations.With(prometheus.Labels{"store": "file", "operation": "DeleteObject"}).Inc()
	f.lock.Lock()
	defer f.lock.Unlock()

	if err := os.Remove(f.contentPath(key)); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "removing %s", key)
	}
	if err := os.Remove(f.metaPath(key)); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "removing metadata for %s", key)
	}
	return nil
}

func (f *fileStore) ListObjects(ctx rcontext.RequestContext, prefix string, marker string) (*ListPage, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "file", "operation": "ListObjects"}).Inc()
	f.lock.RLock()
	defer f.lock.RUnlock()

	keys := make([]string, 0)
	err := filepath.WalkDir(f.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.basePath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == metaDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(rel, prefix) && rel > marker {
			keys = append(keys, rel)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "listing %s", prefix)
	}
	sort.Strings(keys)
	return paginate(keys, f.pageSize), nil
}

func paginate(sortedKeys []string, pageSize int) *ListPage {
	page := &ListPage{Keys: sortedKeys}
	if len(sortedKeys) > pageSize {
		page.Keys = sortedKeys[:pageSize]
		page.IsTruncated = true
		page.NextMarker = page.Keys[len(page.Keys)-1]
	}
	return page
}
