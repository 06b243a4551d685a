package datastores

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/minio/minio-go/v7/pkg/notification"
)

const DefaultPageSize = 1000

// Object is a stored value plus the headers the archive cares about.
type Object struct {
	Key             string
	ContentType     string
	ContentEncoding string
	ACL             string
	Metadata        map[string]string
	Body            []byte
	LastModified    time.Time
	ETag            string
}

// ListPage is one page of a prefix listing. NextMarker is the token to
// pass back to continue after the last key of this page.
type ListPage struct {
	Keys        []string
	IsTruncated bool
	NextMarker  string
}

// ResourceStore is the key/value object store underneath the archive.
// GetObject returns common.ErrNotFound for absent keys. Deleting an absent
// key is not an error.
type ResourceStore interface {
	Bucket() string
	GetObject(ctx rcontext.RequestContext, key string) (*Object, error)
	PutObject(ctx rcontext.RequestContext, obj *Object) error
	DeleteObject(ctx rcontext.RequestContext, key string) error
	ListObjects(ctx rcontext.RequestContext, prefix string, marker string) (*ListPage, error)
}

// BucketChecker is implemented by stores that can confirm their bucket exists.
type BucketChecker interface {
	CheckBucket(ctx rcontext.RequestContext) error
}

// Listener is implemented by stores that push their own change notifications.
type Listener interface {
	Listen(ctx context.Context) <-chan notification.Info
}

// Open builds the store described by the datastore config for the given bucket.
func Open(ds config.DatastoreConfig, bucket string) (ResourceStore, error) {
	switch ds.Type {
	case "s3":
		return getS3(ds, bucket)
	case "file":
		return NewFileStore(bucket, ds.Options["path"], pageSizeOption(ds))
	case "memory":
		return NewMemoryStore(bucket, pageSizeOption(ds)), nil
	default:
		return nil, fmt.Errorf("unknown datastore type: %s", ds.Type)
	}
}

func pageSizeOption(ds config.DatastoreConfig) int {
	if v, ok := ds.Options["pageSize"]; ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return DefaultPageSize
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
