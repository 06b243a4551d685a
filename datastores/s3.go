package datastores

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/notification"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var s3clients = &sync.Map{}

type s3 struct {
	client       *minio.Client
	storageClass string
	bucket       string
	pageSize     int
}

func ResetS3Clients() {
	s3clients = &sync.Map{}
}

// NewS3Store wraps an existing minio client.
func NewS3Store(client *minio.Client, bucket string, pageSize int) ResourceStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &s3{client: client, bucket: bucket, storageClass: "STANDARD", pageSize: pageSize}
}

func getS3(ds config.DatastoreConfig, bucket string) (*s3, error) {
	cacheKey := ds.Options["endpoint"] + "/" + bucket
	if val, ok := s3clients.Load(cacheKey); ok {
		return val.(*s3), nil
	}

	endpoint := ds.Options["endpoint"]
	accessKeyId := ds.Options["accessKeyId"]
	accessSecret := ds.Options["accessSecret"]
	region := ds.Options["region"]
	storageClass, hasStorageClass := ds.Options["storageClass"]
	useSslStr, hasSsl := ds.Options["ssl"]

	if !hasStorageClass {
		storageClass = "STANDARD"
	}

	useSsl := true
	if hasSsl && useSslStr != "" {
		useSsl, _ = strconv.ParseBool(useSslStr)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Region: region,
		Secure: useSsl,
		Creds:  credentials.NewStaticV4(accessKeyId, accessSecret, ""),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating s3 client")
	}

	s3c := &s3{
		client:       client,
		storageClass: storageClass,
		bucket:       bucket,
		pageSize:     pageSizeOption(ds),
	}
	s3clients.Store(cacheKey, s3c)
	return s3c, nil
}

func isNotFound(err error) bool {
	var merr minio.ErrorResponse
	if errors.As(err, &merr) {
		return merr.Code == "NoSuchKey" || merr.StatusCode == http.StatusNotFound
	}
	return false
}

func (s *s3) Bucket() string {
	return s.bucket
}

func (s *s3) GetObject(ctx rcontext.RequestContext, key string) (*Object, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "s3", "operation": "GetObject"}).Inc()
	obj, err := s.client.GetObject(ctx.Context, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "getting %s", key)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, pkgerrors.Wrapf(err, "stat %s", key)
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading %s", key)
	}

	meta := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		meta[strings.ToLower(k)] = v
	}

	return &Object{
		Key:             key,
		ContentType:     info.ContentType,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
		Metadata:        meta,
		Body:            body,
		LastModified:    info.LastModified,
		ETag:            info.ETag,
	}, nil
}

func (s *s3) PutObject(ctx rcontext.RequestContext, obj *Object) error {
	userMeta := copyMetadata(obj.Metadata)
	if obj.ACL != "" {
		userMeta["x-amz-acl"] = obj.ACL
	}

	metrics.StoreOperations.With(prometheus.Labels{"store": "s3", "operation": "PutObject"}).Inc()
	_, err := s.client.PutObject(ctx.Context, s.bucket, obj.Key, bytes.NewReader(obj.Body), int64(len(obj.Body)), minio.PutObjectOptions{
		StorageClass:    s.storageClass,
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
		UserMetadata:    userMeta,
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "putting %s", obj.Key)
	}
	return nil
}

func (s *s3) DeleteObject(ctx rcontext.RequestContext, key string) error {
	metrics.StoreOperations.With(prometheus.Labels{"store": "s3", "operation": "RemoveObject"}).Inc()
	err := s.client.RemoveObject(ctx.Context, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return pkgerrors.Wrapf(err, "removing %s", key)
	}
	return nil
}

func (s *s3) ListObjects(ctx rcontext.RequestContext, prefix string, marker string) (*ListPage, error) {
	metrics.StoreOperations.With(prometheus.Labels{"store": "s3", "operation": "ListObjects"}).Inc()

	// The channel is drained one past the page size to learn whether more keys follow.
	listCtx, cancel := context.WithCancel(ctx.Context)
	defer cancel()
	ch := s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: marker,
		MaxKeys:    s.pageSize,
	})

	page := &ListPage{Keys: make([]string, 0)}
	for info := range ch {
		if info.Err != nil {
			return nil, pkgerrors.Wrapf(info.Err, "listing %s", prefix)
		}
		if len(page.Keys) == s.pageSize {
			page.IsTruncated = true
			break
		}
		page.Keys = append(page.Keys, info.Key)
	}
	if page.IsTruncated {
		page.NextMarker = page.Keys[len(page.Keys)-1]
	}
	return page, nil
}

// CheckBucket confirms the bucket exists. Buckets are never created here.
func (s *s3) CheckBucket(ctx rcontext.RequestContext) error {
	exists, err := s.client.BucketExists(ctx.Context, s.bucket)
	if err != nil {
		return pkgerrors.Wrapf(err, "checking bucket %s", s.bucket)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}

// Listen streams created and removed notifications for the bucket. Only minio
// servers support this.
func (s *s3) Listen(ctx context.Context) <-chan notification.Info {
	return s.client.ListenBucketNotification(ctx, s.bucket, "", "", []string{
		"s3:ObjectCreated:*",
		"s3:ObjectRemoved:*",
	})
}
