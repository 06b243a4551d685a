package datastores

import (
	"context"
	"fmt"
	"testing"

	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() rcontext.RequestContext {
	cfg := config.NewDefaultConfig()
	return rcontext.WithConfig(context.Background(), &cfg)
}

func exerciseStore(t *testing.T, store ResourceStore) {
	ctx := testContext()

	_, err := store.GetObject(ctx, "missing.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.PutObject(ctx, &Object{
		Key:             "_A/Item/Page/abc.json",
		ContentType:     "application/json",
		ContentEncoding: "gzip",
		ACL:             "public-read",
		Metadata:        map[string]string{"resourcetype": "archetype"},
		Body:            []byte("{}"),
	})
	require.NoError(t, err)

	obj, err := store.GetObject(ctx, "_A/Item/Page/abc.json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", obj.ContentType)
	assert.Equal(t, "gzip", obj.ContentEncoding)
	assert.Equal(t, "archetype", obj.Metadata["resourcetype"])
	assert.Equal(t, []byte("{}"), obj.Body)

	require.NoError(t, store.DeleteObject(ctx, "_A/Item/Page/abc.json"))
	require.NoError(t, store.DeleteObject(ctx, "_A/Item/Page/abc.json"))
	_, err = store.GetObject(ctx, "_A/Item/Page/abc.json")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func exercisePaging(t *testing.T, store ResourceStore) {
	ctx := testContext()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.PutObject(ctx, &Object{
			Key:         fmt.Sprintf("_A/Item/%d.json", i),
			ContentType: "application/json",
			Body:        []byte("{}"),
		}))
	}
	require.NoError(t, store.PutObject(ctx, &Object{Key: "_I/index.json", ContentType: "application/json", Body: []byte("{}")}))

	seen := make([]string, 0)
	marker := ""
	pages := 0
	for {
		page, err := store.ListObjects(ctx, "_A/", marker)
		require.NoError(t, err)
		pages++
		seen = append(seen, page.Keys...)
		if !page.IsTruncated {
			break
		}
		marker = page.NextMarker
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"_A/Item/0.json", "_A/Item/1.json", "_A/Item/2.json", "_A/Item/3.json", "_A/Item/4.json"}, seen)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore("bucket", 0))
}

func TestMemoryStorePaging(t *testing.T) {
	exercisePaging(t, NewMemoryStore("bucket", 2))
}

func TestMemoryStoreIsolatesCallers(t *testing.T) {
	ctx := testContext()
	store := NewMemoryStore("bucket", 0)
	meta := map[string]string{"resourcetype": "asset"}
	require.NoError(t, store.PutObject(ctx, &Object{Key: "a", ContentType: "text/plain", Metadata: meta, Body: []byte("x")}))
	meta["resourcetype"] = "changed"

	obj, err := store.GetObject(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "asset", obj.Metadata["resourcetype"])
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore("bucket", t.TempDir(), 0)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStorePaging(t *testing.T) {
	store, err := NewFileStore("bucket", t.TempDir(), 2)
	require.NoError(t, err)
	exercisePaging(t, store)
}

func TestFileStoreSkipsMetadataTree(t *testing.T) {
	ctx := testContext()
	store, err := NewFileStore("bucket", t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, store.PutObject(ctx, &Object{Key: "a.txt", ContentType: "text/plain", Body: []byte("x")}))

	page, err := store.ListObjects(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, page.Keys)
}

func TestOpenUnknownType(t *testing.T) {
	_, err := Open(config.DatastoreConfig{Type: "tape"}, "bucket")
	assert.Error(t, err)
}

func TestOpenMemoryWithPageSize(t *testing.T) {
	store, err := Open(config.DatastoreConfig{Type: "memory", Options: map[string]string{"pageSize": "7"}}, "bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", store.Bucket())
	assert.Equal(t, 7, store.(*MemoryStore).pageSize)
}
