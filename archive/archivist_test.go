package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type failingStore struct {
	*datastores.MemoryStore
	failPutKey string
}

func (f *failingStore) PutObject(ctx rcontext.RequestContext, obj *datastores.Object) error {
	if obj.Key == f.failPutKey {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.PutObject(ctx, obj)
}

type ArchivistTestSuite struct {
	suite.Suite
	ctx       rcontext.RequestContext
	store     *datastores.MemoryStore
	archivist *Archivist
}

func (s *ArchivistTestSuite) SetupTest() {
	cfg := config.NewDefaultConfig()
	s.ctx = rcontext.WithConfig(context.Background(), &cfg)
	s.store = datastores.NewMemoryStore("testbucket", 2)
	s.archivist = New(s.store, pathstrategy.New(cfg.Paths), cfg.Compression)
}

func (s *ArchivistTestSuite) TestRoundTrip() {
	t := s.T()
	r, err := s.archivist.NewResource("notes/hello.txt",
		WithText("hello world"),
		WithContentType("text/plain"),
		WithResourceType(common.ResourceTypeAsset),
		WithMeta("guid", "abc"),
	)
	require.NoError(t, err)
	require.NoError(t, s.archivist.Save(s.ctx, r))

	got, err := s.archivist.Get(s.ctx, "notes/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.ContentType, got.ContentType)
	assert.Equal(t, r.Metadata, got.Metadata)
	assert.Equal(t, "testbucket", got.Bucket)
	assert.Equal(t, "notes/hello.txt", got.Key)
}

func (s *ArchivistTestSuite) TestCompressionDeterminism() {
	t := s.T()
	text, err := s.archivist.NewResource("a.txt", WithContentType("text/plain"), WithText("some text"), WithResourceType("asset"))
	require.NoError(t, err)
	binary, err := s.archivist.NewResource("a.bin", WithContentType("application/octet-stream"), WithContent([]byte{1, 2, 3}), WithResourceType("asset"))
	require.NoError(t, err)
	require.NoError(t, s.archivist.Persist(s.ctx, []*Resource{text, binary}))

	rawText, err := s.store.GetObject(s.ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "gzip", rawText.ContentEncoding)
	assert.NotEqual(t, []byte("some text"), rawText.Body)
	plain, err := gunzipBytes(rawText.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("some text"), plain)

	rawBinary, err := s.store.GetObject(s.ctx, "a.bin")
	require.NoError(t, err)
	assert.Equal(t, "", rawBinary.ContentEncoding)
	assert.Equal(t, []byte{1, 2, 3}, rawBinary.Body)

	again, err := gzipBytes([]byte("some text"), 9)
	require.NoError(t, err)
	assert.Equal(t, rawText.Body, again)
}

func (s *ArchivistTestSuite) TestCompressibleTypes() {
	t := s.T()
	cases := map[string]bool{
		"text/html; charset=utf-8": true,
		"application/json":         true,
		"application/atom+xml":     true,
		"application/xml":          false,
		"image/png":                false,
	}
	for contentType, expected := range cases {
		r := &Resource{ContentType: contentType, UseCompression: true}
		assert.Equal(t, expected, r.IsCompressible(), contentType)
	}
	assert.False(t, (&Resource{ContentType: "text/plain"}).IsCompressible())
}

func (s *ArchivistTestSuite) TestSaveValidation() {
	t := s.T()
	err := s.archivist.Save(s.ctx, &Resource{ContentType: "text/plain", Content: []byte("x")})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "key", verr.Field)
	assert.Equal(t, "key required", verr.Error())

	err = s.archivist.Save(s.ctx, &Resource{Key: "k", Content: []byte("x")})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "contenttype", verr.Field)

	err = s.archivist.Save(s.ctx, &Resource{Key: "k", ContentType: "text/plain"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "content", verr.Field)

	assert.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "empty", ContentType: "text/plain", Content: []byte{}}))
}

func (s *ArchivistTestSuite) TestArtifactRequiresArchetypeGuid() {
	t := s.T()
	r := &Resource{Key: "post.html", ContentType: "text/html", Content: []byte("<p/>"), Metadata: map[string]string{"resourcetype": "artifact"}}
	err := s.archivist.Save(s.ctx, r)
	assert.ErrorIs(t, err, common.ErrSemantic)
	assert.NotErrorIs(t, err, common.ErrValidation)

	r.SetArchetypeGuid("G")
	assert.NoError(t, s.archivist.Save(s.ctx, r))
}

func (s *ArchivistTestSuite) TestTombstoneDeletes() {
	t := s.T()
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "gone.txt", ContentType: "text/plain", Content: []byte("x")}))
	require.NoError(t, s.archivist.Save(s.ctx, Tombstone("gone.txt", common.ResourceTypeAsset)))
	_, err := s.archivist.Get(s.ctx, "gone.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func (s *ArchivistTestSuite) TestPublishSetsAcl() {
	t := s.T()
	r := &Resource{Key: "pub.txt", ContentType: "text/plain", Content: []byte("x")}
	require.NoError(t, s.archivist.Publish(s.ctx, r))
	obj, err := s.store.GetObject(s.ctx, "pub.txt")
	require.NoError(t, err)
	assert.Equal(t, common.AclPublicRead, obj.ACL)
}

func (s *ArchivistTestSuite) TestPersistStopsAtFirstFailure() {
	t := s.T()
	store := &failingStore{MemoryStore: datastores.NewMemoryStore("b", 0), failPutKey: "two"}
	cfg := config.NewDefaultConfig()
	a := New(store, pathstrategy.New(cfg.Paths), cfg.Compression)

	list := []*Resource{
		{Key: "one", ContentType: "text/plain", Content: []byte("1")},
		{Key: "two", ContentType: "text/plain", Content: []byte("2")},
		{Key: "three", ContentType: "text/plain", Content: []byte("3")},
	}
	err := a.Persist(s.ctx, list)
	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, perr.Position)
	assert.Equal(t, "two", perr.Key)
	assert.Equal(t, []string{"one"}, store.Keys())
}

func (s *ArchivistTestSuite) TestNewResourceAddressesArchetypes() {
	t := s.T()
	r, err := s.archivist.NewResource("",
		WithResourceType(common.ResourceTypeArchetype),
		WithMeta("guid", "G"),
		WithMeta("itemtype", "item/page/article"),
		WithContentType("application/json"),
	)
	require.NoError(t, err)
	assert.Equal(t, "_A/Item/Page/Article/G.json", r.Key)

	r, err = s.archivist.NewResource("nav.json", WithResourceType(common.ResourceTypeConfig))
	require.NoError(t, err)
	assert.Equal(t, "_A/nav.json", r.Key)

	_, err = s.archivist.NewResource("", WithResourceType(common.ResourceTypeArchetype))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func (s *ArchivistTestSuite) TestNewResourceFreshMetadata() {
	t := s.T()
	a, err := s.archivist.NewResource("a")
	require.NoError(t, err)
	b, err := s.archivist.NewResource("b")
	require.NoError(t, err)
	a.Metadata["x"] = "y"
	assert.NotContains(t, b.Metadata, "x")
}

func (s *ArchivistTestSuite) saveArchetype(guid string) {
	r, err := s.archivist.NewResource("",
		WithResourceType(common.ResourceTypeArchetype),
		WithMeta("guid", guid),
		WithMeta("itemtype", "Item/Page/Article"),
		WithContentType("application/json"),
		WithData(map[string]string{"guid": guid}),
	)
	s.Require().NoError(err)
	s.Require().NoError(s.archivist.Save(s.ctx, r))
}

func (s *ArchivistTestSuite) TestAllArchetypesFollowsPagination() {
	t := s.T()
	for i := 0; i < 5; i++ {
		s.saveArchetype(fmt.Sprintf("g%d", i))
	}
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "_A/Source/text/markdown/x.md", ContentType: "text/markdown", Content: []byte("# x"), Metadata: map[string]string{"resourcetype": "asset"}}))
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "_A/site.json", ContentType: "application/json", Content: []byte("{}"), Metadata: map[string]string{"resourcetype": "config"}}))

	keys := make([]string, 0)
	it := s.archivist.AllArchetypes(s.ctx)
	for it.Next() {
		keys = append(keys, it.Resource().Key)
	}
	require.NoError(t, it.Err())
	assert.Len(t, keys, 5)
	assert.Equal(t, "_A/Item/Page/Article/g0.json", keys[0])
	assert.Equal(t, "_A/Item/Page/Article/g4.json", keys[4])
}

func (s *ArchivistTestSuite) TestAllArchetypesResumesFromMarker() {
	t := s.T()
	for i := 0; i < 4; i++ {
		s.saveArchetype(fmt.Sprintf("g%d", i))
	}
	it := s.archivist.AllArchetypes(s.ctx)
	require.True(t, it.Next())
	require.True(t, it.Next())
	marker := it.Marker()

	rest := make([]string, 0)
	it2 := s.archivist.AllArchetypesAfter(s.ctx, marker)
	for it2.Next() {
		rest = append(rest, it2.Resource().Key)
	}
	require.NoError(t, it2.Err())
	assert.Equal(t, []string{"_A/Item/Page/Article/g2.json", "_A/Item/Page/Article/g3.json"}, rest)
}

func (s *ArchivistTestSuite) TestSiteConfigDefaultsWhenMissing() {
	t := s.T()
	sc, err := s.archivist.SiteConfig(s.ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultItemType, sc.DefaultItemType)
	assert.Equal(t, "_templates", sc.TemplateDir)
}

func (s *ArchivistTestSuite) TestSiteConfigAllowsComments() {
	t := s.T()
	doc := []byte(`{
		// the site
		"site": {"title": "My Site", "author": "Jane"},
		"timezone": "America/New_York",
		"default_template": "page.html",
	}`)
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "_A/site.json", ContentType: "application/json", Content: doc}))
	sc, err := s.archivist.SiteConfig(s.ctx)
	require.NoError(t, err)
	assert.Equal(t, "My Site", sc.Site.Title)
	assert.Equal(t, StringList{"page.html"}, sc.DefaultTemplate)
	assert.Equal(t, "America/New_York", sc.Location().String())
	assert.Equal(t, "My Site", sc.Raw["site"].(map[string]interface{})["title"])
}

type recordingListener struct {
	saved   []string
	removed []string
}

func (l *recordingListener) ArtifactChanged(ctx rcontext.RequestContext, r *Resource) error {
	if r.Deleted {
		l.removed = append(l.removed, r.Key)
	} else {
		l.saved = append(l.saved, r.Key)
	}
	return nil
}

func (s *ArchivistTestSuite) TestArtifactListener() {
	t := s.T()
	l := &recordingListener{}
	s.archivist.SetArtifactListener(l)
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "a.html", ContentType: "text/html", Content: []byte("x"), Metadata: map[string]string{"resourcetype": "artifact", "archetype_guid": "G"}}))
	require.NoError(t, s.archivist.Save(s.ctx, &Resource{Key: "b.txt", ContentType: "text/plain", Content: []byte("x")}))
	assert.Equal(t, []string{"a.html"}, l.saved)
	assert.Empty(t, l.removed)

	require.NoError(t, s.archivist.Save(s.ctx, Tombstone("a.html", common.ResourceTypeArtifact)))
	require.NoError(t, s.archivist.Save(s.ctx, Tombstone("b.txt", common.ResourceTypeAsset)))
	assert.Equal(t, []string{"a.html"}, l.removed)
}

func TestArchivistTestSuite(t *testing.T) {
	suite.Run(t, new(ArchivistTestSuite))
}
