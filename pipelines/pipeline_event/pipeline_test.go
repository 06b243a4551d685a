package pipeline_event

import (
	"context"
	"errors"
	"testing"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/common/runtime"
	"github.com/mindvessel/bluebucket/datastores"
	"github.com/mindvessel/bluebucket/events"
	"github.com/mindvessel/bluebucket/indexer"
	"github.com/stretchr/testify/suite"
)

const post = "---\nguid: G\nitemtype: item/page/article\npublished: 2020-01-01\ntitle: Hello World\n---\n# Hello\n"

type EventPipelineTestSuite struct {
	suite.Suite
	cfg      config.ArchiveConfig
	store    *datastores.MemoryStore
	services *runtime.Services
}

func (s *EventPipelineTestSuite) SetupTest() {
	s.cfg = config.NewDefaultConfig()
	s.store = datastores.NewMemoryStore("bucket", 0)
	s.build()
}

func (s *EventPipelineTestSuite) build() {
	services, err := runtime.NewServices(&s.cfg, s.store)
	s.Require().NoError(err)
	s.services = services
}

func (s *EventPipelineTestSuite) ctx() rcontext.RequestContext {
	return rcontext.WithConfig(context.Background(), &s.cfg)
}

func (s *EventPipelineTestSuite) save(key string, text string, contentType string, resourceType string) {
	r, err := s.services.Archivist.NewResource(key, archive.WithText(text), archive.WithContentType(contentType), archive.WithResourceType(resourceType))
	s.Require().NoError(err)
	s.Require().NoError(s.services.Archivist.Save(s.ctx(), r))
}

func (s *EventPipelineTestSuite) index() *indexer.Index {
	r, err := s.services.Archivist.Get(s.ctx(), s.services.Paths.IndexKey(config.DefaultIndexName))
	s.Require().NoError(err)
	ix := &indexer.Index{}
	s.Require().NoError(r.Data(ix))
	return ix
}

func (s *EventPipelineTestSuite) keys(resources []*archive.Resource) []string {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Key)
	}
	return out
}

// unreadableStore fails reads of one key.
type unreadableStore struct {
	*datastores.MemoryStore
	key string
}

func (u *unreadableStore) GetObject(ctx rcontext.RequestContext, key string) (*datastores.Object, error) {
	if key == u.key {
		return nil, errors.New("read timed out")
	}
	return u.MemoryStore.GetObject(ctx, key)
}

func saved(key string) events.Event {
	return events.Event{Source: "aws:s3", Bucket: "bucket", Key: key, Name: "ObjectCreated:Put"}
}

func removed(key string) events.Event {
	return events.Event{Source: "aws:s3", Bucket: "bucket", Key: key, Name: "ObjectRemoved:Delete"}
}

func (s *EventPipelineTestSuite) TestSourceCascadesToArtifactAndIndex() {
	s.save("_A/Source/text/markdown/G.md", post, "text/markdown; charset=utf-8", common.ResourceTypeAsset)

	outcome, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved("_A/Source/text/markdown/G.md")})
	s.Require().NoError(err)
	s.Equal(4, outcome.Events)
	s.Equal(0, outcome.Failed)
	s.ElementsMatch([]string{
		"_A/Source/text/markdown/G.htm",
		"_A/Item/Page/Article/G.json",
		"Item/Page/Article/G.html",
	}, s.keys(outcome.Resources))
	s.Contains(s.store.Keys(), "Item/Page/Article/G.html")

	ix := s.index()
	s.Require().Len(ix.Entries, 1)
	s.Equal("_A/Item/Page/Article/G.json", ix.Entries[0].Archetype)
	s.Equal("2020-01-01T00:00:00Z", ix.Entries[0].Published)
}

func (s *EventPipelineTestSuite) TestRemovingSourceClearsIndex() {
	s.save("_A/Source/text/markdown/G.md", post, "text/markdown; charset=utf-8", common.ResourceTypeAsset)
	_, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved("_A/Source/text/markdown/G.md")})
	s.Require().NoError(err)
	s.Require().NoError(s.store.DeleteObject(s.ctx(), "_A/Source/text/markdown/G.md"))

	outcome, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{removed("_A/Source/text/markdown/G.md")})
	s.Require().NoError(err)
	s.Equal(0, outcome.Failed)
	s.NotContains(s.store.Keys(), "Item/Page/Article/G.html")
	s.NotContains(s.store.Keys(), "_A/Item/Page/Article/G.json")
	s.Empty(s.index().Entries)
}

func (s *EventPipelineTestSuite) TestWithoutCascadeOnlyDirectOutputs() {
	s.cfg.Events.Cascade = false
	s.save("_A/Source/text/markdown/G.md", post, "text/markdown; charset=utf-8", common.ResourceTypeAsset)

	outcome, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved("_A/Source/text/markdown/G.md")})
	s.Require().NoError(err)
	s.Equal(1, outcome.Events)
	s.Len(outcome.Resources, 2)
	s.NotContains(s.store.Keys(), "Item/Page/Article/G.html")
	s.NotContains(s.store.Keys(), s.services.Paths.IndexKey(config.DefaultIndexName))
}

func (s *EventPipelineTestSuite) TestArchetypeEventIndexesDirectly() {
	s.cfg.Events.Cascade = false
	s.save("_A/Item/Page/Article/A.json", `{"guid":"A","itemtype":"Item/Page/Article","published":"2019-05-05T00:00:00Z","title":"A"}`, "application/json", common.ResourceTypeArchetype)

	outcome, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved("_A/Item/Page/Article/A.json")})
	s.Require().NoError(err)
	s.Equal(0, outcome.Failed)
	s.Equal([]string{"Item/Page/Article/A.html"}, s.keys(outcome.Resources))

	ix := s.index()
	s.Require().Len(ix.Entries, 1)
	s.Equal("A", ix.Entries[0].Title)
}

func (s *EventPipelineTestSuite) TestFailedEventDoesNotStopBatch() {
	s.save("_A/Source/text/markdown/bad.md", "---\npublished: not a date at all\n---\nx\n", "text/markdown", common.ResourceTypeAsset)
	s.save("_A/Source/text/markdown/G.md", post, "text/markdown; charset=utf-8", common.ResourceTypeAsset)

	outcome, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{
		saved("_A/Source/text/markdown/missing.md"),
		saved("_A/Source/text/markdown/bad.md"),
		saved("_A/Source/text/markdown/G.md"),
	})
	s.Require().NoError(err)
	s.Equal(1, outcome.Failed)
	s.Contains(s.keys(outcome.Resources), "Item/Page/Article/G.html")
	s.Len(s.index().Entries, 1)
}

func (s *EventPipelineTestSuite) TestFailedRebuildWritesNoIndex() {
	s.cfg.Events.Cascade = false
	for _, guid := range []string{"A", "B", "C"} {
		s.save("_A/Item/Page/Article/"+guid+".json", `{"guid":"`+guid+`","itemtype":"Item/Page/Article","published":"2019-05-05T00:00:00Z","title":"`+guid+`"}`, "application/json", common.ResourceTypeArchetype)
	}
	services, err := runtime.NewServices(&s.cfg, &unreadableStore{MemoryStore: s.store, key: "_A/Item/Page/Article/B.json"})
	s.Require().NoError(err)

	outcome, err := ExecuteEvents(s.ctx(), services, "test", []events.Event{saved("_A/Item/Page/Article/A.json")})
	s.Require().NoError(err)
	s.Equal(1, outcome.Failed)
	s.NotContains(s.store.Keys(), services.Paths.IndexKey(config.DefaultIndexName))

	// The next event rebuilds from scratch once the store recovers
	outcome, err = ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved("_A/Item/Page/Article/A.json")})
	s.Require().NoError(err)
	s.Equal(0, outcome.Failed)
	s.Len(s.index().Entries, 3)
}

func (s *EventPipelineTestSuite) TestSiteConfigChangeIsPickedUp() {
	s.services.Archivist.SetSiteConfig(&archive.SiteConfig{Site: archive.SiteInfo{Title: "Old"}})
	s.save(s.services.Paths.SiteConfigKey(), `{"site": {"title": "New"}}`, "application/json", common.ResourceTypeConfig)

	_, err := ExecuteEvents(s.ctx(), s.services, "test", []events.Event{saved(s.services.Paths.SiteConfigKey())})
	s.Require().NoError(err)

	site, err := s.services.Archivist.SiteConfig(s.ctx())
	s.Require().NoError(err)
	s.Equal("New", site.Site.Title)
}

func (s *EventPipelineTestSuite) TestExecuteParsesMessage() {
	s.save("_A/Source/text/markdown/G.md", post, "text/markdown; charset=utf-8", common.ResourceTypeAsset)
	body := []byte(`{"Records": [{"eventSource": "aws:s3", "eventName": "ObjectCreated:Put", "s3": {"bucket": {"name": "bucket"}, "object": {"key": "_A/Source/text/markdown/G.md"}}}]}`)

	outcome, err := Execute(s.ctx(), s.services, "test", body)
	s.Require().NoError(err)
	s.Contains(s.keys(outcome.Resources), "_A/Item/Page/Article/G.json")
}

func (s *EventPipelineTestSuite) TestExecuteRejectsMalformedMessage() {
	_, err := Execute(s.ctx(), s.services, "test", []byte(`{"nope": true}`))
	s.ErrorIs(err, common.ErrEventParse)
}

func TestEventPipelineSuite(t *testing.T) {
	suite.Run(t, new(EventPipelineTestSuite))
}
