package scribes

import (
	"testing"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/templating"
	"github.com/stretchr/testify/suite"
)

type HtmlRenderScribeTestSuite struct {
	suite.Suite
	f      *fixture
	scribe *HtmlRenderScribe
}

func (s *HtmlRenderScribeTestSuite) SetupTest() {
	s.f = newFixture()
	loader := templating.NewLoader(s.f.archivist, time.Minute)
	s.scribe = NewHtmlRenderScribe(Matcher{}, s.f.archivist, s.f.paths, loader)
}

func (s *HtmlRenderScribeTestSuite) archetype(data map[string]interface{}) *archive.Resource {
	r, err := s.f.archivist.NewResource("",
		archive.WithData(data),
		archive.WithContentType("application/json"),
		archive.WithResourceType(common.ResourceTypeArchetype),
		archive.WithMeta("guid", data["guid"].(string)),
		archive.WithMeta("itemtype", data["itemtype"].(string)))
	s.Require().NoError(err)
	return r
}

func (s *HtmlRenderScribeTestSuite) putTemplate(key string, text string) {
	r, err := s.f.archivist.NewResource(key, archive.WithText(text), archive.WithContentType("text/html"))
	s.Require().NoError(err)
	s.Require().NoError(s.f.archivist.Save(s.f.ctx, r))
}

func (s *HtmlRenderScribeTestSuite) TestFallbackTemplate() {
	r := s.archetype(map[string]interface{}{"guid": "G", "itemtype": "Item/Page/Article", "title": "Hi", "body": "<p>x</p>"})
	s.Equal("_A/Item/Page/Article/G.json", r.Key)

	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	artifact := out[0]
	s.Equal("Item/Page/Article/G.html", artifact.Key)
	s.Equal(common.AclPublicRead, artifact.ACL)
	s.Equal("G", artifact.ArchetypeGuid())
	s.Equal(common.ResourceTypeArtifact, artifact.ResourceType())
	s.Contains(string(artifact.Content), "<title>Hi</title>")
	s.Contains(string(artifact.Content), "<p>x</p>")
}

func (s *HtmlRenderScribeTestSuite) TestItemTypeHierarchy() {
	s.putTemplate("_templates/Item/Page.html", `page:{{ .title }}`)
	s.putTemplate("_templates/Item.html", `item:{{ .title }}`)

	r := s.archetype(map[string]interface{}{"guid": "G", "itemtype": "Item/Page/Article", "title": "Hi"})
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Equal("page:Hi", string(out[0].Content))
}

func (s *HtmlRenderScribeTestSuite) TestExplicitTemplateWins() {
	s.putTemplate("_templates/Item/Page.html", `page`)
	s.putTemplate("_templates/special.html", `special:{{ .guid }}`)

	r := s.archetype(map[string]interface{}{"guid": "G", "itemtype": "Item/Page", "template": "special"})
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Equal("special:G", string(out[0].Content))
}

func (s *HtmlRenderScribeTestSuite) TestKeyOverride() {
	r := s.archetype(map[string]interface{}{"guid": "G", "itemtype": "Item/Page", "key": "_A/about/index.html"})
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Equal("about/index.html", out[0].Key)
}

func (s *HtmlRenderScribeTestSuite) TestIgnoresNonArchetypes() {
	r, err := s.f.archivist.NewResource("_A/nav.json", archive.WithText("{}"), archive.WithContentType("application/json"), archive.WithResourceType(common.ResourceTypeConfig))
	s.Require().NoError(err)
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.NoError(err)
	s.Empty(out)
}

func (s *HtmlRenderScribeTestSuite) TestDelete() {
	gone, err := s.scribe.OnDelete(s.f.ctx, "_A/Item/Page/Article/G.json")
	s.Require().NoError(err)
	s.Require().Len(gone, 1)
	s.Equal("Item/Page/Article/G.html", gone[0].Key)
	s.True(gone[0].Deleted)
}

func TestHtmlRenderScribeTestSuite(t *testing.T) {
	suite.Run(t, new(HtmlRenderScribeTestSuite))
}
