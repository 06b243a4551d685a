package scribes

import (
	"testing"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/stretchr/testify/suite"
)

type MarkdownScribeTestSuite struct {
	suite.Suite
	f      *fixture
	scribe *MarkdownScribe
}

func (s *MarkdownScribeTestSuite) SetupTest() {
	s.f = newFixture()
	s.scribe = NewMarkdownScribe(Matcher{Suffixes: []string{".md"}, Prefixes: []string{s.f.paths.SourcePrefix}}, s.f.archivist, s.f.paths, nil)
	s.scribe.Now = fixedClock
}

func (s *MarkdownScribeTestSuite) source(key string, text string) *archive.Resource {
	r, err := s.f.archivist.NewResource(key, archive.WithText(text), archive.WithContentType("text/markdown; charset=utf-8"), archive.WithResourceType(common.ResourceTypeAsset))
	s.Require().NoError(err)
	return r
}

func (s *MarkdownScribeTestSuite) TestProducesFragmentAndArchetype() {
	r := s.source("_A/Source/text/markdown/G.md", "---\nguid: G\nitemtype: item/page/article\npublished: 2020-01-01\ntitle: Hello World\n---\n# Hello\n")

	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Require().Len(out, 2)

	fragment, archetype := out[0], out[1]
	s.Equal("_A/Source/text/markdown/G.htm", fragment.Key)
	s.Equal(common.ResourceTypeAsset, fragment.ResourceType())
	s.Equal("_A/Item/Page/Article/G.json", fragment.Metadata["archetype"])
	s.Contains(string(fragment.Content), `<h1 id="hello">Hello</h1>`)

	s.Equal("_A/Item/Page/Article/G.json", archetype.Key)
	s.True(archetype.IsArchetype())
	s.Equal("G", archetype.Metadata["guid"])
	s.Equal("Item/Page/Article", archetype.Metadata["itemtype"])

	data, err := archetype.DataMap()
	s.Require().NoError(err)
	s.Equal("G", data["guid"])
	s.Equal("Item/Page/Article", data["itemtype"])
	s.Equal("2020-01-01T00:00:00Z", data["published"])
	s.Equal("2020-01-01T00:00:00Z", data["updated"])
	s.Equal("hello-world", data["slug"])
	s.Contains(data["body"], "<h1")
	src := data["content_src"].(map[string]interface{})
	s.Equal("_A/Source/text/markdown/G.htm", src["key"])
	s.Equal("/_A/Source/text/markdown/G.htm", src["href"])
	s.Equal("testbucket", src["bucket"])
}

func (s *MarkdownScribeTestSuite) TestDefaultsFromSiteAndFilename() {
	r := s.source("_A/Source/text/markdown/plain-post.md", "Title: The Plain Post\nAuthor: Jane Doe\nCategory: notes\n\nSome text.\n")

	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	archetype := out[1]
	s.Equal("_A/Item/Page/Article/plain-post.json", archetype.Key)

	data, err := archetype.DataMap()
	s.Require().NoError(err)
	s.Equal("plain-post", data["guid"])
	s.Equal("plain-post", data["slug"])
	s.Equal("Jane Doe", data["author"])
	s.Equal(map[string]interface{}{"name": "notes"}, data["category"])
	s.Equal("2021-06-01T12:00:00Z", data["published"])
	s.Equal(data["published"], data["updated"])
	s.NotEmpty(data["attribution"])
}

func (s *MarkdownScribeTestSuite) TestLegacyDateBecomesPublished() {
	r := s.source("_A/Source/text/markdown/old.md", "---\ndate: 2019-05-06\nupdated: 2019-06-01\n---\ntext\n")
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	data, err := out[1].DataMap()
	s.Require().NoError(err)
	s.Equal("2019-05-06T00:00:00Z", data["published"])
	s.Equal("2019-06-01T00:00:00Z", data["updated"])
	s.NotContains(data, "date")
}

func (s *MarkdownScribeTestSuite) TestBadDateFails() {
	r := s.source("_A/Source/text/markdown/bad.md", "---\npublished: someday\n---\ntext\n")
	_, err := s.scribe.OnSave(s.f.ctx, r)
	s.Error(err)
}

func (s *MarkdownScribeTestSuite) TestDeleteUsesFragmentPointer() {
	r := s.source("_A/Source/text/markdown/G.md", "---\nguid: G\nitemtype: item/page/review\n---\ntext\n")
	out, err := s.scribe.OnSave(s.f.ctx, r)
	s.Require().NoError(err)
	s.Require().NoError(s.f.archivist.Persist(s.f.ctx, out))

	gone, err := s.scribe.OnDelete(s.f.ctx, "_A/Source/text/markdown/G.md")
	s.Require().NoError(err)
	s.Require().Len(gone, 2)
	s.True(gone[0].Deleted)
	s.Equal("_A/Source/text/markdown/G.htm", gone[0].Key)
	s.True(gone[1].Deleted)
	s.Equal("_A/Item/Page/Review/G.json", gone[1].Key)
}

func (s *MarkdownScribeTestSuite) TestDeleteWithoutFragmentGuesses() {
	gone, err := s.scribe.OnDelete(s.f.ctx, "_A/Source/text/markdown/lost.md")
	s.Require().NoError(err)
	s.Require().Len(gone, 2)
	s.Equal("_A/Source/text/markdown/lost.htm", gone[0].Key)
	s.Equal("_A/Item/Page/Article/lost.json", gone[1].Key)
}

func TestMarkdownScribeTestSuite(t *testing.T) {
	suite.Run(t, new(MarkdownScribeTestSuite))
}
