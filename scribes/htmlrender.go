package scribes

import (
	"bytes"
	"fmt"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/mindvessel/bluebucket/templating"
	"github.com/sirupsen/logrus"
)

const ArtifactContentType = "text/html; charset=utf-8"

// HtmlRenderScribe renders archetypes into public HTML artifacts.
type HtmlRenderScribe struct {
	matcher   Matcher
	reader    archive.Reader
	paths     *pathstrategy.Strategy
	templates *templating.Loader
}

func NewHtmlRenderScribe(matcher Matcher, reader archive.Reader, paths *pathstrategy.Strategy, templates *templating.Loader) *HtmlRenderScribe {
	return &HtmlRenderScribe{
		matcher:   matcher,
		reader:    reader,
		paths:     paths,
		templates: templates,
	}
}

func (s *HtmlRenderScribe) Name() string {
	return "html-render"
}

func (s *HtmlRenderScribe) CanHandlePath(key string) bool {
	return s.matcher.Matches(key)
}

// artifactKey is the archetype's own "key" field when present, otherwise the
// archetype path moved out of the archetype tree with an .html extension.
func (s *HtmlRenderScribe) artifactKey(archetypeKey string, data map[string]interface{}) (string, error) {
	key := changeExt(s.paths.Unprefix(archetypeKey), ".html")
	if data != nil {
		if k, ok := data["key"].(string); ok && k != "" {
			key = k
		}
	}
	return s.paths.PathFor(map[string]string{
		"resourcetype": common.ResourceTypeArtifact,
		"key":          key,
	})
}

func (s *HtmlRenderScribe) OnSave(ctx rcontext.RequestContext, r *archive.Resource) ([]*archive.Resource, error) {
	if !r.IsArchetype() {
		return nil, nil
	}

	data, err := r.DataMap()
	if err != nil {
		return nil, fmt.Errorf("decoding archetype: %w", err)
	}
	site, err := s.reader.SiteConfig(ctx)
	if err != nil {
		return nil, err
	}

	tmpl, name, err := s.templates.Select(ctx, site.TemplateDir, templating.TemplateNames(data, site))
	if err != nil {
		return nil, err
	}
	out := &bytes.Buffer{}
	if err = tmpl.Execute(out, templating.RenderContext(data, site)); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}

	key, err := s.artifactKey(r.Key, data)
	if err != nil {
		return nil, err
	}

	guid := r.Metadata["guid"]
	if guid == "" {
		guid = fmt.Sprint(data["guid"])
	}
	if guid == "" || guid == "<nil>" {
		guid = baseName(r.Key)
	}

	artifact := &archive.Resource{
		Key:         key,
		Bucket:      r.Bucket,
		ContentType: ArtifactContentType,
		Content:     out.Bytes(),
		ACL:         common.AclPublicRead,
		Metadata: map[string]string{
			"resourcetype":   common.ResourceTypeArtifact,
			"archetype_guid": guid,
		},
		UseCompression: r.UseCompression,
	}
	ctx.Log.WithFields(logrus.Fields{"artifact": key, "template": name}).Debug("Rendered archetype")
	return []*archive.Resource{artifact}, nil
}

// OnDelete removes the artifact at the default location. Artifacts placed by
// an explicit "key" field cannot be found once their archetype is gone.
func (s *HtmlRenderScribe) OnDelete(ctx rcontext.RequestContext, key string) ([]*archive.Resource, error) {
	target, err := s.artifactKey(key, nil)
	if err != nil {
		return nil, err
	}
	return []*archive.Resource{archive.Tombstone(target, common.ResourceTypeArtifact)}, nil
}
