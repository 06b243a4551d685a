package scribes

import (
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/mindvessel/bluebucket/templating"
)

func matcherFor(c config.ScribeConfig, defaultPrefixes []string, excludes []string) Matcher {
	prefixes := c.Prefixes
	if len(prefixes) == 0 {
		prefixes = defaultPrefixes
	}
	return Matcher{
		Suffixes: c.Suffixes,
		Prefixes: prefixes,
		Excludes: excludes,
		Patterns: c.Patterns,
	}
}

// BuildRegistry registers every enabled scribe in a fixed order: markdown,
// yaml, json-archetype, html-render.
func BuildRegistry(cfg *config.ArchiveConfig, reader archive.Reader, paths *pathstrategy.Strategy) (*Registry, error) {
	reg := NewRegistry()
	sc := cfg.Scribes

	if sc.Markdown.Enabled {
		reg.Register(NewMarkdownScribe(matcherFor(sc.Markdown, []string{paths.SourcePrefix}, nil), reader, paths, NewMarkdownEngine()))
	}
	if sc.Yaml.Enabled {
		reg.Register(NewYamlScribe(matcherFor(sc.Yaml, nil, nil), paths))
	}
	if sc.JsonArchetype.Enabled {
		s, err := NewJsonArchetypeScribe(matcherFor(sc.JsonArchetype, []string{paths.SourcePrefix + "application/json/"}, nil), reader, paths, nil)
		if err != nil {
			return nil, err
		}
		reg.Register(s)
	}
	if sc.HtmlRender.Enabled {
		ttl := time.Duration(cfg.Templates.CacheMinutes) * time.Minute
		loader := templating.NewLoader(reader, ttl)
		reg.Register(NewHtmlRenderScribe(matcherFor(sc.HtmlRender, []string{paths.ArchetypePrefix}, []string{paths.SourcePrefix, paths.SiteConfigKey()}), reader, paths, loader))
	}
	return reg, nil
}
