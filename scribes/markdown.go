package scribes

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const FragmentContentType = "text/html; charset=utf-8"

var dateKeys = map[string]bool{"created": true, "date": true, "published": true, "updated": true}

// NewMarkdownEngine builds the markdown converter used by MarkdownScribe.
func NewMarkdownEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.DefinitionList,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
}

// MarkdownScribe converts markdown sources into an HTML fragment asset plus
// the archetype describing the item.
type MarkdownScribe struct {
	matcher Matcher
	md      goldmark.Markdown
	reader  archive.Reader
	paths   *pathstrategy.Strategy
	Now     func() time.Time
}

func NewMarkdownScribe(matcher Matcher, reader archive.Reader, paths *pathstrategy.Strategy, md goldmark.Markdown) *MarkdownScribe {
	if md == nil {
		md = NewMarkdownEngine()
	}
	return &MarkdownScribe{
		matcher: matcher,
		md:      md,
		reader:  reader,
		paths:   paths,
		Now:     time.Now,
	}
}

func (s *MarkdownScribe) Name() string {
	return "markdown"
}

func (s *MarkdownScribe) CanHandlePath(key string) bool {
	return s.matcher.Matches(key)
}

func (s *MarkdownScribe) OnSave(ctx rcontext.RequestContext, r *archive.Resource) ([]*archive.Resource, error) {
	site, err := s.reader.SiteConfig(ctx)
	if err != nil {
		return nil, err
	}

	meta, body, err := splitFrontMatter(r.Content)
	if err != nil {
		return nil, fmt.Errorf("reading front matter: %w", err)
	}

	rendered := &bytes.Buffer{}
	if err = s.md.Convert(body, rendered); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}

	item, err := s.itemMetadata(meta, site, r)
	if err != nil {
		return nil, err
	}
	guid := item["guid"].(string)
	itemType := item["itemtype"].(string)

	archetypeKey, err := s.paths.PathFor(map[string]string{
		"resourcetype": common.ResourceTypeArchetype,
		"guid":         guid,
		"itemtype":     itemType,
	})
	if err != nil {
		return nil, err
	}

	fragmentKey := changeExt(r.Key, ".htm")
	fragment := &archive.Resource{
		Key:         fragmentKey,
		Bucket:      r.Bucket,
		ContentType: FragmentContentType,
		Content:     rendered.Bytes(),
		Metadata: map[string]string{
			"resourcetype": common.ResourceTypeAsset,
			"archetype":    archetypeKey,
		},
		UseCompression: r.UseCompression,
	}

	item["body"] = rendered.String()
	item["content_src"] = map[string]interface{}{
		"bucket": r.Bucket,
		"key":    fragmentKey,
		"href":   "/" + fragmentKey,
		"type":   "text/html",
	}

	archetype := &archive.Resource{
		Key:         archetypeKey,
		Bucket:      r.Bucket,
		ContentType: "application/json",
		Metadata: map[string]string{
			"resourcetype": common.ResourceTypeArchetype,
			"guid":         guid,
			"itemtype":     itemType,
		},
		UseCompression: r.UseCompression,
	}
	if err = archetype.SetData(item); err != nil {
		return nil, err
	}

	ctx.Log.WithFields(logrus.Fields{"archetype": archetypeKey, "fragment": fragmentKey}).Debug("Converted markdown source")
	return []*archive.Resource{fragment, archetype}, nil
}

func (s *MarkdownScribe) itemMetadata(meta map[string]interface{}, site *archive.SiteConfig, r *archive.Resource) (map[string]interface{}, error) {
	loc := site.Location()
	item := make(map[string]interface{})

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := scalar(meta[key])
		switch {
		case dateKeys[key]:
			d, err := normalizeDate(value, loc)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", key, err)
			}
			if key == "date" {
				// Legacy dc.date
				if _, ok := meta["published"]; ok {
					continue
				}
				key = "published"
			}
			item[key] = d
		case key == "itemtype":
			item["itemtype"] = pathstrategy.CapitalizeItemType(fmt.Sprint(value))
		case key == "author":
			if name, ok := value.(string); ok {
				item["author"] = name
				item["attribution"] = []interface{}{map[string]interface{}{"role": "author", "name": name}}
			} else {
				item["author"] = value
			}
		case key == "copyright":
			subMap(item, "rights")["copyright_notice"] = value
		case strings.HasPrefix(key, "rights-"):
			subMap(item, "rights")[strings.TrimPrefix(key, "rights-")] = value
		case key == "category":
			if name, ok := value.(string); ok {
				subMap(item, "category")["name"] = name
			} else {
				item["category"] = value
			}
		case strings.HasPrefix(key, "category-"):
			subMap(item, "category")[strings.TrimPrefix(key, "category-")] = value
		default:
			item[key] = value
		}
	}

	applyItemDefaults(item, site, r, s.Now)
	return item, nil
}

func (s *MarkdownScribe) OnDelete(ctx rcontext.RequestContext, key string) ([]*archive.Resource, error) {
	fragmentKey := changeExt(key, ".htm")

	archetypeKey := ""
	fragment, err := s.reader.Get(ctx, fragmentKey)
	if err == nil {
		archetypeKey = fragment.Metadata["archetype"]
	} else if !archive.IsNotFound(err) {
		ctx.Log.Warn("Could not read fragment to locate archetype: ", err)
	}

	if archetypeKey == "" {
		site, err := s.reader.SiteConfig(ctx)
		if err != nil {
			return nil, err
		}
		archetypeKey, err = s.paths.PathFor(map[string]string{
			"resourcetype": common.ResourceTypeArchetype,
			"guid":         baseName(key),
			"itemtype":     site.DefaultItemType,
		})
		if err != nil {
			return nil, err
		}
	}

	return []*archive.Resource{
		archive.Tombstone(fragmentKey, common.ResourceTypeAsset),
		archive.Tombstone(archetypeKey, common.ResourceTypeArchetype),
	}, nil
}

func scalar(v interface{}) interface{} {
	if list, ok := v.([]interface{}); ok && len(list) == 1 {
		return list[0]
	}
	return v
}

func subMap(item map[string]interface{}, key string) map[string]interface{} {
	if m, ok := item[key].(map[string]interface{}); ok {
		return m
	}
	m := make(map[string]interface{})
	item[key] = m
	return m
}
