package scribes

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const archetypeSchemaUrl = "https://bluebucket.local/schemas/archetype.schema.json"

//go:embed schemas/archetype.schema.json
var archetypeSchemaJson []byte

func CompileArchetypeSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(archetypeSchemaUrl, bytes.NewReader(archetypeSchemaJson)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return c.Compile(archetypeSchemaUrl)
}

// JsonArchetypeScribe validates hand-written JSON source documents and
// normalizes them into archetypes.
type JsonArchetypeScribe struct {
	matcher Matcher
	schema  *jsonschema.Schema
	reader  archive.Reader
	paths   *pathstrategy.Strategy
	Now     func() time.Time
}

func NewJsonArchetypeScribe(matcher Matcher, reader archive.Reader, paths *pathstrategy.Strategy, schema *jsonschema.Schema) (*JsonArchetypeScribe, error) {
	if schema == nil {
		var err error
		if schema, err = CompileArchetypeSchema(); err != nil {
			return nil, err
		}
	}
	return &JsonArchetypeScribe{
		matcher: matcher,
		schema:  schema,
		reader:  reader,
		paths:   paths,
		Now:     time.Now,
	}, nil
}

func (s *JsonArchetypeScribe) Name() string {
	return "json-archetype"
}

func (s *JsonArchetypeScribe) CanHandlePath(key string) bool {
	return s.matcher.Matches(key)
}

func (s *JsonArchetypeScribe) OnSave(ctx rcontext.RequestContext, r *archive.Resource) ([]*archive.Resource, error) {
	if rt := r.ResourceType(); rt != "" && rt != common.ResourceTypeAsset {
		return nil, nil
	}

	var doc interface{}
	if err := json.Unmarshal(r.Content, &doc); err != nil {
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	site, err := s.reader.SiteConfig(ctx)
	if err != nil {
		return nil, err
	}

	item := doc.(map[string]interface{})
	loc := site.Location()
	for key := range dateKeys {
		v, ok := item[key]
		if !ok {
			continue
		}
		d, err := normalizeDate(v, loc)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		item[key] = d
	}
	if v, ok := item["date"]; ok {
		if _, hasPublished := item["published"]; !hasPublished {
			item["published"] = v
		}
		delete(item, "date")
	}
	if it, ok := item["itemtype"].(string); ok {
		item["itemtype"] = pathstrategy.CapitalizeItemType(it)
	}
	applyItemDefaults(item, site, r, s.Now)

	guid := item["guid"].(string)
	itemType := item["itemtype"].(string)
	key, err := s.paths.PathFor(map[string]string{
		"resourcetype": common.ResourceTypeArchetype,
		"guid":         guid,
		"itemtype":     itemType,
	})
	if err != nil {
		return nil, err
	}
	item["content_src"] = map[string]interface{}{
		"bucket": r.Bucket,
		"key":    r.Key,
		"href":   "/" + r.Key,
		"type":   "application/json",
	}

	out := &archive.Resource{
		Key:         key,
		Bucket:      r.Bucket,
		ContentType: "application/json",
		Metadata: map[string]string{
			"resourcetype": common.ResourceTypeArchetype,
			"guid":         guid,
			"itemtype":     itemType,
		},
		UseCompression: r.UseCompression,
	}
	if err = out.SetData(item); err != nil {
		return nil, err
	}
	return []*archive.Resource{out}, nil
}

// OnDelete can only locate archetypes stored under the site's default item
// type, since the source document that named the item type is already gone.
func (s *JsonArchetypeScribe) OnDelete(ctx rcontext.RequestContext, key string) ([]*archive.Resource, error) {
	site, err := s.reader.SiteConfig(ctx)
	if err != nil {
		return nil, err
	}
	target, err := s.paths.PathFor(map[string]string{
		"resourcetype": common.ResourceTypeArchetype,
		"guid":         baseName(key),
		"itemtype":     site.DefaultItemType,
	})
	if err != nil {
		return nil, err
	}
	return []*archive.Resource{archive.Tombstone(target, common.ResourceTypeArchetype)}, nil
}
