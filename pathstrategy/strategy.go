package pathstrategy

import (
	"mime"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
)

// Strategy computes canonical storage keys from resource metadata. It holds
// no state beyond its prefixes, so one instance may be shared freely.
type Strategy struct {
	ArchetypePrefix string
	SourcePrefix    string
	IndexPrefix     string
}

func New(paths config.PathsConfig) *Strategy {
	s := &Strategy{
		ArchetypePrefix: paths.ArchetypePrefix,
		SourcePrefix:    paths.SourcePrefix,
		IndexPrefix:     paths.IndexPrefix,
	}
	if s.ArchetypePrefix == "" {
		s.ArchetypePrefix = "_A/"
	}
	if s.SourcePrefix == "" {
		s.SourcePrefix = s.ArchetypePrefix + "Source/"
	}
	if s.IndexPrefix == "" {
		s.IndexPrefix = "_I/"
	}
	return s
}

// PathFor returns the key a resource with the given metadata lives at.
func (s *Strategy) PathFor(meta map[string]string) (string, error) {
	resourceType := meta["resourcetype"]
	if resourceType == "" {
		resourceType = common.ResourceTypeAsset
	}

	switch resourceType {
	case common.ResourceTypeAsset:
		if key, ok := meta["key"]; ok && key != "" {
			if strings.HasPrefix(key, s.SourcePrefix) {
				return key, nil
			}
			return s.Unprefix(key), nil
		}
		guid, err := required(meta, "guid")
		if err != nil {
			return "", err
		}
		contentType, err := required(meta, "contenttype")
		if err != nil {
			return "", err
		}
		mediaType := MediaType(contentType)
		return s.SourcePrefix + mediaType + "/" + guid + ExtensionFor(mediaType), nil

	case common.ResourceTypeArchetype:
		guid, err := required(meta, "guid")
		if err != nil {
			return "", err
		}
		itemType, err := required(meta, "itemtype")
		if err != nil {
			return "", err
		}
		return path.Join(s.ArchetypePrefix, CapitalizeItemType(itemType), guid+".json"), nil

	case common.ResourceTypeArtifact:
		key, err := required(meta, "key")
		if err != nil {
			return "", err
		}
		return s.Unprefix(key), nil

	case common.ResourceTypeConfig:
		key, err := required(meta, "key")
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(key, s.ArchetypePrefix) {
			key = path.Join(s.ArchetypePrefix, key)
		}
		return key, nil
	}

	return "", common.ErrNoPathStrategy
}

// Unprefix strips the archetype prefix from a key, if present.
func (s *Strategy) Unprefix(key string) string {
	return strings.TrimPrefix(key, s.ArchetypePrefix)
}

func (s *Strategy) IndexKey(name string) string {
	if name == "" {
		name = config.DefaultIndexName
	}
	return s.IndexPrefix + name + ".json"
}

func (s *Strategy) SiteConfigKey() string {
	return s.ArchetypePrefix + "site.json"
}

func (s *Strategy) IsSource(key string) bool {
	return strings.HasPrefix(key, s.SourcePrefix)
}

// IsArchetypePath is true for keys in the archetype tree that are not source assets.
func (s *Strategy) IsArchetypePath(key string) bool {
	return strings.HasPrefix(key, s.ArchetypePrefix) && !s.IsSource(key)
}

func required(meta map[string]string, field string) (string, error) {
	v := meta[field]
	if v == "" {
		return "", common.NewValidationError(field, "")
	}
	return v, nil
}

// CapitalizeItemType upper-cases the first letter of every slash separated
// segment and lower-cases the rest: "item/page/article" is "Item/Page/Article".
func CapitalizeItemType(itemType string) string {
	segments := strings.Split(itemType, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(seg)
		segments[i] = string(unicode.ToUpper(r)) + strings.ToLower(seg[size:])
	}
	return strings.Join(segments, "/")
}

// MediaType drops any parameters from a content type.
func MediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

var preferredExtensions = map[string]string{
	"text/markdown":      ".md",
	"text/x-markdown":    ".md",
	"text/yaml":          ".yaml",
	"text/x-yaml":        ".yaml",
	"application/yaml":   ".yaml",
	"application/x-yaml": ".yaml",
	"application/json":   ".json",
	"text/html":          ".html",
}

// ExtensionFor guesses a file extension (with leading dot) for a media type,
// or returns "" when none is known.
func ExtensionFor(mediaType string) string {
	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}
	if mt := mimetype.Lookup(mediaType); mt != nil && mt.Extension() != "" {
		return mt.Extension()
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
