package scribes

import (
	"fmt"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/pathstrategy"
	"gopkg.in/yaml.v3"
)

// YamlScribe turns YAML documents into JSON config resources beside them.
type YamlScribe struct {
	matcher Matcher
	paths   *pathstrategy.Strategy
}

func NewYamlScribe(matcher Matcher, paths *pathstrategy.Strategy) *YamlScribe {
	return &YamlScribe{matcher: matcher, paths: paths}
}

func (s *YamlScribe) Name() string {
	return "yaml"
}

func (s *YamlScribe) CanHandlePath(key string) bool {
	return s.matcher.Matches(key)
}

func (s *YamlScribe) targetKey(key string) (string, error) {
	return s.paths.PathFor(map[string]string{
		"resourcetype": common.ResourceTypeConfig,
		"key":          changeExt(key, ".json"),
	})
}

func (s *YamlScribe) OnSave(ctx rcontext.RequestContext, r *archive.Resource) ([]*archive.Resource, error) {
	var doc interface{}
	if err := yaml.Unmarshal(r.Content, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	key, err := s.targetKey(r.Key)
	if err != nil {
		return nil, err
	}
	out := &archive.Resource{
		Key:            key,
		Bucket:         r.Bucket,
		ContentType:    "application/json",
		Metadata:       map[string]string{"resourcetype": common.ResourceTypeConfig},
		UseCompression: r.UseCompression,
	}
	if err = out.SetData(jsonSafe(doc)); err != nil {
		return nil, err
	}
	return []*archive.Resource{out}, nil
}

func (s *YamlScribe) OnDelete(ctx rcontext.RequestContext, key string) ([]*archive.Resource, error) {
	target, err := s.targetKey(key)
	if err != nil {
		return nil, err
	}
	return []*archive.Resource{archive.Tombstone(target, common.ResourceTypeConfig)}, nil
}

// jsonSafe rewrites values YAML can produce but encoding/json cannot encode,
// namely maps with non-string keys. Timestamps become RFC 3339 strings.
func jsonSafe(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
