package pathstrategy

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mindvessel/bluebucket/common"
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultStrategy() *Strategy {
	return New(config.NewDefaultConfig().Paths)
}

func TestMarkdownSourceAsset(t *testing.T) {
	key, err := defaultStrategy().PathFor(map[string]string{
		"resourcetype": "asset",
		"itemtype":     "Item/Page/Article",
		"contenttype":  "text/markdown; charset=utf-8",
		"guid":         "653f3ad8-cf4e-43db-afcb-a06ff3e2bfdb",
	})
	require.NoError(t, err)
	assert.Equal(t, "_A/Source/text/markdown/653f3ad8-cf4e-43db-afcb-a06ff3e2bfdb.md", key)
}

func TestSourceAssetWithoutGuid(t *testing.T) {
	_, err := defaultStrategy().PathFor(map[string]string{
		"resourcetype": "asset",
		"contenttype":  "text/markdown; charset=utf-8",
	})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "guid", verr.Field)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestAssetDefaultsWhenResourceTypeMissing(t *testing.T) {
	key, err := defaultStrategy().PathFor(map[string]string{"key": "_A/images/cat.png"})
	require.NoError(t, err)
	assert.Equal(t, "images/cat.png", key)
}

func TestAssetKeyUnderSourceIsUnchanged(t *testing.T) {
	key, err := defaultStrategy().PathFor(map[string]string{"resourcetype": "asset", "key": "_A/Source/text/markdown/x.md"})
	require.NoError(t, err)
	assert.Equal(t, "_A/Source/text/markdown/x.md", key)
}

func TestAssetExtensionGuessing(t *testing.T) {
	s := defaultStrategy()
	cases := map[string]string{
		"text/markdown":            ".md",
		"application/x-yaml":       ".yaml",
		"image/png":                ".png",
		"application/x-not-a-type": "",
	}
	for contentType, ext := range cases {
		key, err := s.PathFor(map[string]string{"guid": "g", "contenttype": contentType})
		require.NoError(t, err)
		assert.Equal(t, "_A/Source/"+contentType+"/g"+ext, key, contentType)
	}
}

func TestArchetypePath(t *testing.T) {
	key, err := defaultStrategy().PathFor(map[string]string{
		"resourcetype": "archetype",
		"guid":         "G",
		"itemtype":     "item/page/ARTICLE",
	})
	require.NoError(t, err)
	assert.Equal(t, "_A/Item/Page/Article/G.json", key)
}

func TestArchetypeRequiresItemType(t *testing.T) {
	_, err := defaultStrategy().PathFor(map[string]string{"resourcetype": "archetype", "guid": "G"})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "itemtype", verr.Field)
}

func TestArtifactPath(t *testing.T) {
	s := defaultStrategy()
	key, err := s.PathFor(map[string]string{"resourcetype": "artifact", "key": "_A/2020/post.html"})
	require.NoError(t, err)
	assert.Equal(t, "2020/post.html", key)

	_, err = s.PathFor(map[string]string{"resourcetype": "artifact"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestConfigPath(t *testing.T) {
	s := defaultStrategy()
	key, err := s.PathFor(map[string]string{"resourcetype": "config", "key": "nav.json"})
	require.NoError(t, err)
	assert.Equal(t, "_A/nav.json", key)

	key, err = s.PathFor(map[string]string{"resourcetype": "config", "key": "_A/nav.json"})
	require.NoError(t, err)
	assert.Equal(t, "_A/nav.json", key)
}

func TestUnknownResourceType(t *testing.T) {
	_, err := defaultStrategy().PathFor(map[string]string{"resourcetype": "sculpture", "key": "x"})
	assert.ErrorIs(t, err, common.ErrNoPathStrategy)
}

func TestWellKnownKeys(t *testing.T) {
	s := defaultStrategy()
	assert.Equal(t, "_I/index.json", s.IndexKey(""))
	assert.Equal(t, "_I/recipes.json", s.IndexKey("recipes"))
	assert.Equal(t, "_A/site.json", s.SiteConfigKey())
	assert.True(t, s.IsSource("_A/Source/foo.md"))
	assert.True(t, s.IsArchetypePath("_A/Item/x.json"))
	assert.False(t, s.IsArchetypePath("_A/Source/x.json"))
}

func TestPathDeterminism(t *testing.T) {
	s := defaultStrategy()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("path_for is deterministic", prop.ForAll(
		func(resourceType string, guid string, itemType string, key string) bool {
			meta := map[string]string{"resourcetype": resourceType, "guid": guid, "itemtype": itemType, "key": key, "contenttype": "text/plain"}
			k1, err1 := s.PathFor(meta)
			k2, err2 := s.PathFor(meta)
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			if err1 != nil {
				return err1.Error() == err2.Error()
			}
			return k1 == k2
		},
		gen.OneConstOf("asset", "archetype", "artifact", "config", "other"),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("archetypes without guid always fail validation", prop.ForAll(
		func(itemType string) bool {
			_, err := s.PathFor(map[string]string{"resourcetype": "archetype", "itemtype": itemType})
			return errors.Is(err, common.ErrValidation)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
