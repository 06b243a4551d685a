package templating

import (
	"path"

	"github.com/mindvessel/bluebucket/archive"
)

// RenderContext is the data handed to a page template: the archetype's own
// fields plus the site document under "_site".
func RenderContext(data map[string]interface{}, site *archive.SiteConfig) map[string]interface{} {
	ctx := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		ctx[k] = v
	}
	ctx["_site"] = site.Raw
	return ctx
}

// TemplateNames lists candidate templates from most to least specific: the
// archetype's own choice, each level of its item type, then the site default.
func TemplateNames(data map[string]interface{}, site *archive.SiteConfig) []string {
	names := make([]string, 0)
	switch t := data["template"].(type) {
	case string:
		if t != "" {
			names = append(names, t)
		}
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && s != "" {
				names = append(names, s)
			}
		}
	}

	if itemType, ok := data["itemtype"].(string); ok && itemType != "" {
		for p := itemType; p != "." && p != "/" && p != ""; p = path.Dir(p) {
			names = append(names, p)
		}
	}

	names = append(names, site.DefaultTemplate...)
	return names
}
