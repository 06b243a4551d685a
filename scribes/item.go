package scribes

import (
	"fmt"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/pathstrategy"
)

// applyItemDefaults fills the fields every archetype carries: guid, itemtype,
// title, slug, published and updated, plus rights and attribution from the site.
func applyItemDefaults(item map[string]interface{}, site *archive.SiteConfig, r *archive.Resource, now func() time.Time) {
	loc := site.Location()
	if g, ok := item["guid"]; !ok || fmt.Sprint(g) == "" {
		item["guid"] = baseName(r.Key)
	} else {
		item["guid"] = fmt.Sprint(g)
	}
	if _, ok := item["itemtype"]; !ok {
		item["itemtype"] = pathstrategy.CapitalizeItemType(site.DefaultItemType)
	}
	if _, ok := item["title"]; !ok {
		item["title"] = ""
	}
	if _, ok := item["slug"]; !ok {
		slug := Slugify(fmt.Sprint(item["title"]))
		if slug == "" {
			slug = Slugify(item["guid"].(string))
		}
		item["slug"] = slug
	}

	_, hasPublished := item["published"]
	_, hasUpdated := item["updated"]
	switch {
	case hasPublished && !hasUpdated:
		item["updated"] = item["published"]
	case hasUpdated && !hasPublished:
		item["published"] = item["updated"]
	case !hasPublished && !hasUpdated:
		when := r.LastModified
		if when.IsZero() {
			when = now()
		}
		item["published"] = when.In(loc).Format(time.RFC3339)
		item["updated"] = item["published"]
	}

	if _, ok := item["rights"]; !ok && site.Rights != nil {
		item["rights"] = site.Rights
	}
	if _, ok := item["attribution"]; !ok && site.Attribution != nil {
		item["attribution"] = site.Attribution
	}
}
