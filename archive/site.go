package archive

import (
	"encoding/json"
	"time"
	_ "time/tzdata"

	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tidwall/jsonc"
)

const siteConfigTtl = 1 * time.Minute

const DefaultItemType = "Item/Page/Article"
const DefaultTemplateDir = "_templates"
const DefaultCategory = "uncategorized"

type SiteInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Url         string `json:"url"`
	Category    string `json:"category"`
}

// StringList accepts either a single JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = StringList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// SiteConfig is the site.json document kept in the archetype tree.
type SiteConfig struct {
	Site            SiteInfo    `json:"site"`
	Timezone        string      `json:"timezone"`
	DefaultTemplate StringList  `json:"default_template"`
	DefaultItemType string      `json:"default_itemtype"`
	TemplateDir     string      `json:"template_dir"`
	Rights          interface{} `json:"rights"`
	Attribution     interface{} `json:"attribution"`

	// Raw is the whole document, handed to templates as _site.
	Raw map[string]interface{} `json:"-"`
}

func ParseSiteConfig(b []byte) (*SiteConfig, error) {
	clean := jsonc.ToJSON(b)
	sc := &SiteConfig{}
	if err := json.Unmarshal(clean, sc); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(clean, &sc.Raw); err != nil {
		return nil, err
	}
	return sc.withDefaults(), nil
}

func (s *SiteConfig) withDefaults() *SiteConfig {
	if s.DefaultItemType == "" {
		s.DefaultItemType = DefaultItemType
	}
	if s.TemplateDir == "" {
		s.TemplateDir = DefaultTemplateDir
	}
	if s.Raw == nil {
		s.Raw = make(map[string]interface{})
	}
	return s
}

// Location resolves the configured timezone, defaulting to UTC.
func (s *SiteConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultSiteConfig is used when the archive has no site.json.
func DefaultSiteConfig() *SiteConfig {
	return (&SiteConfig{}).withDefaults()
}

// SiteConfig loads site.json from the archive. A missing document yields the defaults.
func (a *Archivist) SiteConfig(ctx rcontext.RequestContext) (*SiteConfig, error) {
	key := a.paths.SiteConfigKey()
	if v, ok := a.siteCache.Get(key); ok {
		metrics.CacheHits.With(prometheus.Labels{"cache": "site"}).Inc()
		return v.(*SiteConfig), nil
	}
	metrics.CacheMisses.With(prometheus.Labels{"cache": "site"}).Inc()

	r, err := a.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			ctx.Log.Warnf("No site config at %s - using defaults", key)
			sc := DefaultSiteConfig()
			a.siteCache.SetDefault(key, sc)
			return sc, nil
		}
		return nil, err
	}

	sc, err := ParseSiteConfig(r.Content)
	if err != nil {
		return nil, err
	}
	a.siteCache.SetDefault(key, sc)
	return sc, nil
}

// SetSiteConfig replaces the cached site config until it expires.
func (a *Archivist) SetSiteConfig(sc *SiteConfig) {
	a.siteCache.SetDefault(a.paths.SiteConfigKey(), sc.withDefaults())
}

// ForgetSiteConfig drops the cached site config so the next read hits the store.
func (a *Archivist) ForgetSiteConfig() {
	a.siteCache.Delete(a.paths.SiteConfigKey())
}
