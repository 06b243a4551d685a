package templating

import (
	"fmt"
	"html/template"
	"path"
	"strings"
	"time"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/mindvessel/bluebucket/metrics"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

const FallbackName = "<fallback>"

const fallbackTemplate = `<!doctype html>
<html><head>
  <title>{{ .title }}</title>
</head><body>{{ safe .body }}
</body></html>
`

var funcs = template.FuncMap{
	"safe": func(v interface{}) template.HTML {
		if v == nil {
			return ""
		}
		return template.HTML(fmt.Sprint(v))
	},
	"join": func(sep string, v []interface{}) string {
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, sep)
	},
}

var fallback = template.Must(template.New(FallbackName).Funcs(funcs).Parse(fallbackTemplate))

// missing marks a cached lookup that found nothing.
type missing struct{}

// Loader reads templates out of the archive and keeps parsed copies for a while.
type Loader struct {
	reader archive.Reader
	cached *cache.Cache
}

func NewLoader(reader archive.Reader, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Loader{
		reader: reader,
		cached: cache.New(ttl, ttl*2),
	}
}

// Select returns the first of names that exists under dir, falling back to
// the built-in template. The chosen name is returned alongside.
func (l *Loader) Select(ctx rcontext.RequestContext, dir string, names []string) (*template.Template, string, error) {
	for _, name := range names {
		for _, candidate := range candidates(name) {
			key := path.Join(dir, candidate)
			t, err := l.get(ctx, key)
			if err != nil {
				return nil, "", err
			}
			if t != nil {
				return t, key, nil
			}
		}
	}
	return fallback, FallbackName, nil
}

func candidates(name string) []string {
	if path.Ext(name) != "" {
		return []string{name}
	}
	return []string{name, name + ".html"}
}

func (l *Loader) get(ctx rcontext.RequestContext, key string) (*template.Template, error) {
	if v, ok := l.cached.Get(key); ok {
		metrics.CacheHits.With(prometheus.Labels{"cache": "templates"}).Inc()
		if t, ok := v.(*template.Template); ok {
			return t, nil
		}
		return nil, nil
	}
	metrics.CacheMisses.With(prometheus.Labels{"cache": "templates"}).Inc()

	r, err := l.reader.Get(ctx, key)
	if err != nil {
		if archive.IsNotFound(err) {
			l.cached.SetDefault(key, missing{})
			return nil, nil
		}
		return nil, err
	}

	t, err := template.New(key).Funcs(funcs).Parse(string(r.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", key, err)
	}
	l.cached.SetDefault(key, t)
	return t, nil
}

// Flush forgets every cached template.
func (l *Loader) Flush() {
	l.cached.Flush()
}
