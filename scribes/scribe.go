package scribes

import (
	"path"
	"strings"

	"github.com/mindvessel/bluebucket/archive"
	"github.com/mindvessel/bluebucket/common/rcontext"
	"github.com/ryanuber/go-glob"
)

// Scribe turns one stored resource into zero or more derived resources.
// Returned resources flagged Deleted remove what an earlier save produced.
type Scribe interface {
	Name() string
	CanHandlePath(key string) bool
	OnSave(ctx rcontext.RequestContext, r *archive.Resource) ([]*archive.Resource, error)
	OnDelete(ctx rcontext.RequestContext, key string) ([]*archive.Resource, error)
}

// Matcher decides which keys a scribe accepts. Each non-empty list must have
// a match, and no exclude prefix may match.
type Matcher struct {
	Suffixes []string
	Prefixes []string
	Excludes []string
	Patterns []string
}

func (m Matcher) Matches(key string) bool {
	for _, ex := range m.Excludes {
		if strings.HasPrefix(key, ex) {
			return false
		}
	}
	if len(m.Suffixes) > 0 && !anyOf(m.Suffixes, func(s string) bool { return strings.HasSuffix(key, s) }) {
		return false
	}
	if len(m.Prefixes) > 0 && !anyOf(m.Prefixes, func(p string) bool { return strings.HasPrefix(key, p) }) {
		return false
	}
	if len(m.Patterns) > 0 && !anyOf(m.Patterns, func(p string) bool { return glob.Glob(p, key) }) {
		return false
	}
	return true
}

func anyOf(list []string, fn func(string) bool) bool {
	for _, v := range list {
		if fn(v) {
			return true
		}
	}
	return false
}

// Registry holds scribes in registration order.
type Registry struct {
	scribes []Scribe
}

func NewRegistry(scribes ...Scribe) *Registry {
	r := &Registry{scribes: make([]Scribe, 0, len(scribes))}
	for _, s := range scribes {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(s Scribe) {
	r.scribes = append(r.scribes, s)
}

// Matching returns the scribes that accept key, in registration order.
func (r *Registry) Matching(key string) []Scribe {
	matched := make([]Scribe, 0)
	for _, s := range r.scribes {
		if s.CanHandlePath(key) {
			matched = append(matched, s)
		}
	}
	return matched
}

func (r *Registry) All() []Scribe {
	return append([]Scribe{}, r.scribes...)
}

// changeExt swaps the extension of key for ext.
func changeExt(key string, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(key, path.Ext(key)) + ext
}

func baseName(key string) string {
	b := path.Base(key)
	return strings.TrimSuffix(b, path.Ext(b))
}
