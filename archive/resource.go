package archive

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/mindvessel/bluebucket/common"
)

var compressibleTypes = regexp.MustCompile(`^text/|^application/json|^application/\w+\+xml`)

// Resource is one object in the archive. A nil Content means no content was
// supplied; an empty slice is an intentionally empty object.
type Resource struct {
	Key             string
	Bucket          string
	Content         []byte
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
	Deleted         bool
	ACL             string
	LastModified    time.Time
	UseCompression  bool
}

func (r *Resource) ResourceType() string {
	return r.Metadata["resourcetype"]
}

func (r *Resource) SetResourceType(resourceType string) {
	r.meta()["resourcetype"] = resourceType
}

func (r *Resource) ArchetypeGuid() string {
	return r.Metadata["archetype_guid"]
}

func (r *Resource) SetArchetypeGuid(guid string) {
	r.meta()["archetype_guid"] = guid
}

func (r *Resource) IsArchetype() bool {
	return r.ResourceType() == common.ResourceTypeArchetype
}

func (r *Resource) meta() map[string]string {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	return r.Metadata
}

func (r *Resource) IsCompressible() bool {
	return r.UseCompression && compressibleTypes.MatchString(r.ContentType)
}

// Text returns the content as a string. Only text/* resources have one.
func (r *Resource) Text() (string, error) {
	if !strings.HasPrefix(r.ContentType, "text/") {
		return "", common.ErrNotText
	}
	return string(r.Content), nil
}

func (r *Resource) SetText(text string) {
	r.Content = []byte(text)
}

// Data decodes JSON content into v.
func (r *Resource) Data(v interface{}) error {
	return json.Unmarshal(r.Content, v)
}

// SetData encodes v as JSON content. Map keys are written in sorted order.
func (r *Resource) SetData(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Content = b
	return nil
}

// DataMap decodes JSON content into a generic object.
func (r *Resource) DataMap() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := r.Data(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Tombstone returns a resource that deletes key when saved.
func Tombstone(key string, resourceType string) *Resource {
	return &Resource{
		Key:      key,
		Deleted:  true,
		Metadata: map[string]string{"resourcetype": resourceType},
	}
}
