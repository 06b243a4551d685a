package archive

type ResourceOption func(r *Resource) error

func WithContent(content []byte) ResourceOption {
	return func(r *Resource) error {
		r.Content = content
		return nil
	}
}

func WithText(text string) ResourceOption {
	return func(r *Resource) error {
		r.SetText(text)
		return nil
	}
}

func WithData(v interface{}) ResourceOption {
	return func(r *Resource) error {
		return r.SetData(v)
	}
}

func WithContentType(contentType string) ResourceOption {
	return func(r *Resource) error {
		r.ContentType = contentType
		return nil
	}
}

func WithResourceType(resourceType string) ResourceOption {
	return func(r *Resource) error {
		r.SetResourceType(resourceType)
		return nil
	}
}

// WithMeta sets a single metadata value.
func WithMeta(key string, value string) ResourceOption {
	return func(r *Resource) error {
		r.meta()[key] = value
		return nil
	}
}

// WithMetadata copies every entry of meta into the resource metadata.
func WithMetadata(meta map[string]string) ResourceOption {
	return func(r *Resource) error {
		for k, v := range meta {
			r.meta()[k] = v
		}
		return nil
	}
}

func WithACL(acl string) ResourceOption {
	return func(r *Resource) error {
		r.ACL = acl
		return nil
	}
}

func WithCompression(enabled bool) ResourceOption {
	return func(r *Resource) error {
		r.UseCompression = enabled
		return nil
	}
}

func AsDeleted() ResourceOption {
	return func(r *Resource) error {
		r.Deleted = true
		return nil
	}
}
