package common

const (
	ResourceTypeAsset     = "asset"
	ResourceTypeArchetype = "archetype"
	ResourceTypeArtifact  = "artifact"
	ResourceTypeConfig    = "config"
)

const AclPublicRead = "public-read"

func IsKnownResourceType(resourceType string) bool {
	switch resourceType {
	case ResourceTypeAsset, ResourceTypeArchetype, ResourceTypeArtifact, ResourceTypeConfig:
		return true
	}
	return false
}
