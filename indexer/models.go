package indexer

import (
	"github.com/mindvessel/bluebucket/common/config"
	"github.com/ryanuber/go-glob"
)

type Link struct {
	Rel  []string `json:"rel"`
	Href string   `json:"href"`
}

// IndexEntry summarizes one archetype.
type IndexEntry struct {
	Published   string `json:"published"`
	Updated     string `json:"updated"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Monograph   string `json:"monograph,omitempty"`
	ItemType    string `json:"itemtype"`
	Archetype   string `json:"archetype"`
}

// Index is a feed-like document whose entries are sorted by published,
// newest first.
type Index struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Author      string       `json:"author"`
	Updated     string       `json:"updated"`
	Category    string       `json:"category"`
	Links       []Link       `json:"links"`
	Entries     []IndexEntry `json:"entries"`
}

// IndexDefinition names an index and the item types it collects. ItemTypes
// holds glob patterns; an empty list collects everything.
type IndexDefinition struct {
	Name      string
	ItemTypes []string
}

func (d IndexDefinition) Accepts(itemType string) bool {
	if len(d.ItemTypes) == 0 {
		return true
	}
	for _, pattern := range d.ItemTypes {
		if glob.Glob(pattern, itemType) {
			return true
		}
	}
	return false
}

func DefinitionsFromConfig(indexes []config.IndexConfig) []IndexDefinition {
	defs := make([]IndexDefinition, 0, len(indexes))
	for _, ix := range indexes {
		name := ix.Name
		if name == "" {
			name = config.DefaultIndexName
		}
		defs = append(defs, IndexDefinition{Name: name, ItemTypes: ix.ItemTypes})
	}
	if len(defs) == 0 {
		defs = append(defs, IndexDefinition{Name: config.DefaultIndexName})
	}
	return defs
}
