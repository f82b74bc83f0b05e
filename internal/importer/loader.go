package importer

import (
	"fmt"
	"os"
	"strings"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"gopkg.in/yaml.v3"
)

// Entry is one bookmark in an import file.
type Entry struct {
	URL  string  `yaml:"url"`
	Tags TagList `yaml:"tags"`
}

// File is the root of an import file:
//
//	bookmarks:
//	  - url: https://example.com
//	    tags: [tech, news]
//	  - url: https://other.example
//	    tags: "reading, later"
type File struct {
	Bookmarks []Entry `yaml:"bookmarks"`
}

// TagList accepts a YAML sequence or a comma separated string.
type TagList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = TagList(bookmarks.ParseTagList(node.Value))
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = TagList(list)
		return nil
	default:
		return fmt.Errorf("line %d: tags must be a list or a comma separated string", node.Line)
	}
}

// LoadFile reads and parses a YAML import file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read import file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML import content. Entries without a url are rejected.
func Parse(data []byte) (File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("failed to parse import yaml: %w", err)
	}
	for index, entry := range file.Bookmarks {
		if strings.TrimSpace(entry.URL) == "" {
			return File{}, fmt.Errorf("bookmark %d: url is required", index+1)
		}
	}
	return file, nil
}
