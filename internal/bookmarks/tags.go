package bookmarks

import "strings"

// NormalizeTags trims every tag, drops entries that are empty after trimming
// and collapses duplicates while keeping first-seen order.
func NormalizeTags(rawTags []string) TagSet {
	normalized := make(TagSet, 0, len(rawTags))
	seen := make(map[string]struct{}, len(rawTags))
	for _, raw := range rawTags {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if _, duplicate := seen[tag]; duplicate {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// ParseTagList splits a comma separated tag string such as "tech, news, ".
func ParseTagList(raw string) TagSet {
	return NormalizeTags(strings.Split(raw, ","))
}
