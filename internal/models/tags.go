package models

import "strings"

// TagDelimiter separates tags in their persisted form.
const TagDelimiter = ","

// NormalizeTags trims tags, drops empty ones and splits any tag containing the delimiter,
// keeping display order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		for _, part := range strings.Split(t, TagDelimiter) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// JoinTags renders tags in their persisted form.
func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), TagDelimiter)
}

// SplitTags parses the persisted form back into an ordered tag list.
func SplitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return NormalizeTags([]string{s})
}
