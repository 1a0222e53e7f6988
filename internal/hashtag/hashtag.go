// Package hashtag normalizes hashtags and matches posts against hashtag queries.
package hashtag

import (
	"strings"

	"ghostpic/internal/model"
)

// Normalize cleans authored hashtags for storage: trim, drop one leading '#',
// trim again, lowercase, drop empties. Order and duplicates are preserved.
func Normalize(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := normalizeTag(tag); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseQuery splits a free-text query on whitespace into normalized terms.
func ParseQuery(query string) []string {
	return Normalize(strings.Fields(query))
}

func normalizeTag(tag string) string {
	t := strings.TrimSpace(tag)
	t = strings.TrimPrefix(t, "#")
	return strings.ToLower(strings.TrimSpace(t))
}

// Matches reports whether any of tags starts with any of terms.
// Terms must already be normalized.
func Matches(tags, terms []string) bool {
	for _, tag := range tags {
		tag = strings.ToLower(tag)
		for _, term := range terms {
			if strings.HasPrefix(tag, term) {
				return true
			}
		}
	}
	return false
}

// Search returns the posts whose hashtags match query, keeping input order.
// An empty query returns posts unchanged.
func Search(query string, posts []model.Post) []model.Post {
	terms := ParseQuery(query)
	if len(terms) == 0 {
		return posts
	}

	matched := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if Matches(p.Hashtags, terms) {
			matched = append(matched, p)
		}
	}
	return matched
}
