package util

import "strings"

// Slugify converts an author display name into the backend's URL-safe slug:
// trimmed, lowercased, spaces replaced with hyphens, dots and commas removed.
// "J. K. Rowling" becomes "j-k-rowling".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	return s
}

// ReverseName moves the last word of a name to the front, turning
// "first middle last" into "last first middle". Names with fewer than two
// words are returned unchanged. This is a best-effort word-order heuristic
// with no awareness of particles or non-western name ordering.
func ReverseName(name string) string {
	words := strings.Fields(name)
	if len(words) < 2 {
		return name
	}
	last := words[len(words)-1]
	return last + " " + strings.Join(words[:len(words)-1], " ")
}

// ExpandAuthorInput splits a comma-separated author list and, when reverse is
// set, appends the reversed variant of each name that differs from the
// original. The result is re-joined with ", " in the form the backend's
// scrape endpoint accepts.
func ExpandAuthorInput(input string, reverse bool) string {
	var names []string
	for _, part := range strings.Split(input, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if !reverse {
		return strings.Join(names, ", ")
	}

	var expanded []string
	for _, name := range names {
		expanded = append(expanded, name)
		if reversed := ReverseName(name); reversed != name {
			expanded = append(expanded, reversed)
		}
	}
	return strings.Join(expanded, ", ")
}
