package ingest

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	breakTagRe  = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// clean trims surrounding whitespace and stray quote characters left over
// from the feed's quoting style.
func clean(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// field returns the cleaned value at position i, or "" when the row is too
// short. Rows in the feed vary in width, so every positional read goes
// through here.
func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return clean(row[i])
}

// normalizeSpace collapses runs of whitespace into single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripBreaks replaces <br> style line-break markup with spaces.
func stripBreaks(s string) string {
	return breakTagRe.ReplaceAllString(s, " ")
}

// stripTags removes all markup from a free-text fragment. The feed embeds
// arbitrary HTML in prose fields; only the text survives.
func stripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// appendUnique appends v unless it is empty or already present, preserving
// first-encountered order.
func appendUnique(list []string, v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// digitsOnly reports whether s is non-empty and purely ASCII digits.
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
