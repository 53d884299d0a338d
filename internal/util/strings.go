package util

import "strings"

// Slugify lowercases s and keeps only [a-z0-9-], mapping spaces and
// underscores to dashes. Used for run directory and output file names.
func Slugify(s string) string {
	s = strings.ToLower(s)

	var builder strings.Builder
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '-':
			builder.WriteRune(r)
		case r == ' ' || r == '_':
			builder.WriteRune('-')
		}
	}

	return builder.String()
}
