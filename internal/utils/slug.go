package utils

import "strings"

// Slugify lowercases a title and collapses anything that is not a letter or a
// digit into single hyphens, e.g. "Go & Postgres!" -> "go-postgres".
func Slugify(title string) string {
	var b strings.Builder

	lastHyphen := true // suppress a leading hyphen

	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
