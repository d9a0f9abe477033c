package moderation

import "regexp"

var linkPattern = regexp.MustCompile(`https?://\S+`)

// ContainsLink reports whether text contains an http or https URL.
func ContainsLink(text string) bool {
	return linkPattern.MatchString(text)
}
