package vmware

import (
	"regexp"
	"strings"
)

// vSphere snapshots have no createdBy property; the tool that created
// them records the operator in the description instead.
var creatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(Created by:\s*([^)]+)\)`),
	regexp.MustCompile(`(?i)Created by:\s*([^\n,;]+)`),
	regexp.MustCompile(`(?i)\[Created by:\s*([^\]]+)\]`),
	regexp.MustCompile(`(?i)User:\s*([^\n,;]+)`),
}

// ExtractCreator parses the creator from a snapshot description.
// Returns "Unknown" when no known pattern matches.
func ExtractCreator(description string) string {
	if description == "" {
		return "Unknown"
	}
	for _, p := range creatorPatterns {
		if m := p.FindStringSubmatch(description); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return "Unknown"
}

// CreatorTag formats the suffix appended to snapshot descriptions so the
// creator survives round trips through the vendor API.
func CreatorTag(username string) string {
	return " (Created by: " + username + ")"
}
