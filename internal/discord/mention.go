package discord

import "strings"

// Mention resolves a role name through roles (keys are lower case). Names
// that are not in the table are passed through as-is, so raw mentions like
// "<@&123>" work too.
func Mention(roles map[string]string, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if m, ok := roles[strings.ToLower(name)]; ok {
		return m
	}
	if strings.EqualFold(name, "everyone") {
		return "@everyone"
	}
	return name
}
