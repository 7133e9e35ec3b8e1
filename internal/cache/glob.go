package cache

import "strings"

// globMatch checks if key matches pattern. An empty pattern matches
// everything. "*" matches any run of characters; all other characters
// match literally, so "user_*" is a prefix match and "*_schema" a suffix
// match. A pattern without wildcards must match the key exactly.
func globMatch(pattern, key string) bool {
	if pattern == "" {
		return true
	}
	chunks := strings.Split(pattern, "*")
	if len(chunks) == 1 {
		return pattern == key
	}

	// First chunk anchors at the start, last at the end, middle chunks
	// must appear in order in between.
	if !strings.HasPrefix(key, chunks[0]) {
		return false
	}
	key = key[len(chunks[0]):]

	for _, chunk := range chunks[1 : len(chunks)-1] {
		if chunk == "" {
			continue
		}
		idx := strings.Index(key, chunk)
		if idx < 0 {
			return false
		}
		key = key[idx+len(chunk):]
	}

	return strings.HasSuffix(key, chunks[len(chunks)-1])
}
