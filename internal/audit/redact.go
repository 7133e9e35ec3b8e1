package audit

import "strings"

// redactPatterns are detail-key substrings that always trigger redaction.
var redactPatterns = []string{
	"dsn",
	"password",
	"secret",
	"credential",
	"token",
	"key",
}

const redactedValue = "[REDACTED]"

// Redact returns a copy of an event detail map with sensitive values
// replaced by [REDACTED], recursing into nested maps.
func Redact(detail map[string]any) map[string]any {
	if len(detail) == 0 {
		return detail
	}

	out := make(map[string]any, len(detail))
	for k, v := range detail {
		if shouldRedact(k) {
			out[k] = redactedValue
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Redact(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func shouldRedact(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range redactPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
