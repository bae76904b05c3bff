package config

import (
	"fmt"
	"strings"
)

// ParseAPIKeys parses a comma-separated list of key=clientId pairs into the
// APIKeys map. Returns nil for an empty string, which disables authentication.
func ParseAPIKeys(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	keys := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		idx := strings.IndexByte(pair, '=')
		if idx <= 0 || idx == len(pair)-1 {
			return nil, fmt.Errorf("invalid api key entry %q: expected key=clientId", pair)
		}
		keys[pair[:idx]] = pair[idx+1:]
	}
	return keys, nil
}
