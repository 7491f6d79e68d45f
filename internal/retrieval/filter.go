package retrieval

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// validateChannelPatterns rejects malformed glob patterns up front.
func validateChannelPatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: invalid channel pattern %q", ErrInvalidInput, p)
		}
	}
	return nil
}

// matchChannel reports whether channel matches any of the glob patterns.
// With no patterns everything matches; a result without a channel never
// matches a non-empty pattern list.
func matchChannel(patterns []string, channel *string) bool {
	if len(patterns) == 0 {
		return true
	}
	if channel == nil {
		return false
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, *channel); ok {
			return true
		}
	}
	return false
}
