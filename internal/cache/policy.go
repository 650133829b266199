package cache

import "fmt"

// Policy selects how a fetching command combines the cache with live API
// calls. The manager itself never consults a policy; commands do, using the
// Save/Load/Has primitives.
type Policy string

const (
	// PolicyDefault always fetches live, then saves the result for later
	// reads.
	PolicyDefault Policy = "default"

	// PolicyUseCache loads the latest snapshot when one exists and only
	// fetches live (then saves) on a miss.
	PolicyUseCache Policy = "use-cache"

	// PolicyCacheOnly loads or fails. It never triggers a live fetch, so a
	// miss is a user-facing error.
	PolicyCacheOnly Policy = "cache-only"
)

// ReadsCache reports whether the policy tries the cache before the API.
func (p Policy) ReadsCache() bool {
	return p == PolicyUseCache || p == PolicyCacheOnly
}

// ParsePolicy maps a flag value onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyDefault, PolicyUseCache, PolicyCacheOnly:
		return Policy(s), nil
	case "":
		return PolicyDefault, nil
	default:
		return "", fmt.Errorf("unknown cache policy %q", s)
	}
}
