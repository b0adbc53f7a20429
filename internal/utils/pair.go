package utils

// CanonicalPair orders two identifiers lexicographically so that a symmetric
// relation over (a, b) is always stored and looked up under the same key.
// The first return value is the lower id.
func CanonicalPair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PairKey joins a canonical pair into a single string key.
func PairKey(a, b string) string {
	low, high := CanonicalPair(a, b)
	return low + ":" + high
}
