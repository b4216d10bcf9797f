package intake

// JaccardSimilarity computes |a ∩ b| / |a ∪ b| for two sets.
// Two empty sets score 0, never NaN.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// HashSet builds the content-hash set of a file listing. Duplicate
// hashes collapse; set similarity deliberately ignores multiplicity.
func HashSet(files []FileRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f.Hash] = struct{}{}
	}
	return set
}

// RelpathSet builds the relative-path set of a file listing.
func RelpathSet(files []FileRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f.Relpath] = struct{}{}
	}
	return set
}

// StringSet builds a set from a plain string slice, for listings coming
// back from the registry.
func StringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
