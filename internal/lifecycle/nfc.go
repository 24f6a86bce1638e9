package lifecycle

// NFCSatisfied reports whether scanned meets required. An empty requirement
// accepts anything, including no scan at all.
func NFCSatisfied(required, scanned string) bool {
	if required == "" {
		return true
	}
	return scanned == required
}
