package cache

// lruKey joins a fingerprint hash and probe name. Probe names never contain NUL.
func lruKey(fingerprint, name string) string {
	return fingerprint + "\x00" + name
}

// ShortHash returns the first 12 characters of a hex digest for display.
func ShortHash(h string) string {
	if len(h) <= 12 {
		return h
	}

	return h[:12]
}
