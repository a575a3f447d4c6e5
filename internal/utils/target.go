package utils

import (
	"strings"
)

// Triple is a parsed compiler target such as x86_64-unknown-linux-gnu.
type Triple struct {
	Arch   string
	Vendor string
	OS     string
	Env    string

	raw string
}

// String returns the triple exactly as it was given.
func (t Triple) String() string {
	return t.raw
}

// ParseTriple parses a dash-separated target triple.
// Two components are read as arch-os, three as arch-vendor-os and four as
// arch-vendor-os-env. Anything else is rejected.
func ParseTriple(t string) (Triple, bool) {
	t = strings.TrimSpace(t)
	if t == "" {
		return Triple{}, false
	}

	parts := strings.Split(t, "-")
	for _, p := range parts {
		if !validComponent(p) {
			return Triple{}, false
		}
	}

	triple := Triple{raw: t, Arch: parts[0]}

	switch len(parts) {
	case 2:
		triple.OS = parts[1]
	case 3:
		triple.Vendor = parts[1]
		triple.OS = parts[2]
	case 4:
		triple.Vendor = parts[1]
		triple.OS = parts[2]
		triple.Env = parts[3]
	default:
		return Triple{}, false
	}

	return triple, true
}

// ParseGoTarget parses a GOOS/GOARCH pair such as linux/amd64.
func ParseGoTarget(t string) (goos, goarch string, ok bool) {
	goos, goarch, found := strings.Cut(strings.TrimSpace(t), "/")
	if !found || !validComponent(goos) || !validComponent(goarch) {
		return "", "", false
	}

	return goos, goarch, true
}

func validComponent(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}

	return true
}
