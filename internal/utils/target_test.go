package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTriple(t *testing.T) {
	tests := []struct {
		input  string
		ok     bool
		arch   string
		vendor string
		os     string
		env    string
	}{
		{"x86_64-unknown-linux-gnu", true, "x86_64", "unknown", "linux", "gnu"},
		{"aarch64-apple-darwin", true, "aarch64", "apple", "darwin", ""},
		{"wasm32-wasi", true, "wasm32", "", "wasi", ""},
		{"thumbv7em-none-eabihf", true, "thumbv7em", "none", "eabihf", ""},
		{"  x86_64-pc-windows-msvc  ", true, "x86_64", "pc", "windows", "msvc"},
		{"", false, "", "", "", ""},
		{"x86_64", false, "", "", "", ""},
		{"a-b-c-d-e", false, "", "", "", ""},
		{"x86_64--linux", false, "", "", "", ""},
		{"x86 64-linux", false, "", "", "", ""},
		{"x86_64-linux;rm", false, "", "", "", ""},
	}

	for _, tt := range tests {
		triple, ok := ParseTriple(tt.input)
		assert.Equal(t, tt.ok, ok, "ParseTriple(%q)", tt.input)
		if !tt.ok {
			continue
		}

		assert.Equal(t, tt.arch, triple.Arch, "arch of %q", tt.input)
		assert.Equal(t, tt.vendor, triple.Vendor, "vendor of %q", tt.input)
		assert.Equal(t, tt.os, triple.OS, "os of %q", tt.input)
		assert.Equal(t, tt.env, triple.Env, "env of %q", tt.input)
	}
}

func TestTriple_StringKeepsInput(t *testing.T) {
	triple, ok := ParseTriple("riscv64gc-unknown-linux-gnu")
	assert.True(t, ok)
	assert.Equal(t, "riscv64gc-unknown-linux-gnu", triple.String())
}

func TestParseGoTarget(t *testing.T) {
	tests := []struct {
		input  string
		goos   string
		goarch string
		ok     bool
	}{
		{"linux/amd64", "linux", "amd64", true},
		{"js/wasm", "js", "wasm", true},
		{"linux", "", "", false},
		{"/amd64", "", "", false},
		{"linux/", "", "", false},
		{"linux-amd64", "", "", false},
	}

	for _, tt := range tests {
		goos, goarch, ok := ParseGoTarget(tt.input)
		assert.Equal(t, tt.ok, ok, "ParseGoTarget(%q)", tt.input)
		assert.Equal(t, tt.goos, goos)
		assert.Equal(t, tt.goarch, goarch)
	}
}
