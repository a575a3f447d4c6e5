package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		def         Definition
		wantErr     bool
		errContains string
	}{
		{
			name: "program",
			def:  Definition{Name: "always_compiles", Snippet: "fn main() {}"},
		},
		{
			name: "diagnostic policy",
			def:  Definition{Name: "never_type", Snippet: "fn main() { let _: ! = panic!(); }", Policy: "diagnostic", Expect: `E0658`, Reject: `E0412`},
		},
		{
			name:        "empty snippet",
			def:         Definition{Name: "empty", Snippet: "  \n"},
			wantErr:     true,
			errContains: "empty snippet",
		},
		{
			name:        "bad name",
			def:         Definition{Name: "has space", Snippet: "x"},
			wantErr:     true,
			errContains: "invalid name",
		},
		{
			name:        "empty name",
			def:         Definition{Snippet: "x"},
			wantErr:     true,
			errContains: "invalid name",
		},
		{
			name:        "unknown policy",
			def:         Definition{Name: "p", Snippet: "x", Policy: "maybe"},
			wantErr:     true,
			errContains: "unknown policy",
		},
		{
			name:        "unknown kind",
			def:         Definition{Name: "p", Snippet: "x", Kind: "macro"},
			wantErr:     true,
			errContains: "unknown kind",
		},
		{
			name:        "diagnostic without expect",
			def:         Definition{Name: "p", Snippet: "x", Policy: "diagnostic"},
			wantErr:     true,
			errContains: "requires an expect pattern",
		},
		{
			name:        "expect on success policy",
			def:         Definition{Name: "p", Snippet: "x", Expect: "E0658"},
			wantErr:     true,
			errContains: "only apply to the diagnostic policy",
		},
		{
			name:        "invalid expect pattern",
			def:         Definition{Name: "p", Snippet: "x", Policy: "diagnostic", Expect: "E0658("},
			wantErr:     true,
			errContains: "invalid expect pattern",
		},
		{
			name:        "typed expression without type",
			def:         Definition{Name: "p", Snippet: "Vec::new()", Kind: "typed_expression"},
			wantErr:     true,
			errContains: "requires a type",
		},
		{
			name:        "type on plain expression",
			def:         Definition{Name: "p", Snippet: "1", Kind: "expression", Type: "u8"},
			wantErr:     true,
			errContains: "only valid for typed_expression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.def, toolchain.Rustc)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.def.Name, p.Name())
			assert.Len(t, p.ContentHash(), 64)
		})
	}
}

func TestProbe_ArgsAreCopied(t *testing.T) {
	args := []string{"--edition", "2021"}
	p, err := New(Definition{Name: "p", Snippet: "fn main() {}", Args: args}, toolchain.Rustc)
	require.NoError(t, err)

	args[1] = "2015"
	assert.Equal(t, []string{"--edition", "2021"}, p.Args())

	got := p.Args()
	got[0] = "--changed"
	assert.Equal(t, []string{"--edition", "2021"}, p.Args())
}

func TestProbe_ContentHash(t *testing.T) {
	base := Definition{Name: "p", Snippet: "fn main() {}"}
	p1, err := New(base, toolchain.Rustc)
	require.NoError(t, err)

	renamed := base
	renamed.Name = "q"
	p2, err := New(renamed, toolchain.Rustc)
	require.NoError(t, err)
	assert.Equal(t, p1.ContentHash(), p2.ContentHash(), "name is not content")

	variants := []Definition{
		{Name: "p", Snippet: "fn main() { }"},
		{Name: "p", Snippet: "fn main() {}", Args: []string{"--edition=2021"}},
		{Name: "p", Snippet: "fn main() {}", Policy: "diagnostic", Expect: "E0"},
		{Name: "p", Snippet: "fn main() {}", Kind: "expression"},
	}

	for _, def := range variants {
		p, err := New(def, toolchain.Rustc)
		require.NoError(t, err)
		assert.NotEqual(t, p1.ContentHash(), p.ContentHash(), "%+v", def)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		flavor  toolchain.Flavor
		kind    Kind
		snippet string
		typ     string
		want    string
	}{
		{"rustc type", toolchain.Rustc, KindType, "i128", "", "fn probe_fun(_: Box<i128>) {} fn main() {}\n"},
		{"rustc expression", toolchain.Rustc, KindExpression, "5 + 6", "", "fn main() { let _ = 5 + 6; }\n"},
		{"rustc typed expression", toolchain.Rustc, KindTypedExpression, "Vec::new()", "Vec<u16>", "fn main() { let _: Vec<u16> = Vec::new(); }\n"},
		{"cc expression", toolchain.CC, KindExpression, "1 + 2", "", "int main(void) { (void)(1 + 2); return 0; }\n"},
		{"cc typed expression", toolchain.CC, KindTypedExpression, "0", "_Bool", "int main(void) { _Bool v = 0; (void)v; return 0; }\n"},
		{"go type", toolchain.Go, KindType, "int128", "", "package main\n\nfunc probeFun(_ *int128) {}\n\nfunc main() {}\n"},
		{"program verbatim", toolchain.Go, KindProgram, "package main\nfunc main() {}\n", "", "package main\nfunc main() {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.flavor, tt.kind, tt.snippet, tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus(t *testing.T) {
	var zero Status
	assert.Equal(t, StatusIndeterminate, zero)
	assert.False(t, Result{}.Supported())
	assert.True(t, Result{Status: StatusSupported}.Supported())
	assert.False(t, Result{Status: StatusUnsupported}.Supported())

	for _, s := range []Status{StatusIndeterminate, StatusSupported, StatusUnsupported} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var parsed Status
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, s, parsed)
	}

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("maybe")))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySuccess, p)

	p, err = ParsePolicy("diagnostic")
	require.NoError(t, err)
	assert.Equal(t, PolicyDiagnostic, p)
	assert.Equal(t, "diagnostic", p.String())
}
