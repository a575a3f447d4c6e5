package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/featprobe/internal/probe"
	"github.com/Norgate-AV/featprobe/internal/toolchain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "probes.yml", `probes:
  - name: u32
    kind: type
    snippet: u32
  - name: vec_new_unamb
    kind: typed_expression
    type: Vec<u16>
    snippet: Vec::new()
  - name: gated
    policy: diagnostic
    snippet: "fn main() { let _x: ! = panic!(); }"
    expect: E0658
    args: ["--edition", "2021"]
`)

	reg, err := Load(toolchain.Rustc, path)
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"u32", "vec_new_unamb", "gated"}, reg.Names())
	assert.Equal(t, toolchain.Rustc, reg.Flavor())

	p, ok := reg.Lookup("vec_new_unamb")
	require.True(t, ok)
	assert.Equal(t, "fn main() { let _: Vec<u16> = Vec::new(); }\n", p.Source())
	assert.Equal(t, path, reg.Source("vec_new_unamb"))

	gated, ok := reg.Lookup("gated")
	require.True(t, ok)
	assert.Equal(t, probe.PolicyDiagnostic, gated.Policy())
	assert.Equal(t, []string{"--edition", "2021"}, gated.Args())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "probes.toml", `
[[probes]]
name = "bool"
kind = "type"
snippet = "_Bool"

[[probes]]
name = "static_assert"
snippet = """
_Static_assert(1, "x");
int main(void) { return 0; }
"""
`)

	reg, err := Load(toolchain.CC, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bool", "static_assert"}, reg.Names())
}

func TestLoad_MultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "probes:\n  - name: one\n    snippet: fn main() {}\n")
	b := writeFile(t, dir, "b.yaml", "probes:\n  - name: two\n    snippet: fn main() {}\n")

	reg, err := Load(toolchain.Rustc, a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, reg.Names())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		wantEntry   string
		wantIndex   int
		errContains string
	}{
		{
			name:        "empty snippet",
			files:       map[string]string{"p.yaml": "probes:\n  - name: ok\n    snippet: x\n  - name: blank\n    snippet: \"\"\n"},
			wantEntry:   "blank",
			wantIndex:   1,
			errContains: "empty snippet",
		},
		{
			name:        "duplicate in one file",
			files:       map[string]string{"p.yaml": "probes:\n  - name: a\n    snippet: x\n  - name: a\n    snippet: y\n"},
			wantEntry:   "a",
			wantIndex:   1,
			errContains: "duplicate name",
		},
		{
			name:        "unknown policy",
			files:       map[string]string{"p.yaml": "probes:\n  - name: a\n    snippet: x\n    policy: sometimes\n"},
			wantEntry:   "a",
			wantIndex:   0,
			errContains: "unknown policy",
		},
		{
			name:        "misspelt field",
			files:       map[string]string{"p.yaml": "probes:\n  - name: a\n    snipet: x\n"},
			wantIndex:   -1,
			errContains: "snipet",
		},
		{
			name:        "unknown toml field",
			files:       map[string]string{"p.toml": "[[probes]]\nname = \"a\"\nsnippet = \"x\"\npolcy = \"success\"\n"},
			wantIndex:   -1,
			errContains: "polcy",
		},
		{
			name:        "malformed yaml",
			files:       map[string]string{"p.yaml": "probes: [\n"},
			wantIndex:   -1,
			errContains: "decode yaml",
		},
		{
			name:        "no probes",
			files:       map[string]string{"p.yaml": "probes: []\n"},
			wantIndex:   -1,
			errContains: "no probes defined",
		},
		{
			name:        "unsupported extension",
			files:       map[string]string{"p.ini": "probes=1\n"},
			wantIndex:   -1,
			errContains: "unsupported probe file format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			var paths []string
			for name, content := range tt.files {
				paths = append(paths, writeFile(t, dir, name, content))
			}

			reg, err := Load(toolchain.Rustc, paths...)
			require.Error(t, err)
			assert.Nil(t, reg, "a partial registry must never be returned")
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errContains)

			var regErr *Error
			require.ErrorAs(t, err, &regErr)
			assert.Equal(t, tt.wantIndex, regErr.Index)
			assert.Equal(t, tt.wantEntry, regErr.Entry)
		})
	}
}

func TestLoad_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "probes:\n  - name: same\n    snippet: x\n")
	b := writeFile(t, dir, "b.yaml", "probes:\n  - name: same\n    snippet: y\n")

	_, err := Load(toolchain.Rustc, a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first defined in "+a)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(toolchain.Rustc, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(toolchain.Rustc)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDefault(t *testing.T) {
	for _, flavor := range toolchain.Flavors() {
		t.Run(flavor.String(), func(t *testing.T) {
			reg, err := Default(flavor)
			require.NoError(t, err)
			assert.Positive(t, reg.Len())
			assert.Equal(t, flavor, reg.Flavor())

			for _, name := range reg.Names() {
				assert.Equal(t, DefaultsSource, reg.Source(name))
			}
		})
	}
}

func TestRegistry_ProbesIsACopy(t *testing.T) {
	reg, err := Default(toolchain.Rustc)
	require.NoError(t, err)

	probes := reg.Probes()
	probes[0] = nil
	assert.NotNil(t, reg.Probes()[0])
}
