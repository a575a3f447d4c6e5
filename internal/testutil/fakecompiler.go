// Package testutil provides a scriptable stand-in for a rustc-style
// compiler, so subprocess behaviour can be tested without a real toolchain.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Markers recognised by the fake compiler when they appear in a snippet.
const (
	MarkerHang        = "HANG"         // never finishes
	MarkerCrash       = "CRASH"        // killed by a signal
	MarkerICE         = "ICE"          // internal compiler error, exit 101
	MarkerSilentFail  = "SILENT_FAIL"  // exit 1 with no output
	MarkerGated       = "GATED"        // error[E0658], exit 1
	MarkerUnknownType = "UNKNOWN_TYPE" // error[E0412], exit 1
	MarkerInvalid     = "INVALID"      // error: ..., exit 1, echoes the snippet
	MarkerWarn        = "WARN"         // warning only, exit 0
)

const script = `#!/bin/sh
if [ "$1" = "-vV" ]; then
  printf 'rustc %[1]s (fake)\nhost: x86_64-unknown-linux-gnu\nrelease: %[1]s\n'
  exit 0
fi
echo x >> '%[2]s'
for src; do :; done
if grep -q HANG "$src"; then exec sleep 30; fi
if grep -q CRASH "$src"; then kill -KILL $$; fi
if grep -q ICE "$src"; then echo "error: internal compiler error: unexpected panic" >&2; exit 101; fi
if grep -q SILENT_FAIL "$src"; then exit 1; fi
if grep -q GATED "$src"; then echo "error[E0658]: this feature is experimental" >&2; exit 1; fi
if grep -q UNKNOWN_TYPE "$src"; then echo "error[E0412]: cannot find type in this scope" >&2; exit 1; fi
if grep -q INVALID "$src"; then printf 'error: expected item, found %%s\n' "$(tr -d '\n' < "$src")" >&2; exit 1; fi
if grep -q WARN "$src"; then echo "warning: unused variable" >&2; fi
exit 0
`

// FakeCompiler is a shell script that answers `-vV` like rustc and
// classifies snippets by the markers above.
type FakeCompiler struct {
	Path      string
	CountFile string
}

// SkipWithoutShell skips tests that need /bin/sh.
func SkipWithoutShell(t testing.TB) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a POSIX shell script")
	}
}

// NewFakeCompiler writes a fake compiler reporting version into dir.
func NewFakeCompiler(t testing.TB, dir, version string) *FakeCompiler {
	t.Helper()
	SkipWithoutShell(t)

	f := &FakeCompiler{
		Path:      filepath.Join(dir, "fakerustc-"+version),
		CountFile: filepath.Join(dir, "invocations-"+version),
	}

	content := fmt.Sprintf(script, version, f.CountFile)
	if err := os.WriteFile(f.Path, []byte(content), 0o755); err != nil {
		t.Fatalf("write fake compiler: %v", err)
	}

	return f
}

// Invocations counts trial compilations (version queries excluded).
func (f *FakeCompiler) Invocations(t testing.TB) int {
	t.Helper()

	data, err := os.ReadFile(f.CountFile)
	if os.IsNotExist(err) {
		return 0
	}

	if err != nil {
		t.Fatalf("read invocation count: %v", err)
	}

	return strings.Count(string(data), "\n")
}
